package record

import (
	"context"
	"iter"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/aretw0/strata/pkg/core"
)

// Cursor is a lazy, chainable description of a multi-document query.
// Limit, Skip and Sort return modified copies; the terminal methods run the
// query again on every call. A Cursor is not safe for concurrent use.
type Cursor struct {
	kind  *Kind
	query bson.D
	opts  core.FindOptions
}

// Query returns the normalized condition of the cursor.
func (c *Cursor) Query() bson.D {
	return c.query
}

// Limit caps the number of documents returned. 0 removes the cap.
func (c *Cursor) Limit(n int64) *Cursor {
	next := c.clone()
	next.opts.Limit = n
	return next
}

// Skip drops the first n documents.
func (c *Cursor) Skip(n int64) *Cursor {
	next := c.clone()
	next.opts.Skip = n
	return next
}

// Sort appends sort keys (field -> 1 | -1) after the existing ones.
func (c *Cursor) Sort(keys bson.D) *Cursor {
	next := c.clone()
	next.opts.Sort = append(append(bson.D{}, c.opts.Sort...), keys...)
	return next
}

func (c *Cursor) clone() *Cursor {
	next := *c
	return &next
}

func (c *Cursor) open(ctx context.Context) (core.NativeCursor, string, error) {
	store, collection, err := c.kind.target(ctx)
	if err != nil {
		return nil, "", err
	}
	native, err := store.Find(ctx, collection, c.query, c.opts)
	if err != nil {
		return nil, "", &core.StoreError{Op: "find", Collection: collection, Query: c.query, Err: err}
	}
	return native, collection, nil
}

// Iter yields the matching models one at a time. Iteration stops at the
// first error, which is yielded with a nil model.
func (c *Cursor) Iter(ctx context.Context) iter.Seq2[*Model, error] {
	return func(yield func(*Model, error) bool) {
		native, collection, err := c.open(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		defer native.Close(ctx)

		for native.Next(ctx) {
			doc, err := native.Current()
			if err != nil {
				yield(nil, &core.StoreError{Op: "find", Collection: collection, Query: c.query, Err: err})
				return
			}
			if !yield(c.kind.hydrate(doc), nil) {
				return
			}
		}
		if err := native.Err(); err != nil {
			yield(nil, &core.StoreError{Op: "find", Collection: collection, Query: c.query, Err: err})
		}
	}
}

// Each calls fn for every matching model, stopping at the first error.
func (c *Cursor) Each(ctx context.Context, fn func(*Model) error) error {
	for m, err := range c.Iter(ctx) {
		if err != nil {
			return err
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

// All returns every matching model in store order.
func (c *Cursor) All(ctx context.Context) ([]*Model, error) {
	models := []*Model{}
	err := c.Each(ctx, func(m *Model) error {
		models = append(models, m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return models, nil
}

// First returns the first matching model, or nil.
func (c *Cursor) First(ctx context.Context) (*Model, error) {
	for m, err := range c.Limit(1).Iter(ctx) {
		return m, err
	}
	return nil, nil
}

// Count returns the number of documents matching the query. Limit and Skip
// are ignored: Find(q).Limit(1).Count() counts every match.
func (c *Cursor) Count(ctx context.Context) (int64, error) {
	return c.count(ctx, core.FindOptions{})
}

// CountWithLimit is Count honoring Limit and Skip.
func (c *Cursor) CountWithLimit(ctx context.Context) (int64, error) {
	return c.count(ctx, core.FindOptions{Limit: c.opts.Limit, Skip: c.opts.Skip})
}

func (c *Cursor) count(ctx context.Context, opts core.FindOptions) (int64, error) {
	store, collection, err := c.kind.target(ctx)
	if err != nil {
		return 0, err
	}
	n, err := store.Count(ctx, collection, c.query, opts)
	if err != nil {
		return 0, &core.StoreError{Op: "count", Collection: collection, Query: c.query, Err: err}
	}
	return n, nil
}

// ToJSON renders the matching models as a JSON array, each model as
// produced by Model.MarshalJSON.
func (c *Cursor) ToJSON(ctx context.Context) (string, error) {
	var b strings.Builder
	b.WriteByte('[')
	first := true
	err := c.Each(ctx, func(m *Model) error {
		data, err := m.MarshalJSON()
		if err != nil {
			return err
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		b.Write(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	b.WriteByte(']')
	return b.String(), nil
}
