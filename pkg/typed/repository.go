// Package typed offers struct-typed access to a record kind: documents are
// decoded into T through its bson struct tags.
package typed

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/aretw0/strata/pkg/core"
	"github.com/aretw0/strata/pkg/record"
)

// DocumentModel is a typed view of a stored document.
type DocumentModel[T any] struct {
	ID    string   // 24 hex digits (or the string _id); empty until saved
	Data  T        // The document fields, _id excluded
	Saver Saver[T] // Active Record reference interface
}

// Saver is implemented by whatever can persist a typed document.
type Saver[T any] interface {
	Save(ctx context.Context, doc *DocumentModel[T]) error
}

// Save persists the document using the attached saver.
func (d *DocumentModel[T]) Save(ctx context.Context) error {
	if d.Saver == nil {
		return fmt.Errorf("document is detached (missing Saver)")
	}
	return d.Saver.Save(ctx, d)
}

// Repository wraps a record.Kind to provide type-safe access.
type Repository[T any] struct {
	kind *record.Kind
}

// NewRepository creates a type-safe wrapper around kind.
func NewRepository[T any](kind *record.Kind) *Repository[T] {
	return &Repository[T]{kind: kind}
}

// Kind returns the wrapped kind.
func (r *Repository[T]) Kind() *record.Kind {
	return r.kind
}

// Save persists a typed document. A document without ID gets a fresh
// identifier, written back to doc.ID.
func (r *Repository[T]) Save(ctx context.Context, doc *DocumentModel[T]) error {
	data, err := bson.Marshal(doc.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal typed data: %w", err)
	}
	var fields bson.D
	if err := bson.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("failed to convert typed data to a document: %w", err)
	}

	m := r.kind.New()
	switch {
	case doc.ID == "":
	case core.IsIdentifier(doc.ID):
		m.Set(core.AliasField, doc.ID)
	default:
		m.Set(core.IDField, doc.ID)
	}
	for _, f := range fields {
		if f.Key == core.IDField && doc.ID != "" {
			continue
		}
		m.Set(f.Key, f.Value)
	}

	if err := r.kind.Save(ctx, m); err != nil {
		return err
	}
	doc.ID = m.ID()
	if doc.Saver == nil {
		doc.Saver = r
	}
	return nil
}

// Get returns the first document matching query, or nil.
func (r *Repository[T]) Get(ctx context.Context, query any) (*DocumentModel[T], error) {
	m, err := r.kind.FindOne(ctx, query)
	if err != nil || m == nil {
		return nil, err
	}
	return fromModel(m, r)
}

// MustGet is Get failing with core.ErrNotFound when nothing matches.
func (r *Repository[T]) MustGet(ctx context.Context, query any) (*DocumentModel[T], error) {
	m, err := r.kind.FindOneOrFail(ctx, query)
	if err != nil {
		return nil, err
	}
	return fromModel(m, r)
}

// List returns every document matching query in store order.
func (r *Repository[T]) List(ctx context.Context, query any) ([]*DocumentModel[T], error) {
	cursor, err := r.kind.Find(query)
	if err != nil {
		return nil, err
	}
	models, err := cursor.All(ctx)
	if err != nil {
		return nil, err
	}
	return fromModels(models, r)
}

// Search runs a full-text search and decodes the results in relevance order.
func (r *Repository[T]) Search(ctx context.Context, text string, filter any, opts ...record.SearchOption) ([]*DocumentModel[T], error) {
	models, err := r.kind.TextSearch(ctx, text, filter, opts...)
	if err != nil {
		return nil, err
	}
	return fromModels(models, r)
}

// Update forwards to record.Kind.Update.
func (r *Repository[T]) Update(ctx context.Context, query, update any, opts ...record.UpdateOption) (core.UpdateResult, error) {
	return r.kind.Update(ctx, query, update, opts...)
}

func fromModels[T any](models []*record.Model, saver Saver[T]) ([]*DocumentModel[T], error) {
	result := make([]*DocumentModel[T], 0, len(models))
	for _, m := range models {
		doc, err := fromModel(m, saver)
		if err != nil {
			return nil, fmt.Errorf("failed to process document %s: %w", m.ID(), err)
		}
		result = append(result, doc)
	}
	return result, nil
}

func fromModel[T any](m *record.Model, saver Saver[T]) (*DocumentModel[T], error) {
	var data T
	if err := m.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode to target type failed: %w", err)
	}
	return &DocumentModel[T]{
		ID:    m.ID(),
		Data:  data,
		Saver: saver,
	}, nil
}
