// Package record is the active-record layer: it resolves model kinds to
// collections, turns loose query input into store conditions, runs them and
// hydrates the raw documents into models.
package record

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/aretw0/strata/pkg/core"
)

// HandleProvider hands out the live store handle, typically a
// *connection.Resolver.
type HandleProvider interface {
	Handle(ctx context.Context) (core.Store, error)
}

// Engine binds model kinds to a store handle.
type Engine struct {
	handles  HandleProvider
	registry *Registry
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates an engine over handles. A nil registry starts empty.
func NewEngine(handles HandleProvider, registry *Registry, opts ...Option) *Engine {
	if registry == nil {
		registry = NewRegistry()
	}
	e := &Engine{
		handles:  handles,
		registry: registry,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the schema registry of the engine.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// Kind returns the query surface of a registered model.
func (e *Engine) Kind(name string) (*Kind, error) {
	if !e.registry.Has(name) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, name)
	}
	return &Kind{engine: e, name: name}, nil
}

// MustKind is like Kind but panics for unregistered models.
func (e *Engine) MustKind(name string) *Kind {
	k, err := e.Kind(name)
	if err != nil {
		panic(err)
	}
	return k
}

// Kind is the model-facing surface of one registered schema.
type Kind struct {
	engine *Engine
	name   string
}

// Name returns the model name.
func (k *Kind) Name() string {
	return k.name
}

// Collection returns the collection the kind reads and writes.
func (k *Kind) Collection() (string, error) {
	return k.engine.registry.CollectionName(k.name)
}

func (k *Kind) target(ctx context.Context) (core.Store, string, error) {
	collection, err := k.Collection()
	if err != nil {
		return nil, "", err
	}
	store, err := k.engine.handles.Handle(ctx)
	if err != nil {
		return nil, "", err
	}
	return store, collection, nil
}

// FindOne returns the first document matching query, or nil when none does.
// query is anything core.Normalize accepts: a condition document, a 24 hex
// digit identifier string or an ObjectID.
func (k *Kind) FindOne(ctx context.Context, query any) (*Model, error) {
	cond, err := core.Normalize(query)
	if err != nil {
		return nil, err
	}
	store, collection, err := k.target(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := store.FindOne(ctx, collection, cond)
	if err != nil {
		return nil, &core.StoreError{Op: "findOne", Collection: collection, Query: cond, Err: err}
	}
	k.engine.logger.Debug("findOne", "collection", collection, "query", cond, "found", doc != nil)
	if doc == nil {
		return nil, nil
	}
	return k.hydrate(doc), nil
}

// FindOneOrFail is FindOne failing with core.ErrNotFound when nothing matches.
func (k *Kind) FindOneOrFail(ctx context.Context, query any) (*Model, error) {
	m, err := k.FindOne(ctx, query)
	if err != nil {
		return nil, err
	}
	if m == nil {
		collection, _ := k.Collection()
		return nil, fmt.Errorf("%w in %s", core.ErrNotFound, collection)
	}
	return m, nil
}

// Find describes the documents matching query. The query is validated now;
// the store is only reached when the cursor is consumed.
func (k *Kind) Find(query any) (*Cursor, error) {
	cond, err := core.Normalize(query)
	if err != nil {
		return nil, err
	}
	return &Cursor{kind: k, query: cond}, nil
}

// UpdateOption configures Update.
type UpdateOption func(*core.UpdateOptions)

// Multi updates every matching document instead of the first.
func Multi() UpdateOption {
	return func(o *core.UpdateOptions) { o.Multi = true }
}

// Upsert inserts a document built from the query when nothing matches.
func Upsert() UpdateOption {
	return func(o *core.UpdateOptions) { o.Upsert = true }
}

// Update normalizes query and hands update to the store unchanged. Without
// options a single document is updated.
func (k *Kind) Update(ctx context.Context, query, update any, opts ...UpdateOption) (core.UpdateResult, error) {
	cond, err := core.Normalize(query)
	if err != nil {
		return core.UpdateResult{}, err
	}
	var o core.UpdateOptions
	for _, opt := range opts {
		opt(&o)
	}
	store, collection, err := k.target(ctx)
	if err != nil {
		return core.UpdateResult{}, err
	}

	res, err := store.Update(ctx, collection, cond, update, o)
	if err != nil {
		return res, &core.StoreError{Op: "update", Collection: collection, Query: cond, Err: err}
	}
	k.engine.logger.Debug("update", "collection", collection, "query", cond,
		"matched", res.MatchedCount, "modified", res.ModifiedCount, "upserted", res.UpsertedCount)
	return res, nil
}

// SearchOption configures TextSearch.
type SearchOption func(*searchOptions)

type searchOptions struct {
	limit int64
}

// Limit caps the number of search results.
func Limit(n int64) SearchOption {
	return func(o *searchOptions) { o.limit = n }
}

// TextSearch runs a full-text search over the kind's collection and returns
// the matching models in relevance order. filter, when not nil, restricts the
// candidates and accepts the same input as FindOne.
func (k *Kind) TextSearch(ctx context.Context, search string, filter any, opts ...SearchOption) ([]*Model, error) {
	var o searchOptions
	for _, opt := range opts {
		opt(&o)
	}
	var cond bson.D
	if filter != nil {
		var err error
		if cond, err = core.Normalize(filter); err != nil {
			return nil, err
		}
	}
	store, collection, err := k.target(ctx)
	if err != nil {
		return nil, err
	}

	cmd := bson.D{
		{Key: "text", Value: collection},
		{Key: "search", Value: search},
	}
	if filter != nil {
		cmd = append(cmd, bson.E{Key: "filter", Value: cond})
	}
	if o.limit > 0 {
		cmd = append(cmd, bson.E{Key: "limit", Value: o.limit})
	}

	res, err := store.Command(ctx, cmd)
	if err == nil {
		err = commandError(res)
	}
	if err != nil {
		return nil, &core.StoreError{Op: "text", Collection: collection, Query: cond, Err: err}
	}

	models := []*Model{}
	raw, ok := core.Lookup(res, "results")
	if !ok || raw == nil {
		return models, nil
	}
	results, ok := raw.(bson.A)
	if !ok {
		return nil, &core.StoreError{Op: "text", Collection: collection, Query: cond,
			Err: fmt.Errorf("unexpected results of type %T", raw)}
	}
	for _, r := range results {
		entry, ok := core.ToDocument(r)
		if !ok {
			continue
		}
		obj, ok := core.Lookup(entry, "obj")
		if !ok {
			continue
		}
		m, err := k.Hydrate(obj)
		if err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	k.engine.logger.Debug("text", "collection", collection, "search", search, "n", len(models))
	return models, nil
}

// commandError turns an {ok: 0, errmsg: ...} reply into an error.
func commandError(res bson.D) error {
	ok, found := core.Lookup(res, "ok")
	if !found {
		return nil
	}
	switch v := ok.(type) {
	case float64:
		if v != 0 {
			return nil
		}
	case int32:
		if v != 0 {
			return nil
		}
	case int64:
		if v != 0 {
			return nil
		}
	case bool:
		if v {
			return nil
		}
	default:
		return nil
	}
	msg, _ := core.Lookup(res, "errmsg")
	if s, isString := msg.(string); isString && s != "" {
		return errors.New(s)
	}
	return errors.New("command failed")
}

// New creates an unsaved model of the kind.
func (k *Kind) New(fields ...bson.E) *Model {
	m := &Model{kind: k}
	for _, f := range fields {
		m.Set(f.Key, f.Value)
	}
	return m
}

// Hydrate builds a model from a raw document (bson.D, bson.M,
// map[string]any or bson.Raw), field for field.
func (k *Kind) Hydrate(raw any) (*Model, error) {
	doc, ok := core.ToDocument(raw)
	if !ok {
		return nil, fmt.Errorf("cannot hydrate a model from %T", raw)
	}
	return k.hydrate(doc), nil
}

func (k *Kind) hydrate(doc bson.D) *Model {
	fields := make(bson.D, len(doc))
	copy(fields, doc)
	return &Model{kind: k, fields: fields}
}

// Save inserts m, or replaces the stored document with the same _id.
// A model without _id gets a fresh ObjectID, assigned only once the store
// accepted the document.
func (k *Kind) Save(ctx context.Context, m *Model) error {
	store, collection, err := k.target(ctx)
	if err != nil {
		return err
	}

	doc := m.Document()
	id, hasID := core.Lookup(doc, core.IDField)
	if !hasID {
		id = bson.NewObjectID()
		doc = append(bson.D{{Key: core.IDField, Value: id}}, doc...)
	}
	if err := store.Save(ctx, collection, doc); err != nil {
		return &core.StoreError{Op: "save", Collection: collection,
			Query: bson.D{{Key: core.IDField, Value: id}}, Err: err}
	}
	if !hasID {
		m.Set(core.IDField, id)
	}
	m.kind = k
	k.engine.logger.Debug("save", "collection", collection, "id", m.ID())
	return nil
}
