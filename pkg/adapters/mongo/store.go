// Package mongo implements core.Store on top of the official MongoDB driver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/aretw0/strata/pkg/core"
)

// Store is a handle on one database of a MongoDB deployment.
type Store struct {
	client   *mongo.Client
	db       *mongo.Database
	server   string
	database string
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for driver level diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Dial creates a client for server (a mongodb:// URI) bound to database.
// The driver connects lazily: no round trip happens before the first operation.
func Dial(ctx context.Context, server, database string, opts ...Option) (*Store, error) {
	if !strings.HasPrefix(server, "mongodb://") && !strings.HasPrefix(server, "mongodb+srv://") {
		return nil, fmt.Errorf("not a mongodb server address: %q", server)
	}
	if database == "" {
		return nil, errors.New("database name is empty")
	}

	client, err := mongo.Connect(options.Client().ApplyURI(server))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongodb client: %w", err)
	}

	s := &Store{
		client:   client,
		db:       client.Database(database),
		server:   server,
		database: database,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger.Debug("mongodb client created", "server", server, "database", database)
	return s, nil
}

// NewDialer adapts Dial to the connection resolver's dialer signature.
func NewDialer(opts ...Option) func(ctx context.Context, server, database string) (core.Store, error) {
	return func(ctx context.Context, server, database string) (core.Store, error) {
		return Dial(ctx, server, database, opts...)
	}
}

var _ core.Store = (*Store)(nil)

func (s *Store) FindOne(ctx context.Context, collection string, filter bson.D) (bson.D, error) {
	var doc bson.D
	err := s.db.Collection(collection).FindOne(ctx, orEmpty(filter)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) Find(ctx context.Context, collection string, filter bson.D, opts core.FindOptions) (core.NativeCursor, error) {
	cur, err := s.db.Collection(collection).Find(ctx, orEmpty(filter), findOptions(opts))
	if err != nil {
		return nil, err
	}
	return &cursor{cur: cur}, nil
}

func (s *Store) Count(ctx context.Context, collection string, filter bson.D, opts core.FindOptions) (int64, error) {
	co := options.Count()
	if opts.Limit > 0 {
		co.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		co.SetSkip(opts.Skip)
	}
	return s.db.Collection(collection).CountDocuments(ctx, orEmpty(filter), co)
}

// Update sends update to the server as given. Operator documents go through
// updateOne/updateMany, anything else replaces the first match.
func (s *Store) Update(ctx context.Context, collection string, filter bson.D, update any, opts core.UpdateOptions) (core.UpdateResult, error) {
	coll := s.db.Collection(collection)
	filter = orEmpty(filter)

	var (
		res *mongo.UpdateResult
		err error
	)
	doc, isDoc := core.ToDocument(update)
	switch {
	case isDoc && !isOperatorUpdate(doc):
		if opts.Multi {
			return core.UpdateResult{}, errors.New("multi update requires update operators")
		}
		res, err = coll.ReplaceOne(ctx, filter, update, options.Replace().SetUpsert(opts.Upsert))
	case opts.Multi:
		res, err = coll.UpdateMany(ctx, filter, update, options.UpdateMany().SetUpsert(opts.Upsert))
	default:
		res, err = coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(opts.Upsert))
	}
	if err != nil {
		return core.UpdateResult{}, err
	}
	return core.UpdateResult{
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
		UpsertedID:    res.UpsertedID,
	}, nil
}

func (s *Store) Save(ctx context.Context, collection string, doc bson.D) error {
	id, ok := core.Lookup(doc, core.IDField)
	if !ok {
		return fmt.Errorf("document has no %s", core.IDField)
	}
	_, err := s.db.Collection(collection).ReplaceOne(ctx,
		bson.D{{Key: core.IDField, Value: id}}, doc,
		options.Replace().SetUpsert(true))
	return err
}

// Command runs command against the database. The legacy "text" command,
// removed from modern servers, is answered with a $text query of the same
// shape.
func (s *Store) Command(ctx context.Context, command bson.D) (bson.D, error) {
	if len(command) == 0 {
		return nil, errors.New("empty command")
	}
	if command[0].Key == "text" {
		return s.text(ctx, command)
	}

	var res bson.D
	if err := s.db.RunCommand(ctx, command).Decode(&res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Store) text(ctx context.Context, command bson.D) (bson.D, error) {
	q, err := parseTextCommand(command)
	if err != nil {
		return nil, err
	}

	fo := options.Find().
		SetProjection(bson.D{{Key: scoreField, Value: bson.D{{Key: "$meta", Value: "textScore"}}}}).
		SetSort(bson.D{{Key: scoreField, Value: bson.D{{Key: "$meta", Value: "textScore"}}}})
	if q.limit > 0 {
		fo.SetLimit(q.limit)
	}

	cur, err := s.db.Collection(q.collection).Find(ctx, q.filter(), fo)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []bson.D
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	s.logger.Debug("text search", "collection", q.collection, "search", q.search, "n", len(docs))
	return textResponse(docs), nil
}

func (s *Store) Drop(ctx context.Context) error {
	return s.db.Drop(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies the server is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func orEmpty(filter bson.D) bson.D {
	if filter == nil {
		return bson.D{}
	}
	return filter
}

func isOperatorUpdate(update bson.D) bool {
	return len(update) > 0 && strings.HasPrefix(update[0].Key, "$")
}

func findOptions(opts core.FindOptions) *options.FindOptionsBuilder {
	fo := options.Find()
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if len(opts.Sort) > 0 {
		fo.SetSort(opts.Sort)
	}
	return fo
}

// cursor adapts *mongo.Cursor to core.NativeCursor.
type cursor struct {
	cur *mongo.Cursor
}

func (c *cursor) Next(ctx context.Context) bool { return c.cur.Next(ctx) }

func (c *cursor) Current() (bson.D, error) {
	var doc bson.D
	if err := c.cur.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *cursor) Err() error { return c.cur.Err() }

func (c *cursor) Close(ctx context.Context) error { return c.cur.Close(ctx) }
