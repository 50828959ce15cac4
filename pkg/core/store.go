package core

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Store defines the contract of the document store strata translates queries for.
// Adhering to this interface keeps the query engine independent of the
// underlying storage mechanism (MongoDB, filesystem, ...).
type Store interface {
	// FindOne returns the first document matching filter, or nil when there is none.
	FindOne(ctx context.Context, collection string, filter bson.D) (bson.D, error)

	// Find returns a native cursor over the documents matching filter.
	Find(ctx context.Context, collection string, filter bson.D, opts FindOptions) (NativeCursor, error)

	// Count returns the number of documents matching filter.
	// Limit and Skip in opts are honored when set.
	Count(ctx context.Context, collection string, filter bson.D, opts FindOptions) (int64, error)

	// Update applies update to the documents matching filter.
	// An update without operator keys replaces the first match.
	Update(ctx context.Context, collection string, filter bson.D, update any, opts UpdateOptions) (UpdateResult, error)

	// Save inserts doc, or replaces the document sharing its _id.
	Save(ctx context.Context, collection string, doc bson.D) error

	// Command runs a database command and returns the raw response.
	Command(ctx context.Context, command bson.D) (bson.D, error)

	// Drop removes the whole database.
	Drop(ctx context.Context) error

	// Close releases the client behind the handle.
	Close(ctx context.Context) error
}

// Watchable defines an interface for stores that can stream change events.
type Watchable interface {
	// Watch streams events for documents whose "collection/id" path matches pattern.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}

// NativeCursor is the store-native iterator behind a record cursor.
// It follows the usual cursor pattern: Next advances, Current reads.
type NativeCursor interface {
	Next(ctx context.Context) bool
	Current() (bson.D, error)
	Err() error
	Close(ctx context.Context) error
}

// FindOptions configures a multi-document lookup.
type FindOptions struct {
	Limit int64  // 0 = unlimited
	Skip  int64  // 0 = none
	Sort  bson.D // field -> 1 | -1
}

// UpdateOptions configures an update.
type UpdateOptions struct {
	Multi  bool
	Upsert bool
}

// UpdateResult is the store's raw report of an update.
type UpdateResult struct {
	MatchedCount  int64 `json:"matched" bson:"matched"`
	ModifiedCount int64 `json:"modified" bson:"modified"`
	UpsertedCount int64 `json:"upserted" bson:"upserted"`
	UpsertedID    any   `json:"upserted_id,omitempty" bson:"upserted_id,omitempty"`
}

// Lookup returns the value stored under key in doc.
func Lookup(doc bson.D, key string) (any, bool) {
	for _, e := range doc {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}
