// Package core holds the domain types shared by every strata layer: identifiers,
// conditions, the store contract and the error taxonomy.
package core

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Identifier is the 12-byte globally unique primary key of a document.
type Identifier = bson.ObjectID

// IDField is the name of the authoritative identifier field.
const IDField = "_id"

// AliasField is the friendly, string-valued alias of IDField exposed on models.
const AliasField = "id"

// EventType represents the type of change in a store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change to a document in a watchable store.
type Event struct {
	Type       EventType
	Collection string
	ID         string
	Timestamp  int64 // Unix timestamp
}

// String implements fmt.Stringer (and lifecycle.Event).
func (e Event) String() string {
	return fmt.Sprintf("%s %s/%s", e.Type, e.Collection, e.ID)
}
