package core

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Common errors.
var (
	// ErrConfigurationMissing is returned when a named connection has no configuration entry.
	ErrConfigurationMissing = errors.New("connection configuration missing")
	// ErrNotConfigured is returned when a descriptor is requested for an explicitly addressed connection.
	ErrNotConfigured = errors.New("connection was not resolved from configuration")
	// ErrInvalidQueryArgument is returned when a query argument cannot be coerced into a condition.
	ErrInvalidQueryArgument = errors.New("invalid query argument")
	// ErrNotFound is returned by the *OrFail lookups when no document matches.
	ErrNotFound = errors.New("document not found")
)

// StoreError wraps a failure surfaced by the underlying store with the
// operation that was attempted.
type StoreError struct {
	Op         string
	Collection string
	Query      bson.D
	Err        error
}

func (e *StoreError) Error() string {
	if e.Collection == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s on %q: %v", e.Op, e.Collection, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
