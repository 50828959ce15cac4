// Package lifecycle exposes document change feeds as lifecycle sources, so
// they can be supervised next to other event sources of an application.
package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/strata/pkg/core"
)

// SourceOption narrows what a change source forwards.
type SourceOption func(*changeSource)

// WithCollections forwards only events of the named collections.
func WithCollections(names ...string) SourceOption {
	return func(s *changeSource) {
		if s.collections == nil {
			s.collections = make(map[string]bool, len(names))
		}
		for _, n := range names {
			s.collections[n] = true
		}
	}
}

// WithTypes forwards only events of the given types.
func WithTypes(types ...core.EventType) SourceOption {
	return func(s *changeSource) {
		if s.types == nil {
			s.types = make(map[core.EventType]bool, len(types))
		}
		for _, t := range types {
			s.types[t] = true
		}
	}
}

type changeSource struct {
	events      <-chan core.Event
	out         chan lifecycle.Event
	collections map[string]bool
	types       map[core.EventType]bool
	started     atomic.Bool
}

// NewSource wraps a change feed, typically from core.Watchable.Watch,
// as a lifecycle.Source. core.Event satisfies lifecycle.Event.
func NewSource(events <-chan core.Event, opts ...SourceOption) lifecycle.Source {
	s := &changeSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *changeSource) Events() <-chan lifecycle.Event {
	return s.out
}

// ErrAlreadyStarted is returned by a second Start of the same source.
var ErrAlreadyStarted = errors.New("change source already started")

func (s *changeSource) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				if !s.accepts(e) {
					continue
				}
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}

func (s *changeSource) accepts(e core.Event) bool {
	if s.collections != nil && !s.collections[e.Collection] {
		return false
	}
	if s.types != nil && !s.types[e.Type] {
		return false
	}
	return true
}
