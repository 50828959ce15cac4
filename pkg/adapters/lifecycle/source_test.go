package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/strata/pkg/core"
)

func TestSource_Filters(t *testing.T) {
	in := make(chan core.Event, 4)
	in <- core.Event{Type: core.EventCreate, Collection: "authors", ID: "a"}
	in <- core.Event{Type: core.EventDelete, Collection: "books", ID: "b"}
	in <- core.Event{Type: core.EventModify, Collection: "books", ID: "c"}
	close(in)

	src := NewSource(in, WithCollections("books"), WithTypes(core.EventModify))
	require.NoError(t, src.Start(context.Background()))

	var got []string
	timeout := time.After(3 * time.Second)
	for {
		select {
		case e, ok := <-src.Events():
			if !ok {
				assert.Equal(t, []string{"MODIFY books/c"}, got)
				return
			}
			got = append(got, e.String())
		case <-timeout:
			t.Fatal("source did not close")
		}
	}
}

func TestSource_StopsOnCancel(t *testing.T) {
	in := make(chan core.Event)
	ctx, cancel := context.WithCancel(context.Background())

	src := NewSource(in)
	require.NoError(t, src.Start(ctx))
	cancel()

	select {
	case _, ok := <-src.Events():
		assert.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("source did not close after cancel")
	}
}

func TestSource_StartTwice(t *testing.T) {
	in := make(chan core.Event)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := NewSource(in)
	require.NoError(t, src.Start(ctx))
	assert.ErrorIs(t, src.Start(ctx), ErrAlreadyStarted)

	cancel()
	select {
	case _, ok := <-src.Events():
		assert.False(t, ok)
	case <-time.After(3 * time.Second):
		t.Fatal("source did not close after cancel")
	}
}
