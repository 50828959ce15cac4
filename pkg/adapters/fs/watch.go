package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aretw0/lifecycle"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/strata/pkg/core"
)

// Watch streams change events for documents whose "collection/id" path
// matches pattern (doublestar syntax, e.g. "books/*" or "**"). The channel is
// closed when ctx is cancelled.
func (s *Store) Watch(ctx context.Context, pattern string) (<-chan core.Event, error) {
	if pattern == "" {
		pattern = "**"
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid watch pattern: %q", pattern)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(s.Path); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.Path, err)
	}
	collections, err := s.Collections()
	if err != nil {
		_ = watcher.Close()
		return nil, err
	}
	for _, c := range collections {
		if err := watcher.Add(filepath.Join(s.Path, c)); err != nil {
			_ = watcher.Close()
			return nil, fmt.Errorf("failed to watch collection %s: %w", c, err)
		}
	}

	s.watchMu.Lock()
	s.watchers++
	s.watchMu.Unlock()

	events := make(chan core.Event)
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(events)
		defer s.releaseWatcher()
		defer watcher.Close()
		return s.watchLoop(ctx, watcher, pattern, events)
	}, lifecycle.WithErrorHandler(s.reportWatchError))

	return events, nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, pattern string, events chan<- core.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			e, ok := s.translate(watcher, event, pattern)
			if !ok {
				continue
			}
			select {
			case events <- e:
			case <-ctx.Done():
				return nil
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			s.reportWatchError(err)
		}
	}
}

// translate maps a filesystem event onto a document event.
func (s *Store) translate(watcher *fsnotify.Watcher, event fsnotify.Event, pattern string) (core.Event, bool) {
	s.config.Logger.Debug("event received", "name", event.Name, "op", event.Op.String())

	rel := s.relPath(event.Name)
	collection, file, nested := strings.Cut(rel, "/")

	if !nested {
		// A new collection directory: start watching it.
		if event.Has(fsnotify.Create) && validName(collection) == nil {
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := watcher.Add(event.Name); err != nil {
					s.reportWatchError(fmt.Errorf("failed to watch collection %s: %w", collection, err))
				}
			}
		}
		return core.Event{}, false
	}
	if validName(collection) != nil || strings.Contains(file, "/") || isTempFile(file) {
		return core.Event{}, false
	}
	ext := filepath.Ext(file)
	if _, ok := s.serializers[ext]; !ok {
		return core.Event{}, false
	}
	id := strings.TrimSuffix(file, ext)

	if ok, _ := doublestar.Match(pattern, collection+"/"+id); !ok {
		return core.Event{}, false
	}

	var eType core.EventType
	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		eType = core.EventDelete
		s.takePending(rel)
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		// Atomic writes surface as a Create of the final name; the store
		// remembers whether it created or replaced the document.
		if t, ok := s.takePending(rel); ok {
			eType = t
		} else if event.Has(fsnotify.Create) {
			eType = core.EventCreate
		} else {
			eType = core.EventModify
		}
	default:
		return core.Event{}, false
	}

	return core.Event{
		Type:       eType,
		Collection: collection,
		ID:         id,
		Timestamp:  time.Now().Unix(),
	}, true
}

func (s *Store) notePending(rel string, t core.EventType) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	if s.watchers > 0 {
		s.pending[rel] = t
	}
}

func (s *Store) takePending(rel string) (core.EventType, bool) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	t, ok := s.pending[rel]
	delete(s.pending, rel)
	return t, ok
}

func (s *Store) releaseWatcher() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	s.watchers--
	if s.watchers == 0 {
		s.pending = make(map[string]core.EventType)
	}
}

func (s *Store) reportWatchError(err error) {
	s.config.Logger.Error("watcher error", "error", err)
	if s.config.ErrorHandler != nil {
		s.config.ErrorHandler(err)
	}
}
