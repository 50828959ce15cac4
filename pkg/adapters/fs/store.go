package fs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/aretw0/strata/pkg/core"
)

// Store implements core.Store on the local filesystem.
//
// Layout:
//
//	{Root}/{Database}/{collection}/{id}.json
//	{Root}/{Database}/{SystemDir}/index.json   (natural order of documents)
type Store struct {
	Path        string // {Root}/{Database}
	config      Config
	cache       *cache
	serializers map[string]Serializer

	mu sync.RWMutex

	watchMu  sync.Mutex
	watchers int
	pending  map[string]core.EventType // writes awaiting the watcher, by relative path
}

// Config holds the configuration for the filesystem store.
type Config struct {
	Root         string
	Database     string
	Format       string // extension of new documents: ".json" (default) or ".yaml"
	SystemDir    string // default ".strata"
	Logger       *slog.Logger
	ErrorHandler func(error) // receives watcher failures
	Serializers  map[string]Serializer
}

// NewStore creates the database directory if needed and loads the index.
func NewStore(config Config) (*Store, error) {
	if config.Root == "" {
		return nil, fmt.Errorf("fs store has no root directory")
	}
	if err := validName(config.Database); err != nil {
		return nil, fmt.Errorf("invalid database name: %w", err)
	}
	if config.Format == "" {
		config.Format = ".json"
	}
	if config.SystemDir == "" {
		config.SystemDir = ".strata"
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.DiscardHandler)
	}

	serializers := DefaultSerializers()
	for ext, s := range config.Serializers {
		serializers[ext] = s
	}
	if _, ok := serializers[config.Format]; !ok {
		return nil, fmt.Errorf("no serializer registered for %s", config.Format)
	}

	path := filepath.Join(config.Root, config.Database)
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	s := &Store{
		Path:        path,
		config:      config,
		cache:       newCache(path, config.SystemDir),
		serializers: serializers,
		pending:     make(map[string]core.EventType),
	}
	if err := s.cache.Load(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewDialer returns a dialer opening "file://{root}" servers with base as
// the template configuration.
func NewDialer(base Config) func(ctx context.Context, server, database string) (core.Store, error) {
	return func(ctx context.Context, server, database string) (core.Store, error) {
		root, ok := strings.CutPrefix(server, "file://")
		if !ok {
			return nil, fmt.Errorf("fs store cannot dial %q", server)
		}
		cfg := base
		cfg.Root = root
		cfg.Database = database
		return NewStore(cfg)
	}
}

var _ core.Store = (*Store)(nil)
var _ core.Watchable = (*Store)(nil)

// FindOne returns the first document of collection, in natural order, matching filter.
func (s *Store) FindOne(ctx context.Context, collection string, filter bson.D) (bson.D, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, err := s.load(ctx, collection)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		ok, err := matches(d.doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			return d.doc, nil
		}
	}
	return nil, nil
}

// Find returns a cursor over the matching documents of collection.
func (s *Store) Find(ctx context.Context, collection string, filter bson.D, opts core.FindOptions) (core.NativeCursor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs, err := s.query(ctx, collection, filter, opts)
	if err != nil {
		return nil, err
	}
	return &sliceCursor{docs: docs}, nil
}

// Count returns the number of matching documents, honoring Limit and Skip when set.
func (s *Store) Count(ctx context.Context, collection string, filter bson.D, opts core.FindOptions) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	opts.Sort = nil
	docs, err := s.query(ctx, collection, filter, opts)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

// Update applies update to the first (or, with Multi, every) matching document.
func (s *Store) Update(ctx context.Context, collection string, filter bson.D, update any, opts core.UpdateOptions) (core.UpdateResult, error) {
	var result core.UpdateResult

	upd, ok := core.ToDocument(update)
	if !ok {
		return result, fmt.Errorf("update must be a document, got %T", update)
	}
	if len(upd) == 0 {
		return result, fmt.Errorf("update document is empty")
	}
	if opts.Multi && !isOperatorUpdate(upd) {
		return result, fmt.Errorf("multi update requires update operators, not a replacement")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.load(ctx, collection)
	if err != nil {
		return result, err
	}

	onMatch := withoutInsertOnly(upd)
	for _, d := range docs {
		ok, err := matches(d.doc, filter)
		if err != nil {
			return result, err
		}
		if !ok {
			continue
		}
		result.MatchedCount++
		if len(onMatch) == 0 {
			// only $setOnInsert: a match is left untouched
			if !opts.Multi {
				break
			}
			continue
		}

		next, changed, err := applyUpdate(d.doc, onMatch)
		if err != nil {
			return result, err
		}
		if changed {
			if err := s.write(collection, d.path, next); err != nil {
				return result, err
			}
			result.ModifiedCount++
		}
		if !opts.Multi {
			break
		}
	}

	if result.MatchedCount == 0 && opts.Upsert {
		doc, _, err := applyUpdate(upsertSeed(filter), upd)
		if err != nil {
			return result, err
		}
		if _, ok := core.Lookup(doc, core.IDField); !ok {
			doc = append(bson.D{{Key: core.IDField, Value: bson.NewObjectID()}}, doc...)
		}
		if err := s.save(collection, doc); err != nil {
			return result, err
		}
		id, _ := core.Lookup(doc, core.IDField)
		result.UpsertedCount = 1
		result.UpsertedID = id
	}

	if result.ModifiedCount > 0 || result.UpsertedCount > 0 {
		if err := s.cache.Save(); err != nil {
			return result, err
		}
	}
	return result, nil
}

// withoutInsertOnly drops $setOnInsert, which only applies to upserted documents.
func withoutInsertOnly(update bson.D) bson.D {
	if !isOperatorUpdate(update) {
		return update
	}
	out := make(bson.D, 0, len(update))
	for _, e := range update {
		if e.Key != "$setOnInsert" {
			out = append(out, e)
		}
	}
	return out
}

// Save inserts doc or replaces the document sharing its _id.
func (s *Store) Save(ctx context.Context, collection string, doc bson.D) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.save(collection, doc); err != nil {
		return err
	}
	return s.cache.Save()
}

func (s *Store) save(collection string, doc bson.D) error {
	if err := validName(collection); err != nil {
		return fmt.Errorf("invalid collection name: %w", err)
	}
	id, ok := core.Lookup(doc, core.IDField)
	if !ok {
		return fmt.Errorf("document has no %s", core.IDField)
	}
	name, err := fileName(id)
	if err != nil {
		return err
	}

	dir := filepath.Join(s.Path, collection)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create collection directory: %w", err)
	}

	path := s.existingFile(dir, name)
	if path == "" {
		path = filepath.Join(dir, name+s.config.Format)
	}
	return s.write(collection, path, doc)
}

func (s *Store) write(collection, path string, doc bson.D) error {
	serializer, ok := s.serializers[filepath.Ext(path)]
	if !ok {
		return fmt.Errorf("no serializer registered for %s", filepath.Ext(path))
	}
	data, err := serializer.Serialize(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}

	rel := s.relPath(path)
	existed := s.cache.Has(rel)
	if existed {
		s.notePending(rel, core.EventModify)
	} else {
		s.notePending(rel, core.EventCreate)
	}

	if err := writeFileAtomic(path, data, 0644); err != nil {
		return err
	}
	s.cache.Touch(rel, time.Now())
	s.config.Logger.Debug("document written", "collection", collection, "path", rel)
	return nil
}

// Command runs one of the commands the filesystem store understands:
// text, count, drop, listCollections and ping.
func (s *Store) Command(ctx context.Context, command bson.D) (bson.D, error) {
	if len(command) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	switch command[0].Key {
	case "ping":
		return bson.D{{Key: "ok", Value: 1.0}}, nil

	case "text":
		q, err := parseTextCommand(command)
		if err != nil {
			return nil, err
		}
		s.mu.RLock()
		docs, err := s.query(ctx, q.collection, q.filter, core.FindOptions{})
		s.mu.RUnlock()
		if err != nil {
			return nil, err
		}
		return textResponse(q.rank(docs), len(docs)), nil

	case "count":
		collection, _ := command[0].Value.(string)
		var filter bson.D
		if f, ok := core.Lookup(command, "query"); ok && f != nil {
			filter, _ = core.ToDocument(f)
		}
		n, err := s.Count(ctx, collection, filter, core.FindOptions{})
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: "n", Value: n}, {Key: "ok", Value: 1.0}}, nil

	case "drop":
		collection, _ := command[0].Value.(string)
		if err := s.dropCollection(collection); err != nil {
			return nil, err
		}
		return bson.D{{Key: "ns", Value: s.config.Database + "." + collection}, {Key: "ok", Value: 1.0}}, nil

	case "listCollections":
		names, err := s.Collections()
		if err != nil {
			return nil, err
		}
		batch := make(bson.A, 0, len(names))
		for _, n := range names {
			batch = append(batch, bson.D{{Key: "name", Value: n}, {Key: "type", Value: "collection"}})
		}
		return bson.D{
			{Key: "cursor", Value: bson.D{{Key: "firstBatch", Value: batch}}},
			{Key: "ok", Value: 1.0},
		}, nil
	}
	return nil, fmt.Errorf("no such command: %s", command[0].Key)
}

// Collections lists the collection names of the database.
func (s *Store) Collections() ([]string, error) {
	entries, err := os.ReadDir(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && validName(e.Name()) == nil {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) dropCollection(collection string) error {
	if err := validName(collection); err != nil {
		return fmt.Errorf("invalid collection name: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(s.Path, collection)
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, e := range entries {
		s.cache.Delete(s.relPath(filepath.Join(dir, e.Name())))
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return s.cache.Save()
}

// Drop removes the whole database directory.
func (s *Store) Drop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.RemoveAll(s.Path); err != nil {
		return fmt.Errorf("failed to drop database: %w", err)
	}
	s.cache.Reset()
	return os.MkdirAll(s.Path, 0755)
}

// Close implements core.Store. The filesystem store holds no connections.
func (s *Store) Close(ctx context.Context) error {
	return nil
}

type storedDoc struct {
	path string
	doc  bson.D
}

// load reads every document of collection in natural order.
// Callers hold s.mu.
func (s *Store) load(ctx context.Context, collection string) ([]storedDoc, error) {
	if err := validName(collection); err != nil {
		return nil, fmt.Errorf("invalid collection name: %w", err)
	}

	dir := filepath.Join(s.Path, collection)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read collection %s: %w", collection, err)
	}

	rels := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || isTempFile(e.Name()) {
			continue
		}
		if _, ok := s.serializers[filepath.Ext(e.Name())]; !ok {
			continue
		}
		rels = append(rels, collection+"/"+e.Name())
	}
	s.cache.Order(rels)

	docs := make([]storedDoc, 0, len(rels))
	for _, rel := range rels {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(s.Path, filepath.FromSlash(rel))
		doc, err := s.readFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // removed since listing
			}
			return nil, fmt.Errorf("failed to read %s: %w", rel, err)
		}
		docs = append(docs, storedDoc{path: path, doc: doc})
	}
	return docs, nil
}

// query returns the documents matching filter after sort, skip and limit.
// Callers hold s.mu.
func (s *Store) query(ctx context.Context, collection string, filter bson.D, opts core.FindOptions) ([]bson.D, error) {
	stored, err := s.load(ctx, collection)
	if err != nil {
		return nil, err
	}

	var docs []bson.D
	for _, d := range stored {
		ok, err := matches(d.doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			docs = append(docs, d.doc)
		}
	}

	if len(opts.Sort) > 0 {
		sort.SliceStable(docs, func(i, j int) bool {
			return sortKeyLess(docs[i], docs[j], opts.Sort)
		})
	}
	if opts.Skip > 0 {
		if opts.Skip >= int64(len(docs)) {
			return nil, nil
		}
		docs = docs[opts.Skip:]
	}
	if opts.Limit > 0 && opts.Limit < int64(len(docs)) {
		docs = docs[:opts.Limit]
	}
	return docs, nil
}

func (s *Store) readFile(path string) (bson.D, error) {
	serializer, ok := s.serializers[filepath.Ext(path)]
	if !ok {
		return nil, fmt.Errorf("no serializer registered for %s", filepath.Ext(path))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return serializer.Parse(bytes.NewReader(data))
}

func (s *Store) existingFile(dir, name string) string {
	for ext := range s.serializers {
		path := filepath.Join(dir, name+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func (s *Store) relPath(path string) string {
	rel, err := filepath.Rel(s.Path, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}

// fileName derives the base file name of a document from its identifier.
func fileName(id any) (string, error) {
	switch v := id.(type) {
	case bson.ObjectID:
		return v.Hex(), nil
	case string:
		if err := validName(v); err != nil {
			return "", fmt.Errorf("invalid string %s: %w", core.IDField, err)
		}
		return v, nil
	default:
		return "", fmt.Errorf("unsupported %s type %T", core.IDField, id)
	}
}

func validName(name string) error {
	switch {
	case name == "":
		return errors.New("name is empty")
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("%q must not start with a dot", name)
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("%q must not contain path separators", name)
	}
	return nil
}

// sliceCursor iterates over documents already read from disk.
type sliceCursor struct {
	docs []bson.D
	pos  int
	err  error
}

func (c *sliceCursor) Next(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if err := ctx.Err(); err != nil {
		c.err = err
		return false
	}
	if c.pos >= len(c.docs) {
		return false
	}
	c.pos++
	return true
}

func (c *sliceCursor) Current() (bson.D, error) {
	if c.pos == 0 || c.pos > len(c.docs) {
		return nil, errors.New("cursor is not positioned on a document")
	}
	return c.docs[c.pos-1], nil
}

func (c *sliceCursor) Err() error {
	return c.err
}

func (c *sliceCursor) Close(ctx context.Context) error {
	c.docs = nil
	return nil
}
