package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/aretw0/strata/pkg/core"
)

var (
	firstID  = mustID("512ce86b98dee4a87a000000")
	secondID = mustID("512ce86b98dee4a87a000001")
)

func mustID(hex string) bson.ObjectID {
	id, err := bson.ObjectIDFromHex(hex)
	if err != nil {
		panic(err)
	}
	return id
}

func newTestStore(t *testing.T, format string) *Store {
	t.Helper()
	s, err := NewStore(Config{Root: t.TempDir(), Database: "library", Format: format})
	require.NoError(t, err)
	return s
}

func seedBooks(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.Save(ctx, "books", bson.D{
		{Key: "_id", Value: firstID},
		{Key: "title", Value: "My life"},
		{Key: "pages", Value: int32(120)},
	}))
	require.NoError(t, s.Save(ctx, "books", bson.D{
		{Key: "_id", Value: secondID},
		{Key: "title", Value: "My life, II"},
		{Key: "pages", Value: int32(80)},
	}))
}

func drain(t *testing.T, c core.NativeCursor) []bson.D {
	t.Helper()
	ctx := context.Background()
	var out []bson.D
	for c.Next(ctx) {
		doc, err := c.Current()
		require.NoError(t, err)
		out = append(out, doc)
	}
	require.NoError(t, c.Err())
	require.NoError(t, c.Close(ctx))
	return out
}

func titles(docs []bson.D) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		v, _ := core.Lookup(d, "title")
		s, _ := v.(string)
		out = append(out, s)
	}
	return out
}

func TestStore_SaveAndFindOne(t *testing.T) {
	s := newTestStore(t, "")
	seedBooks(t, s)
	ctx := context.Background()

	doc, err := s.FindOne(ctx, "books", bson.D{{Key: "_id", Value: firstID}})
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, bson.D{
		{Key: "_id", Value: firstID},
		{Key: "title", Value: "My life"},
		{Key: "pages", Value: int32(120)},
	}, doc)

	_, err = os.Stat(filepath.Join(s.Path, "books", firstID.Hex()+".json"))
	assert.NoError(t, err, "document file should exist")

	missing, err := s.FindOne(ctx, "books", bson.D{{Key: "title", Value: "Nope"}})
	require.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = s.FindOne(ctx, "magazines", nil)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_NaturalOrder(t *testing.T) {
	s := newTestStore(t, "")
	ctx := context.Background()

	// Inserted in reverse identifier order.
	require.NoError(t, s.Save(ctx, "books", bson.D{{Key: "_id", Value: secondID}, {Key: "title", Value: "B"}}))
	require.NoError(t, s.Save(ctx, "books", bson.D{{Key: "_id", Value: firstID}, {Key: "title", Value: "A"}}))

	c, err := s.Find(ctx, "books", nil, core.FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, titles(drain(t, c)))

	// Order survives a reopen.
	reopened, err := NewStore(Config{Root: filepath.Dir(s.Path), Database: "library"})
	require.NoError(t, err)
	c, err = reopened.Find(ctx, "books", nil, core.FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A"}, titles(drain(t, c)))

	// Replacing a document keeps its position.
	require.NoError(t, s.Save(ctx, "books", bson.D{{Key: "_id", Value: secondID}, {Key: "title", Value: "B2"}}))
	c, err = s.Find(ctx, "books", nil, core.FindOptions{})
	require.NoError(t, err)
	assert.Equal(t, []string{"B2", "A"}, titles(drain(t, c)))
}

func TestStore_FindOptions(t *testing.T) {
	s := newTestStore(t, "")
	seedBooks(t, s)
	ctx := context.Background()

	t.Run("Filter", func(t *testing.T) {
		c, err := s.Find(ctx, "books", bson.D{{Key: "pages", Value: bson.D{{Key: "$gt", Value: 100}}}}, core.FindOptions{})
		require.NoError(t, err)
		assert.Equal(t, []string{"My life"}, titles(drain(t, c)))
	})

	t.Run("Sort", func(t *testing.T) {
		c, err := s.Find(ctx, "books", nil, core.FindOptions{Sort: bson.D{{Key: "pages", Value: 1}}})
		require.NoError(t, err)
		assert.Equal(t, []string{"My life, II", "My life"}, titles(drain(t, c)))
	})

	t.Run("Skip and Limit", func(t *testing.T) {
		c, err := s.Find(ctx, "books", nil, core.FindOptions{Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"My life"}, titles(drain(t, c)))

		c, err = s.Find(ctx, "books", nil, core.FindOptions{Skip: 1})
		require.NoError(t, err)
		assert.Equal(t, []string{"My life, II"}, titles(drain(t, c)))

		c, err = s.Find(ctx, "books", nil, core.FindOptions{Skip: 5})
		require.NoError(t, err)
		assert.Empty(t, drain(t, c))
	})

	t.Run("Count", func(t *testing.T) {
		n, err := s.Count(ctx, "books", nil, core.FindOptions{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = s.Count(ctx, "books", nil, core.FindOptions{Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Invalid Operator", func(t *testing.T) {
		_, err := s.Find(ctx, "books", bson.D{{Key: "pages", Value: bson.D{{Key: "$near", Value: 1}}}}, core.FindOptions{})
		assert.Error(t, err)
	})
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("Single Document By Default", func(t *testing.T) {
		s := newTestStore(t, "")
		seedBooks(t, s)

		res, err := s.Update(ctx, "books", nil, bson.D{{Key: "$set", Value: bson.D{{Key: "read", Value: true}}}}, core.UpdateOptions{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.MatchedCount)
		assert.Equal(t, int64(1), res.ModifiedCount)

		n, err := s.Count(ctx, "books", bson.D{{Key: "read", Value: true}}, core.FindOptions{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("Multi", func(t *testing.T) {
		s := newTestStore(t, "")
		seedBooks(t, s)

		res, err := s.Update(ctx, "books", nil, bson.D{{Key: "$inc", Value: bson.D{{Key: "pages", Value: int32(10)}}}}, core.UpdateOptions{Multi: true})
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.ModifiedCount)

		doc, err := s.FindOne(ctx, "books", bson.D{{Key: "_id", Value: secondID}})
		require.NoError(t, err)
		pages, _ := core.Lookup(doc, "pages")
		assert.Equal(t, int32(90), pages)
	})

	t.Run("Unchanged Document Is Not Modified", func(t *testing.T) {
		s := newTestStore(t, "")
		seedBooks(t, s)

		res, err := s.Update(ctx, "books", bson.D{{Key: "_id", Value: firstID}}, bson.D{{Key: "$set", Value: bson.D{{Key: "title", Value: "My life"}}}}, core.UpdateOptions{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.MatchedCount)
		assert.Equal(t, int64(0), res.ModifiedCount)
	})

	t.Run("Replacement Keeps Identifier", func(t *testing.T) {
		s := newTestStore(t, "")
		seedBooks(t, s)

		_, err := s.Update(ctx, "books", bson.D{{Key: "_id", Value: firstID}}, bson.M{"title": "Rewritten"}, core.UpdateOptions{})
		require.NoError(t, err)

		doc, err := s.FindOne(ctx, "books", bson.D{{Key: "_id", Value: firstID}})
		require.NoError(t, err)
		assert.Equal(t, bson.D{{Key: "_id", Value: firstID}, {Key: "title", Value: "Rewritten"}}, doc)
	})

	t.Run("Upsert", func(t *testing.T) {
		s := newTestStore(t, "")

		res, err := s.Update(ctx, "books",
			bson.D{{Key: "title", Value: "Fresh"}},
			bson.D{
				{Key: "$set", Value: bson.D{{Key: "pages", Value: int32(1)}}},
				{Key: "$setOnInsert", Value: bson.D{{Key: "draft", Value: true}}},
			},
			core.UpdateOptions{Upsert: true})
		require.NoError(t, err)
		assert.Equal(t, int64(0), res.MatchedCount)
		assert.Equal(t, int64(1), res.UpsertedCount)
		id, ok := res.UpsertedID.(bson.ObjectID)
		require.True(t, ok)

		doc, err := s.FindOne(ctx, "books", bson.D{{Key: "_id", Value: id}})
		require.NoError(t, err)
		assert.Equal(t, bson.D{
			{Key: "_id", Value: id},
			{Key: "title", Value: "Fresh"},
			{Key: "pages", Value: int32(1)},
			{Key: "draft", Value: true},
		}, doc)
	})

	t.Run("Insert-Only Update Leaves Match Untouched", func(t *testing.T) {
		s := newTestStore(t, "")
		seedBooks(t, s)

		before, err := s.FindOne(ctx, "books", bson.D{{Key: "_id", Value: firstID}})
		require.NoError(t, err)

		res, err := s.Update(ctx, "books",
			bson.D{{Key: "_id", Value: firstID}},
			bson.D{{Key: "$setOnInsert", Value: bson.D{{Key: "stock", Value: int32(1)}}}},
			core.UpdateOptions{Upsert: true})
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.MatchedCount)
		assert.Equal(t, int64(0), res.ModifiedCount)
		assert.Equal(t, int64(0), res.UpsertedCount)

		after, err := s.FindOne(ctx, "books", bson.D{{Key: "_id", Value: firstID}})
		require.NoError(t, err)
		assert.Equal(t, before, after)
	})

	t.Run("Rejects Empty Update", func(t *testing.T) {
		s := newTestStore(t, "")
		_, err := s.Update(ctx, "books", nil, bson.D{}, core.UpdateOptions{})
		assert.Error(t, err)
		_, err = s.Update(ctx, "books", nil, "title", core.UpdateOptions{})
		assert.Error(t, err)
	})

	t.Run("Rejects Multi Replacement", func(t *testing.T) {
		s := newTestStore(t, "")
		seedBooks(t, s)

		res, err := s.Update(ctx, "books", nil, bson.D{{Key: "title", Value: "Same"}}, core.UpdateOptions{Multi: true})
		assert.Error(t, err)
		assert.Equal(t, int64(0), res.MatchedCount)
	})
}

func TestStore_TextCommand(t *testing.T) {
	s := newTestStore(t, "")
	seedBooks(t, s)
	ctx := context.Background()

	res, err := s.Command(ctx, bson.D{{Key: "text", Value: "books"}, {Key: "search", Value: "life"}})
	require.NoError(t, err)

	ok, _ := core.Lookup(res, "ok")
	assert.Equal(t, 1.0, ok)

	results, _ := core.Lookup(res, "results")
	list, isList := results.(bson.A)
	require.True(t, isList)
	require.Len(t, list, 2)

	var got []string
	var scores []float64
	for _, item := range list {
		entry := item.(bson.D)
		obj, _ := core.Lookup(entry, "obj")
		score, _ := core.Lookup(entry, "score")
		got = append(got, titles([]bson.D{obj.(bson.D)})...)
		scores = append(scores, score.(float64))
	}
	assert.Equal(t, []string{"My life", "My life, II"}, got)
	assert.Greater(t, scores[0], scores[1])

	res, err = s.Command(ctx, bson.D{{Key: "text", Value: "books"}, {Key: "search", Value: "life"}, {Key: "limit", Value: int32(1)}})
	require.NoError(t, err)
	results, _ = core.Lookup(res, "results")
	assert.Len(t, results.(bson.A), 1)

	res, err = s.Command(ctx, bson.D{{Key: "text", Value: "books"}, {Key: "search", Value: "death"}})
	require.NoError(t, err)
	results, _ = core.Lookup(res, "results")
	assert.Empty(t, results.(bson.A))
}

func TestStore_Commands(t *testing.T) {
	s := newTestStore(t, "")
	seedBooks(t, s)
	ctx := context.Background()

	res, err := s.Command(ctx, bson.D{{Key: "ping", Value: 1}})
	require.NoError(t, err)
	assert.Equal(t, bson.D{{Key: "ok", Value: 1.0}}, res)

	res, err = s.Command(ctx, bson.D{{Key: "count", Value: "books"}, {Key: "query", Value: bson.D{{Key: "pages", Value: int32(80)}}}})
	require.NoError(t, err)
	n, _ := core.Lookup(res, "n")
	assert.Equal(t, int64(1), n)

	names, err := s.Collections()
	require.NoError(t, err)
	assert.Equal(t, []string{"books"}, names, "system directory is not a collection")

	_, err = s.Command(ctx, bson.D{{Key: "drop", Value: "books"}})
	require.NoError(t, err)
	names, err = s.Collections()
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = s.Command(ctx, bson.D{{Key: "shutdown", Value: 1}})
	assert.Error(t, err)
	_, err = s.Command(ctx, nil)
	assert.Error(t, err)
}

func TestStore_Drop(t *testing.T) {
	s := newTestStore(t, "")
	seedBooks(t, s)
	ctx := context.Background()

	require.NoError(t, s.Drop(ctx))
	n, err := s.Count(ctx, "books", nil, core.FindOptions{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, s.cache.Len())
}

func TestStore_YAMLFormat(t *testing.T) {
	s := newTestStore(t, ".yaml")
	seedBooks(t, s)
	ctx := context.Background()

	_, err := os.Stat(filepath.Join(s.Path, "books", firstID.Hex()+".yaml"))
	require.NoError(t, err)

	doc, err := s.FindOne(ctx, "books", bson.D{{Key: "title", Value: "My life, II"}})
	require.NoError(t, err)
	id, _ := core.Lookup(doc, "_id")
	assert.Equal(t, secondID, id)
}

func TestStore_InvalidNames(t *testing.T) {
	ctx := context.Background()

	_, err := NewStore(Config{Root: t.TempDir(), Database: "../escape"})
	assert.Error(t, err)

	s := newTestStore(t, "")
	assert.Error(t, s.Save(ctx, ".strata", bson.D{{Key: "_id", Value: firstID}}))
	assert.Error(t, s.Save(ctx, "books", bson.D{{Key: "title", Value: "no id"}}))
	assert.Error(t, s.Save(ctx, "books", bson.D{{Key: "_id", Value: "a/b"}}))

	_, err = s.FindOne(ctx, "../books", nil)
	assert.Error(t, err)
}

func TestNewDialer(t *testing.T) {
	root := t.TempDir()
	dial := NewDialer(Config{Format: ".yaml"})

	store, err := dial(context.Background(), "file://"+root, "library")
	require.NoError(t, err)
	fsStore, ok := store.(*Store)
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "library"), fsStore.Path)

	_, err = dial(context.Background(), "mongodb://localhost:27017", "library")
	assert.Error(t, err)
}

func TestStore_State(t *testing.T) {
	s := newTestStore(t, "")
	seedBooks(t, s)

	state, ok := s.State().(StoreState)
	require.True(t, ok)
	assert.Equal(t, "library", state.Database)
	assert.Equal(t, 2, state.IndexSize)
	assert.Equal(t, []string{".json", ".yaml", ".yml"}, state.Serializers)
	assert.Equal(t, "store", s.ComponentType())
}
