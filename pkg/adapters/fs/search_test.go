package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"my", "life", "ii"}, tokenize("My life, II"))
	assert.Equal(t, []string{"café", "42"}, tokenize("  Café -- 42!"))
	assert.Empty(t, tokenize("..."))
}

func TestParseTextCommand(t *testing.T) {
	q, err := parseTextCommand(bson.D{
		{Key: "text", Value: "books"},
		{Key: "search", Value: "Life"},
		{Key: "filter", Value: bson.M{"pages": 80}},
		{Key: "limit", Value: int32(3)},
	})
	require.NoError(t, err)
	assert.Equal(t, "books", q.collection)
	assert.Equal(t, []string{"life"}, q.terms)
	assert.Equal(t, bson.D{{Key: "pages", Value: 80}}, q.filter)
	assert.Equal(t, int64(3), q.limit)

	_, err = parseTextCommand(bson.D{{Key: "text", Value: 1}, {Key: "search", Value: "x"}})
	assert.Error(t, err)
	_, err = parseTextCommand(bson.D{{Key: "text", Value: "books"}})
	assert.Error(t, err)
	_, err = parseTextCommand(bson.D{{Key: "text", Value: "books"}, {Key: "search", Value: "x"}, {Key: "limit", Value: -1}})
	assert.Error(t, err)
}

func TestTextQuery_Rank(t *testing.T) {
	docs := []bson.D{
		{{Key: "_id", Value: "life"}, {Key: "title", Value: "Nothing here"}},
		{{Key: "title", Value: "My life, II"}},
		{{Key: "title", Value: "My life"}},
		{{Key: "title", Value: "Life"}, {Key: "tags", Value: bson.A{"life"}}},
	}

	ranked := textQuery{terms: []string{"life"}}.rank(docs)
	require.Len(t, ranked, 3, "identifiers are not searchable")
	assert.Equal(t, 1.0, ranked[0].score)
	assert.Equal(t, 0.5, ranked[1].score)
	assert.InDelta(t, 1.0/3, ranked[2].score, 1e-9)

	limited := textQuery{terms: []string{"life"}, limit: 1}.rank(docs)
	assert.Len(t, limited, 1)

	assert.Empty(t, textQuery{}.rank(docs))
}
