package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
)

func TestMatches(t *testing.T) {
	doc := bson.D{
		{Key: "_id", Value: firstID},
		{Key: "title", Value: "My life"},
		{Key: "pages", Value: int32(120)},
		{Key: "tags", Value: bson.A{"memoir", "classic"}},
		{Key: "author", Value: bson.D{{Key: "name", Value: "Ann"}, {Key: "born", Value: int32(1950)}}},
	}

	cases := []struct {
		name string
		cond bson.D
		want bool
	}{
		{"empty condition", nil, true},
		{"identifier", bson.D{{Key: "_id", Value: firstID}}, true},
		{"other identifier", bson.D{{Key: "_id", Value: secondID}}, false},
		{"implicit eq", bson.D{{Key: "title", Value: "My life"}}, true},
		{"numeric families compare", bson.D{{Key: "pages", Value: 120.0}}, true},
		{"array membership", bson.D{{Key: "tags", Value: "classic"}}, true},
		{"whole array", bson.D{{Key: "tags", Value: bson.A{"memoir", "classic"}}}, true},
		{"array index", bson.D{{Key: "tags.0", Value: "memoir"}}, true},
		{"dotted path", bson.D{{Key: "author.name", Value: "Ann"}}, true},
		{"missing field", bson.D{{Key: "isbn", Value: "x"}}, false},
		{"gt", bson.D{{Key: "pages", Value: bson.D{{Key: "$gt", Value: 100}}}}, true},
		{"lte", bson.D{{Key: "pages", Value: bson.D{{Key: "$lte", Value: 100}}}}, false},
		{"range", bson.D{{Key: "author.born", Value: bson.D{{Key: "$gte", Value: 1900}, {Key: "$lt", Value: 2000}}}}, true},
		{"ne on missing", bson.D{{Key: "isbn", Value: bson.D{{Key: "$ne", Value: "x"}}}}, true},
		{"in", bson.D{{Key: "title", Value: bson.D{{Key: "$in", Value: bson.A{"A", "My life"}}}}}, true},
		{"nin", bson.D{{Key: "tags", Value: bson.D{{Key: "$nin", Value: []string{"classic"}}}}}, false},
		{"exists", bson.D{{Key: "author", Value: bson.D{{Key: "$exists", Value: true}}}}, true},
		{"not exists", bson.D{{Key: "isbn", Value: bson.D{{Key: "$exists", Value: false}}}}, true},
		{"exists as number", bson.D{{Key: "author", Value: bson.D{{Key: "$exists", Value: int32(1)}}}}, true},
		{"exists as zero", bson.D{{Key: "author", Value: bson.D{{Key: "$exists", Value: int32(0)}}}}, false},
		{"missing exists as number", bson.D{{Key: "isbn", Value: bson.D{{Key: "$exists", Value: int32(1)}}}}, false},
		{"missing exists as zero", bson.D{{Key: "isbn", Value: bson.D{{Key: "$exists", Value: int32(0)}}}}, true},
		{"regex", bson.D{{Key: "title", Value: bson.D{{Key: "$regex", Value: "^my"}}}}, false},
		{"regex options", bson.D{{Key: "title", Value: bson.D{{Key: "$regex", Value: bson.Regex{Pattern: "^my", Options: "i"}}}}}, true},
		{"or", bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "title", Value: "Other"}},
			bson.D{{Key: "pages", Value: int32(120)}},
		}}}, true},
		{"and", bson.D{{Key: "$and", Value: bson.A{
			bson.D{{Key: "title", Value: "My life"}},
			bson.D{{Key: "pages", Value: int32(1)}},
		}}}, false},
		{"nor", bson.D{{Key: "$nor", Value: bson.A{bson.D{{Key: "title", Value: "Other"}}}}}, true},
		{"embedded document", bson.D{{Key: "author", Value: bson.D{{Key: "name", Value: "Ann"}, {Key: "born", Value: int32(1950)}}}}, true},
		{"embedded document order matters", bson.D{{Key: "author", Value: bson.D{{Key: "born", Value: int32(1950)}, {Key: "name", Value: "Ann"}}}}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := matches(doc, tc.cond)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMatches_Errors(t *testing.T) {
	doc := bson.D{{Key: "title", Value: "x"}}

	for name, cond := range map[string]bson.D{
		"unknown operator":     {{Key: "title", Value: bson.D{{Key: "$near", Value: 1}}}},
		"unknown top-level":    {{Key: "$where", Value: "1"}},
		"in without array":     {{Key: "title", Value: bson.D{{Key: "$in", Value: "x"}}}},
		"or without list":      {{Key: "$or", Value: "x"}},
		"invalid regex":        {{Key: "title", Value: bson.D{{Key: "$regex", Value: "("}}}},
		"regex of wrong type":  {{Key: "title", Value: bson.D{{Key: "$regex", Value: 1}}}},
		"exists of wrong type": {{Key: "title", Value: bson.D{{Key: "$exists", Value: "yes"}}}},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := matches(doc, cond)
			assert.Error(t, err)
		})
	}
}

func TestSortKeyLess(t *testing.T) {
	a := bson.D{{Key: "n", Value: int32(1)}, {Key: "s", Value: "b"}}
	b := bson.D{{Key: "n", Value: int32(2)}, {Key: "s", Value: "a"}}
	missing := bson.D{{Key: "s", Value: "c"}}

	assert.True(t, sortKeyLess(a, b, bson.D{{Key: "n", Value: 1}}))
	assert.False(t, sortKeyLess(a, b, bson.D{{Key: "n", Value: -1}}))
	assert.True(t, sortKeyLess(b, a, bson.D{{Key: "s", Value: 1}}))
	assert.True(t, sortKeyLess(missing, a, bson.D{{Key: "n", Value: 1}}))
	assert.False(t, sortKeyLess(missing, a, bson.D{{Key: "n", Value: -1}}))
	assert.False(t, sortKeyLess(a, a, bson.D{{Key: "n", Value: 1}}))
}

func TestLookupPath(t *testing.T) {
	doc := bson.D{{Key: "a", Value: bson.D{{Key: "b", Value: bson.A{int32(1), bson.D{{Key: "c", Value: "deep"}}}}}}}

	v, ok := lookupPath(doc, "a.b.1.c")
	assert.True(t, ok)
	assert.Equal(t, "deep", v)

	_, ok = lookupPath(doc, "a.b.5")
	assert.False(t, ok)
	_, ok = lookupPath(doc, "a.b.-1")
	assert.False(t, ok)
	_, ok = lookupPath(doc, "a.x")
	assert.False(t, ok)
}
