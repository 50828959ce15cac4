package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/aretw0/strata/pkg/core"
)

func sampleTree() bson.D {
	return bson.D{
		{Key: "_id", Value: "root"},
		{Key: "title", Value: "My life"},
		{Key: "author", Value: bson.D{
			{Key: "_id", Value: "author-1"},
			{Key: "name", Value: "Anne"},
		}},
		{Key: "chapters", Value: bson.A{
			bson.D{{Key: "_id", Value: 1}, {Key: "title", Value: "Childhood"}},
			"appendix",
			bson.M{"_id": 3},
		}},
		{Key: "meta", Value: map[string]any{"_id": "m", "tags": []any{map[string]any{"_id": "t"}}}},
	}
}

func TestRenameKeys_RenamesAtEveryLevel(t *testing.T) {
	out := core.RenameKeys("_id", "key", sampleTree()).(bson.D)

	assert.Equal(t, "key", out[0].Key)
	assert.Equal(t, "title", out[1].Key)

	author := out[2].Value.(bson.D)
	assert.Equal(t, bson.D{{Key: "key", Value: "author-1"}, {Key: "name", Value: "Anne"}}, author)

	chapters := out[3].Value.(bson.A)
	assert.Equal(t, bson.D{{Key: "key", Value: 1}, {Key: "title", Value: "Childhood"}}, chapters[0])
	assert.Equal(t, "appendix", chapters[1])
	assert.Equal(t, bson.M{"key": 3}, chapters[2])

	meta := out[4].Value.(map[string]any)
	assert.Equal(t, "m", meta["key"])
	assert.Equal(t, []any{map[string]any{"key": "t"}}, meta["tags"])
}

func TestRenameKeys_DoesNotMutateInput(t *testing.T) {
	in := sampleTree()
	_ = core.RenameKeys("_id", "key", in)
	assert.Equal(t, sampleTree(), in)
}

func TestRenameKeys_RoundTrip(t *testing.T) {
	in := sampleTree()
	there := core.RenameKeys("_id", "key", in)
	back := core.RenameKeys("key", "_id", there)
	assert.Equal(t, in, back)
}

func TestRenameKeys_Scalars(t *testing.T) {
	assert.Equal(t, 42, core.RenameKeys("a", "b", 42))
	assert.Equal(t, "a", core.RenameKeys("a", "b", "a"))
	assert.Nil(t, core.RenameKeys("a", "b", nil))
}
