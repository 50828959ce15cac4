package mongo

import (
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/aretw0/strata/pkg/core"
)

// scoreField carries the textScore projection; it is stripped from results.
const scoreField = "_textScore"

type textCommand struct {
	collection string
	search     string
	extra      bson.D
	limit      int64
}

func parseTextCommand(cmd bson.D) (textCommand, error) {
	var q textCommand

	collection, ok := cmd[0].Value.(string)
	if !ok || collection == "" {
		return q, errors.New("text: collection name must be a string")
	}
	q.collection = collection

	search, _ := core.Lookup(cmd, "search")
	if q.search, ok = search.(string); !ok {
		return q, errors.New("text: search must be a string")
	}

	if f, ok := core.Lookup(cmd, "filter"); ok && f != nil {
		if q.extra, ok = core.ToDocument(f); !ok {
			return q, errors.New("text: filter must be an object")
		}
	}
	if l, ok := core.Lookup(cmd, "limit"); ok {
		switch n := l.(type) {
		case int:
			q.limit = int64(n)
		case int32:
			q.limit = int64(n)
		case int64:
			q.limit = n
		case float64:
			q.limit = int64(n)
		default:
			return q, errors.New("text: limit must be a number")
		}
		if q.limit < 0 {
			return q, errors.New("text: limit must not be negative")
		}
	}
	return q, nil
}

// filter combines the $text clause with the caller's extra conditions.
func (q textCommand) filter() bson.D {
	f := bson.D{{Key: "$text", Value: bson.D{{Key: "$search", Value: q.search}}}}
	return append(f, q.extra...)
}

// textResponse shapes scored documents like the reply of the text command:
// {results: [{score, obj}], stats: {n}, ok: 1}.
func textResponse(docs []bson.D) bson.D {
	results := make(bson.A, 0, len(docs))
	for _, doc := range docs {
		var score any = 0.0
		obj := make(bson.D, 0, len(doc))
		for _, e := range doc {
			if e.Key == scoreField {
				score = e.Value
				continue
			}
			obj = append(obj, e)
		}
		results = append(results, bson.D{
			{Key: "score", Value: score},
			{Key: "obj", Value: obj},
		})
	}
	return bson.D{
		{Key: "results", Value: results},
		{Key: "stats", Value: bson.D{{Key: "n", Value: int64(len(docs))}}},
		{Key: "ok", Value: 1.0},
	}
}
