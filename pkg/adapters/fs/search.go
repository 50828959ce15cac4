package fs

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/aretw0/strata/pkg/core"
)

// textQuery is a parsed "text" command.
type textQuery struct {
	collection string
	terms      []string
	filter     bson.D
	limit      int64
}

func parseTextCommand(cmd bson.D) (textQuery, error) {
	q := textQuery{}
	collection, ok := cmd[0].Value.(string)
	if !ok || collection == "" {
		return q, fmt.Errorf("text: collection name must be a string")
	}
	q.collection = collection

	search, _ := core.Lookup(cmd, "search")
	s, ok := search.(string)
	if !ok {
		return q, fmt.Errorf("text: search must be a string")
	}
	q.terms = tokenize(s)

	if f, ok := core.Lookup(cmd, "filter"); ok && f != nil {
		filter, ok := core.ToDocument(f)
		if !ok {
			return q, fmt.Errorf("text: filter must be an object")
		}
		q.filter = filter
	}
	if l, ok := core.Lookup(cmd, "limit"); ok {
		n, ok := toFloat(l)
		if !ok || n < 0 {
			return q, fmt.Errorf("text: limit must be a non-negative number")
		}
		q.limit = int64(n)
	}
	return q, nil
}

type scored struct {
	doc   bson.D
	score float64
}

// rank scores docs (already in natural order) against the query terms.
// The score of a document is the sum over query terms of the term's
// frequency in the document's string fields, so shorter, denser matches
// rank first. Documents scoring zero are dropped.
func (q textQuery) rank(docs []bson.D) []scored {
	var out []scored
	if len(q.terms) == 0 {
		return out
	}
	for _, doc := range docs {
		var words []string
		collectWords(doc, &words)
		if len(words) == 0 {
			continue
		}
		counts := make(map[string]int, len(words))
		for _, w := range words {
			counts[w]++
		}
		var score float64
		for _, t := range q.terms {
			score += float64(counts[t]) / float64(len(words))
		}
		if score > 0 {
			out = append(out, scored{doc: doc, score: score})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	if q.limit > 0 && int64(len(out)) > q.limit {
		out = out[:q.limit]
	}
	return out
}

func collectWords(v any, words *[]string) {
	switch t := v.(type) {
	case bson.D:
		for _, e := range t {
			if e.Key == core.IDField {
				continue
			}
			collectWords(e.Value, words)
		}
	case bson.A:
		for _, item := range t {
			collectWords(item, words)
		}
	case string:
		*words = append(*words, tokenize(t)...)
	}
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

func textResponse(results []scored, scanned int) bson.D {
	items := make(bson.A, 0, len(results))
	for _, r := range results {
		items = append(items, bson.D{
			{Key: "score", Value: r.score},
			{Key: "obj", Value: r.doc},
		})
	}
	return bson.D{
		{Key: "results", Value: items},
		{Key: "stats", Value: bson.D{
			{Key: "nscanned", Value: int64(scanned)},
			{Key: "n", Value: int64(len(results))},
		}},
		{Key: "ok", Value: 1.0},
	}
}
