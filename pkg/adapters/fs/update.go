package fs

import (
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/aretw0/strata/pkg/core"
)

// applyUpdate returns the result of applying update to doc and whether
// anything changed. doc is not modified.
//
// An update whose keys are all operators ($set, $unset, $inc, $push) is
// applied field by field; an update without operators replaces the document,
// keeping its _id.
func applyUpdate(doc bson.D, update bson.D) (bson.D, bool, error) {
	if isOperatorUpdate(update) {
		out := cloneDocument(doc)
		for _, op := range update {
			fields, ok := core.ToDocument(op.Value)
			if !ok {
				return nil, false, fmt.Errorf("value for %s must be an object", op.Key)
			}
			var err error
			for _, f := range fields {
				if f.Key == core.IDField && op.Key != "$setOnInsert" {
					return nil, false, fmt.Errorf("%s: the _id field is immutable", op.Key)
				}
				switch op.Key {
				case "$set", "$setOnInsert":
					out, err = setPath(out, f.Key, f.Value)
				case "$unset":
					out = unsetPath(out, f.Key)
				case "$inc":
					out, err = incPath(out, f.Key, f.Value)
				case "$push":
					out, err = pushPath(out, f.Key, f.Value)
				default:
					err = fmt.Errorf("unknown update operator: %s", op.Key)
				}
				if err != nil {
					return nil, false, err
				}
			}
		}
		return out, !valuesEqual(doc, out), nil
	}

	for _, e := range update {
		if strings.HasPrefix(e.Key, "$") {
			return nil, false, fmt.Errorf("cannot mix operators and fields in an update: %s", e.Key)
		}
	}

	out := bson.D{}
	id, hasID := core.Lookup(doc, core.IDField)
	if hasID {
		out = append(out, bson.E{Key: core.IDField, Value: id})
	}
	for _, e := range update {
		if e.Key == core.IDField {
			if hasID && !valuesEqual(e.Value, id) {
				return nil, false, fmt.Errorf("replacement would change the _id field")
			}
			if !hasID {
				out = append(out, e)
			}
			continue
		}
		out = append(out, e)
	}
	return out, !valuesEqual(doc, out), nil
}

func isOperatorUpdate(update bson.D) bool {
	return len(update) > 0 && strings.HasPrefix(update[0].Key, "$")
}

// upsertSeed builds the base document of an upsert from the equality
// clauses of filter.
func upsertSeed(filter bson.D) bson.D {
	seed := bson.D{}
	for _, e := range filter {
		if strings.HasPrefix(e.Key, "$") || strings.Contains(e.Key, ".") {
			continue
		}
		if _, isOps := operatorDocument(e.Value); isOps {
			continue
		}
		seed = append(seed, e)
	}
	return seed
}

func cloneDocument(doc bson.D) bson.D {
	out := make(bson.D, len(doc))
	for i, e := range doc {
		out[i] = bson.E{Key: e.Key, Value: cloneValue(e.Value)}
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case bson.D:
		return cloneDocument(t)
	case bson.A:
		out := make(bson.A, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}

func setPath(doc bson.D, path string, value any) (bson.D, error) {
	head, rest, nested := strings.Cut(path, ".")
	for i, e := range doc {
		if e.Key != head {
			continue
		}
		if !nested {
			doc[i].Value = value
			return doc, nil
		}
		sub, ok := core.ToDocument(e.Value)
		if !ok {
			return nil, fmt.Errorf("cannot set %s: %s is not an object", path, head)
		}
		sub, err := setPath(cloneDocument(sub), rest, value)
		if err != nil {
			return nil, err
		}
		doc[i].Value = sub
		return doc, nil
	}

	if !nested {
		return append(doc, bson.E{Key: head, Value: value}), nil
	}
	sub, err := setPath(bson.D{}, rest, value)
	if err != nil {
		return nil, err
	}
	return append(doc, bson.E{Key: head, Value: sub}), nil
}

func unsetPath(doc bson.D, path string) bson.D {
	head, rest, nested := strings.Cut(path, ".")
	for i, e := range doc {
		if e.Key != head {
			continue
		}
		if !nested {
			return append(doc[:i:i], doc[i+1:]...)
		}
		if sub, ok := core.ToDocument(e.Value); ok {
			doc[i].Value = unsetPath(cloneDocument(sub), rest)
		}
		return doc
	}
	return doc
}

func incPath(doc bson.D, path string, delta any) (bson.D, error) {
	d, ok := toFloat(delta)
	if !ok {
		return nil, fmt.Errorf("$inc on %s: increment must be numeric", path)
	}
	current, exists := lookupPath(doc, path)
	if !exists {
		return setPath(doc, path, delta)
	}

	switch c := current.(type) {
	case int32:
		if di, isInt := delta.(int32); isInt {
			return setPath(doc, path, c+di)
		}
		if isIntegral(delta) {
			return setPath(doc, path, int64(c)+int64(d))
		}
	case int64:
		if isIntegral(delta) {
			return setPath(doc, path, c+int64(d))
		}
	case int:
		if isIntegral(delta) {
			return setPath(doc, path, int64(c)+int64(d))
		}
	}
	f, ok := toFloat(current)
	if !ok {
		return nil, fmt.Errorf("$inc on %s: field is not numeric", path)
	}
	return setPath(doc, path, f+d)
}

func isIntegral(v any) bool {
	switch v.(type) {
	case int, int32, int64:
		return true
	}
	return false
}

func pushPath(doc bson.D, path string, value any) (bson.D, error) {
	current, exists := lookupPath(doc, path)
	if !exists {
		return setPath(doc, path, bson.A{value})
	}
	list, ok := toList(current)
	if !ok {
		return nil, fmt.Errorf("$push on %s: field is not an array", path)
	}
	out := make(bson.A, 0, len(list)+1)
	out = append(out, list...)
	out = append(out, value)
	return setPath(doc, path, out)
}
