package fs

import (
	"bytes"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/aretw0/strata/pkg/core"
)

// Operator represents a comparison operator (e.g., $eq, $gt, $in).
type Operator string

const (
	OpEq     Operator = "$eq"
	OpNe     Operator = "$ne"
	OpGt     Operator = "$gt"
	OpGte    Operator = "$gte"
	OpLt     Operator = "$lt"
	OpLte    Operator = "$lte"
	OpIn     Operator = "$in"
	OpNin    Operator = "$nin"
	OpExists Operator = "$exists"
	OpRegex  Operator = "$regex"
)

// matches reports whether doc satisfies every clause of cond.
func matches(doc bson.D, cond bson.D) (bool, error) {
	for _, clause := range cond {
		ok, err := matchClause(doc, clause)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchClause(doc bson.D, clause bson.E) (bool, error) {
	switch clause.Key {
	case "$and", "$or", "$nor":
		subs, err := conditionList(clause.Key, clause.Value)
		if err != nil {
			return false, err
		}
		return matchLogical(doc, clause.Key, subs)
	}
	if strings.HasPrefix(clause.Key, "$") {
		return false, fmt.Errorf("unknown top-level operator: %s", clause.Key)
	}

	actual, exists := lookupPath(doc, clause.Key)

	if ops, ok := operatorDocument(clause.Value); ok {
		for _, op := range ops {
			ok, err := matchOperator(Operator(op.Key), actual, exists, op.Value)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}

	// Implicit $eq
	return exists && equalOrContains(actual, clause.Value), nil
}

func matchLogical(doc bson.D, op string, subs []bson.D) (bool, error) {
	for _, sub := range subs {
		ok, err := matches(doc, sub)
		if err != nil {
			return false, err
		}
		switch {
		case op == "$and" && !ok:
			return false, nil
		case op == "$or" && ok:
			return true, nil
		case op == "$nor" && ok:
			return false, nil
		}
	}
	return op != "$or", nil
}

func matchOperator(op Operator, actual any, exists bool, expected any) (bool, error) {
	switch op {
	case OpEq:
		return exists && equalOrContains(actual, expected), nil
	case OpNe:
		return !exists || !equalOrContains(actual, expected), nil
	case OpGt, OpGte, OpLt, OpLte:
		if !exists {
			return false, nil
		}
		c, ok := compareValues(actual, expected)
		if !ok {
			return false, nil
		}
		switch op {
		case OpGt:
			return c > 0, nil
		case OpGte:
			return c >= 0, nil
		case OpLt:
			return c < 0, nil
		default:
			return c <= 0, nil
		}
	case OpIn, OpNin:
		list, ok := toList(expected)
		if !ok {
			return false, fmt.Errorf("value for %s must be an array", op)
		}
		found := false
		if exists {
			for _, candidate := range list {
				if equalOrContains(actual, candidate) {
					found = true
					break
				}
			}
		}
		if op == OpIn {
			return found, nil
		}
		return !found, nil
	case OpExists:
		var want bool
		switch v := expected.(type) {
		case bool:
			want = v
		default:
			f, ok := toFloat(expected)
			if !ok {
				return false, fmt.Errorf("value for %s must be a boolean or a number", op)
			}
			want = f != 0
		}
		return exists == want, nil
	case OpRegex:
		var pattern string
		switch p := expected.(type) {
		case string:
			pattern = p
		case bson.Regex:
			pattern = p.Pattern
			if p.Options != "" {
				pattern = "(?" + p.Options + ")" + p.Pattern
			}
		default:
			return false, fmt.Errorf("value for %s must be a string", op)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("invalid %s: %w", op, err)
		}
		s, isString := actual.(string)
		return exists && isString && re.MatchString(s), nil
	default:
		return false, fmt.Errorf("unknown operator: %s", op)
	}
}

// operatorDocument returns v as a document when every key is an operator.
func operatorDocument(v any) (bson.D, bool) {
	doc, ok := core.ToDocument(v)
	if !ok || len(doc) == 0 {
		return nil, false
	}
	for _, e := range doc {
		if !strings.HasPrefix(e.Key, "$") {
			return nil, false
		}
	}
	return doc, true
}

func conditionList(op string, v any) ([]bson.D, error) {
	items, ok := toList(v)
	if !ok {
		return nil, fmt.Errorf("value for %s must be a list", op)
	}
	subs := make([]bson.D, 0, len(items))
	for _, item := range items {
		sub, ok := core.ToDocument(item)
		if !ok {
			return nil, fmt.Errorf("element of %s must be an object", op)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func toList(v any) ([]any, bool) {
	switch l := v.(type) {
	case bson.A:
		return l, true
	case []any:
		return l, true
	case bson.D:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() == reflect.Uint8 {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// lookupPath resolves a dotted field path ("author.name", "tags.0").
func lookupPath(doc bson.D, path string) (any, bool) {
	var current any = doc
	for _, part := range strings.Split(path, ".") {
		if d, ok := core.ToDocument(current); ok {
			v, found := core.Lookup(d, part)
			if !found {
				return nil, false
			}
			current = v
			continue
		}
		list, ok := toList(current)
		if !ok {
			return nil, false
		}
		i, err := parseIndex(part)
		if err != nil || i >= len(list) {
			return nil, false
		}
		current = list[i]
	}
	return current, true
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil || i < 0 {
		return 0, fmt.Errorf("not an index: %s", s)
	}
	return i, nil
}

// equalOrContains implements equality with array membership: a condition
// value matches an array field when any element equals it.
func equalOrContains(actual, expected any) bool {
	if valuesEqual(actual, expected) {
		return true
	}
	if list, ok := toList(actual); ok {
		for _, item := range list {
			if valuesEqual(item, expected) {
				return true
			}
		}
	}
	return false
}

func valuesEqual(a, b any) bool {
	if c, ok := compareValues(a, b); ok {
		return c == 0
	}
	if da, ok := core.ToDocument(a); ok {
		db, ok := core.ToDocument(b)
		if !ok || len(da) != len(db) {
			return false
		}
		for i := range da {
			if da[i].Key != db[i].Key || !valuesEqual(da[i].Value, db[i].Value) {
				return false
			}
		}
		return true
	}
	if la, ok := toList(a); ok {
		lb, ok := toList(b)
		if !ok || len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !valuesEqual(la[i], lb[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two scalar values of the same family. ok is false
// when the values are not comparable.
func compareValues(a, b any) (int, bool) {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		}
		return 0, true
	}

	switch va := a.(type) {
	case string:
		vb, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(va, vb), true
	case bson.ObjectID:
		vb, ok := b.(bson.ObjectID)
		if !ok {
			return 0, false
		}
		return bytes.Compare(va[:], vb[:]), true
	case bool:
		vb, ok := b.(bool)
		if !ok {
			return 0, false
		}
		switch {
		case va == vb:
			return 0, true
		case !va:
			return -1, true
		}
		return 1, true
	case bson.DateTime:
		vb, ok := b.(bson.DateTime)
		if !ok {
			return 0, false
		}
		switch {
		case va < vb:
			return -1, true
		case va > vb:
			return 1, true
		}
		return 0, true
	case nil:
		if b == nil {
			return 0, true
		}
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch i := v.(type) {
	case float64:
		return i, true
	case float32:
		return float64(i), true
	case int:
		return float64(i), true
	case int32:
		return float64(i), true
	case int64:
		return float64(i), true
	}
	return 0, false
}

// sortKeyLess orders two documents by a sort specification (field -> 1 | -1).
// Values that are not comparable keep their natural order.
func sortKeyLess(a, b bson.D, spec bson.D) bool {
	for _, key := range spec {
		dir := 1
		if f, ok := toFloat(key.Value); ok && f < 0 {
			dir = -1
		}
		va, aok := lookupPath(a, key.Key)
		vb, bok := lookupPath(b, key.Key)
		if !aok || !bok {
			if aok == bok {
				continue
			}
			// Missing fields sort first in ascending order.
			return (!aok) == (dir > 0)
		}
		c, ok := compareValues(va, vb)
		if !ok || c == 0 {
			continue
		}
		return (c < 0) == (dir > 0)
	}
	return false
}
