package core

import (
	"fmt"
	"regexp"
	"sort"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// identifierPattern is the disambiguation rule between "this is an id" and
// "this is garbage": exactly 24 hexadecimal digits.
var identifierPattern = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)

// IsIdentifier reports whether s is the hexadecimal rendering of an Identifier.
func IsIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// ParseIdentifier converts a 24 hex character string into an Identifier.
func ParseIdentifier(s string) (Identifier, error) {
	if !IsIdentifier(s) {
		return Identifier{}, fmt.Errorf("%w: %q is not a 24 character hex identifier", ErrInvalidQueryArgument, s)
	}
	return bson.ObjectIDFromHex(s)
}

// Normalize converts a query argument into a canonical condition.
//
// Accepted shapes:
//   - bson.D: returned unchanged.
//   - bson.M, map[string]any: same entries, keys sorted.
//   - string of 24 hex digits: {"_id": Identifier(s)}.
//   - Identifier (or a non-nil pointer to one): {"_id": id}.
//   - nil: the empty condition, matching every document.
//
// Anything else fails with ErrInvalidQueryArgument.
func Normalize(input any) (bson.D, error) {
	switch v := input.(type) {
	case nil:
		return bson.D{}, nil
	case bson.D:
		return v, nil
	case bson.M:
		return fromMap(v), nil
	case map[string]any:
		return fromMap(v), nil
	case string:
		id, err := ParseIdentifier(v)
		if err != nil {
			return nil, err
		}
		return bson.D{{Key: IDField, Value: id}}, nil
	case bson.ObjectID:
		return bson.D{{Key: IDField, Value: v}}, nil
	case *bson.ObjectID:
		if v == nil {
			return nil, fmt.Errorf("%w: nil identifier", ErrInvalidQueryArgument)
		}
		return bson.D{{Key: IDField, Value: *v}}, nil
	default:
		return nil, fmt.Errorf("%w: cannot build a condition from %T", ErrInvalidQueryArgument, input)
	}
}

// ToDocument converts the document shapes a store may hand back into an
// ordered bson.D. ok is false for values that are not documents.
func ToDocument(value any) (doc bson.D, ok bool) {
	switch v := value.(type) {
	case bson.D:
		return v, true
	case bson.M:
		return fromMap(v), true
	case map[string]any:
		return fromMap(v), true
	case bson.Raw:
		var d bson.D
		if err := bson.Unmarshal(v, &d); err != nil {
			return nil, false
		}
		return d, true
	default:
		return nil, false
	}
}

func fromMap(m map[string]any) bson.D {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	doc := make(bson.D, 0, len(keys))
	for _, k := range keys {
		doc = append(doc, bson.E{Key: k, Value: m[k]})
	}
	return doc
}
