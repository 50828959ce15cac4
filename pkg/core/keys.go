package core

import "go.mongodb.org/mongo-driver/v2/bson"

// RenameKeys returns a copy of value in which every document key equal to
// oldKey, at any nesting level, is renamed to newKey. Key order, arrays and
// non-document values are preserved. value itself is never modified.
func RenameKeys(oldKey, newKey string, value any) any {
	switch v := value.(type) {
	case bson.D:
		out := make(bson.D, len(v))
		for i, e := range v {
			key := e.Key
			if key == oldKey {
				key = newKey
			}
			out[i] = bson.E{Key: key, Value: RenameKeys(oldKey, newKey, e.Value)}
		}
		return out
	case bson.M:
		out := make(bson.M, len(v))
		for k, val := range v {
			out[renamed(k, oldKey, newKey)] = RenameKeys(oldKey, newKey, val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			out[renamed(k, oldKey, newKey)] = RenameKeys(oldKey, newKey, val)
		}
		return out
	case bson.A:
		out := make(bson.A, len(v))
		for i, item := range v {
			out[i] = RenameKeys(oldKey, newKey, item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = RenameKeys(oldKey, newKey, item)
		}
		return out
	default:
		return value
	}
}

func renamed(key, oldKey, newKey string) string {
	if key == oldKey {
		return newKey
	}
	return key
}
