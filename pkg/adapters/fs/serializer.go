package fs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"gopkg.in/yaml.v3"
)

// Serializer defines how documents are read from and written to a file format.
type Serializer interface {
	// Parse reads a single document from r.
	Parse(r io.Reader) (bson.D, error)
	// Serialize converts doc to bytes.
	Serialize(doc bson.D) ([]byte, error)
}

// DefaultSerializers returns the standard set of serializers keyed by extension.
func DefaultSerializers() map[string]Serializer {
	return map[string]Serializer{
		".json": &JSONSerializer{},
		".yaml": &YAMLSerializer{},
		".yml":  &YAMLSerializer{},
	}
}

// --- JSON Serializer ---

// JSONSerializer stores documents as relaxed Extended JSON, which keeps
// identifiers and dates typed ({"$oid": ...}) while leaving plain values readable.
type JSONSerializer struct{}

func (s *JSONSerializer) Parse(r io.Reader) (bson.D, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, fmt.Errorf("invalid extended json: %w", err)
	}
	return doc, nil
}

func (s *JSONSerializer) Serialize(doc bson.D) ([]byte, error) {
	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// --- YAML Serializer ---

// YAMLSerializer stores documents as block YAML. The Extended JSON
// representation is the interchange format, so key order and typed values
// survive a round trip.
type YAMLSerializer struct{}

func (s *YAMLSerializer) Parse(r io.Reader) (bson.D, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("invalid yaml: %w", err)
	}

	var buf bytes.Buffer
	if err := writeNodeJSON(&buf, &node); err != nil {
		return nil, err
	}

	var doc bson.D
	if err := bson.UnmarshalExtJSON(buf.Bytes(), false, &doc); err != nil {
		return nil, fmt.Errorf("invalid yaml document: %w", err)
	}
	return doc, nil
}

func (s *YAMLSerializer) Serialize(doc bson.D) ([]byte, error) {
	data, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, err
	}

	// JSON is YAML: decode into a node tree to keep key order, then drop the
	// flow styling so the output is block YAML.
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, err
	}
	clearStyle(&node)
	return yaml.Marshal(&node)
}

func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}

// writeNodeJSON renders a YAML node tree as JSON, preserving mapping order.
func writeNodeJSON(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("{}")
			return nil
		}
		return writeNodeJSON(buf, n.Content[0])
	case yaml.AliasNode:
		return writeNodeJSON(buf, n.Alias)
	case yaml.MappingNode:
		buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeNodeJSON(buf, n.Content[i+1]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, c := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNodeJSON(buf, c); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	case yaml.ScalarNode:
		return writeScalarJSON(buf, n)
	default:
		return fmt.Errorf("unsupported yaml node kind %d", n.Kind)
	}
}

func writeScalarJSON(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.ShortTag() {
	case "!!null":
		buf.WriteString("null")
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return err
		}
		buf.WriteString(strconv.FormatBool(b))
	case "!!int":
		i, err := strconv.ParseInt(n.Value, 0, 64)
		if err != nil {
			return fmt.Errorf("invalid yaml int %q: %w", n.Value, err)
		}
		buf.WriteString(strconv.FormatInt(i, 10))
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return err
		}
		if math.IsInf(f, 0) || math.IsNaN(f) {
			return fmt.Errorf("yaml float %q has no json representation", n.Value)
		}
		// Keep a fraction or exponent so the value stays a double.
		s := strconv.FormatFloat(f, 'g', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		buf.WriteString(s)
	default:
		out, err := json.Marshal(n.Value)
		if err != nil {
			return err
		}
		buf.Write(out)
	}
	return nil
}
