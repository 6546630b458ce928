package row

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// MarshalJSON encodes the row as a JSON object with keys in row order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field %q: %w", k, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object keeping its key order. Nested objects
// become Rows, arrays become []any and numbers become float64.
func (r *Row) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	v, err := decodeJSONValue(dec)
	if err != nil {
		return err
	}
	decoded, ok := v.(Row)
	if !ok {
		return fmt.Errorf("row: expected a JSON object, got %T", v)
	}
	*r = decoded
	return nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}

	switch delim {
	case '{':
		b := NewBuilder(0)
		for dec.More() {
			keyTok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			key, ok := keyTok.(string)
			if !ok {
				return nil, fmt.Errorf("row: unexpected object key %v", keyTok)
			}
			value, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			b.Set(key, value)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return b.Row(), nil
	case '[':
		items := []any{}
		for dec.More() {
			item, err := decodeJSONValue(dec)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
		return items, nil
	}
	return nil, fmt.Errorf("row: unexpected delimiter %v", delim)
}

// UnmarshalYAML decodes a YAML mapping keeping its key order. Nested mappings
// become Rows and sequences become []any.
func (r *Row) UnmarshalYAML(node *yaml.Node) error {
	v, err := decodeYAMLNode(node)
	if err != nil {
		return err
	}
	decoded, ok := v.(Row)
	if !ok {
		return fmt.Errorf("row: expected a YAML mapping at line %d, got %T", node.Line, v)
	}
	*r = decoded
	return nil
}

func decodeYAMLNode(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return decodeYAMLNode(node.Content[0])
	case yaml.AliasNode:
		return decodeYAMLNode(node.Alias)
	case yaml.MappingNode:
		b := NewBuilder(len(node.Content) / 2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			value, err := decodeYAMLNode(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			b.Set(node.Content[i].Value, value)
		}
		return b.Row(), nil
	case yaml.SequenceNode:
		items := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			item, err := decodeYAMLNode(child)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
		return items, nil
	}

	var scalar any
	if err := node.Decode(&scalar); err != nil {
		return nil, fmt.Errorf("row: failed to decode scalar at line %d: %w", node.Line, err)
	}
	return scalar, nil
}
