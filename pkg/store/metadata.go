package store

import (
	"encoding/json"
	"fmt"

	"github.com/perbu/pdfrag/pkg/pdfrag"
)

// metaValue is one metadata entry in the SQLite metadata column. The kind
// tag lets scalars come back with the Go type they were saved with; plain
// JSON would turn every number into a float64.
type metaValue struct {
	Kind  string          `json:"kind"`
	Value json.RawMessage `json:"value"`
}

func encodeMetadata(m pdfrag.Metadata) ([]byte, error) {
	if m == nil {
		return nil, nil
	}
	out := make(map[string]metaValue, len(m))
	for k, v := range m {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("metadata %q: %w", k, err)
		}
		out[k] = metaValue{Kind: kindOf(v), Value: raw}
	}
	return json.Marshal(out)
}

func decodeMetadata(b []byte) (pdfrag.Metadata, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var in map[string]metaValue
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	m := make(pdfrag.Metadata, len(in))
	for k, mv := range in {
		v, err := decodeValue(mv)
		if err != nil {
			return nil, fmt.Errorf("decode metadata %q: %w", k, err)
		}
		m[k] = v
	}
	return m, nil
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int:
		return "int"
	case int8:
		return "int8"
	case int16:
		return "int16"
	case int32:
		return "int32"
	case int64:
		return "int64"
	case uint:
		return "uint"
	case uint8:
		return "uint8"
	case uint16:
		return "uint16"
	case uint32:
		return "uint32"
	case uint64:
		return "uint64"
	case float32:
		return "float32"
	case float64:
		return "float64"
	}
	return "json"
}

func decodeValue(mv metaValue) (any, error) {
	switch mv.Kind {
	case "null":
		return nil, nil
	case "string":
		return decodeAs[string](mv.Value)
	case "bool":
		return decodeAs[bool](mv.Value)
	case "int":
		return decodeAs[int](mv.Value)
	case "int8":
		return decodeAs[int8](mv.Value)
	case "int16":
		return decodeAs[int16](mv.Value)
	case "int32":
		return decodeAs[int32](mv.Value)
	case "int64":
		return decodeAs[int64](mv.Value)
	case "uint":
		return decodeAs[uint](mv.Value)
	case "uint8":
		return decodeAs[uint8](mv.Value)
	case "uint16":
		return decodeAs[uint16](mv.Value)
	case "uint32":
		return decodeAs[uint32](mv.Value)
	case "uint64":
		return decodeAs[uint64](mv.Value)
	case "float32":
		return decodeAs[float32](mv.Value)
	case "float64":
		return decodeAs[float64](mv.Value)
	case "json":
		// Composite values come back in their generic JSON form.
		return decodeAs[any](mv.Value)
	}
	return nil, fmt.Errorf("unknown kind %q", mv.Kind)
}

func decodeAs[T any](raw json.RawMessage) (any, error) {
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}
