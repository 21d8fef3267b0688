package storage

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/skshohagmiah/docquery/internal/document"
)

// dateKey wraps time.Time values so they survive the JSON round trip.
const dateKey = "$date"

// EncodeDocument marshals a document to JSON. Dates are written as
// {"$date": RFC3339Nano}.
func EncodeDocument(doc document.Document) ([]byte, error) {
	data, err := json.Marshal(encodeValue(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	return data, nil
}

// DecodeDocument reverses EncodeDocument. Integral numbers decode to int64,
// other numbers to float64.
func DecodeDocument(data []byte) (document.Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	v, err := decodeValue(raw)
	if err != nil {
		return nil, err
	}
	doc, _ := v.(document.Document)
	return doc, nil
}

// DecodeValues decodes a sequence of whitespace separated JSON values with
// the rules of DecodeDocument.
func DecodeValues(data []byte) ([]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out []interface{}
	for {
		var raw interface{}
		err := dec.Decode(&raw)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("invalid json: %w", err)
		}
		v, err := decodeValue(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func encodeValue(v interface{}) interface{} {
	if t, ok := v.(time.Time); ok {
		return map[string]interface{}{dateKey: t.UTC().Format(time.RFC3339Nano)}
	}
	if m, ok := document.AsMap(v); ok {
		out := make(map[string]interface{}, len(m))
		for k, item := range m {
			out[k] = encodeValue(item)
		}
		return out
	}
	if s, ok := document.AsSlice(v); ok {
		out := make([]interface{}, len(s))
		for i, item := range s {
			out[i] = encodeValue(item)
		}
		return out
	}
	return v
}

func decodeValue(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return f, nil
	case map[string]interface{}:
		if s, ok := val[dateKey].(string); ok && len(val) == 1 {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, fmt.Errorf("invalid date %q: %w", s, err)
			}
			return t, nil
		}
		out := make(document.Document, len(val))
		for k, item := range val {
			dv, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out[k] = dv
		}
		return out, nil
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			dv, err := decodeValue(item)
			if err != nil {
				return nil, err
			}
			out[i] = dv
		}
		return out, nil
	}
	return v, nil
}
