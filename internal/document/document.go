// Package document defines the semi-structured value model shared by the
// query engine, the collection layer and the persistence adapter.
//
// A Document is a plain map. Values may be nil, booleans, any Go numeric
// kind, strings, time.Time, slices, or nested maps. Nested structure is
// addressed with dotted field paths such as "adresse.ville".
package document

import (
	"reflect"
	"time"
)

// IDField is the reserved identifier field of every stored document.
const IDField = "_id"

// Document represents a single document in a collection
type Document map[string]interface{}

// ID returns the document identifier, or "" when unset.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Clone returns a deep copy of the document. Nested maps are copied into
// Documents and slices into []interface{}.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = CloneValue(v)
	}
	return out
}

// CloneValue deep-copies a single value.
func CloneValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil, bool, string, time.Time,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return val
	case Document:
		return val.Clone()
	case map[string]interface{}:
		return Document(val).Clone()
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = CloneValue(item)
		}
		return out
	}

	if m, ok := AsMap(v); ok {
		return m.Clone()
	}
	if s, ok := AsSlice(v); ok {
		out := make([]interface{}, len(s))
		for i, item := range s {
			out[i] = CloneValue(item)
		}
		return out
	}
	return v
}

// AsMap reports whether v is a mapping with string keys and returns it as a
// Document. Typed maps are converted element by element.
func AsMap(v interface{}) (Document, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]interface{}:
		return Document(m), true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(Document, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

// AsSlice reports whether v is a sequence and returns its elements. Byte
// slices are treated as scalars.
func AsSlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case []byte, string, nil:
		return nil, false
	case []string:
		out := make([]interface{}, len(s))
		for i, item := range s {
			out[i] = item
		}
		return out, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
