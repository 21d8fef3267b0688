package document

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidFieldPath is returned when a path is malformed or a write would
// have to descend through a value that is not a mapping.
var ErrInvalidFieldPath = errors.New("invalid field path")

// SplitPath splits a dotted field path into its segments.
func SplitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidFieldPath)
	}
	parts := strings.Split(path, ".")
	for _, p := range parts {
		if p == "" {
			return nil, fmt.Errorf("%w: empty segment in %q", ErrInvalidFieldPath, path)
		}
	}
	return parts, nil
}

// Lookup resolves a dotted path. The second result is false when any
// segment is missing or an intermediate value is not a mapping.
func Lookup(doc Document, path string) (interface{}, bool) {
	if doc == nil {
		return nil, false
	}
	if !strings.Contains(path, ".") {
		v, ok := doc[path]
		return v, ok
	}

	var cur interface{} = doc
	for _, seg := range strings.Split(path, ".") {
		m, ok := AsMap(cur)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// SetPath writes value at path, creating intermediate Documents as needed.
// The document is modified in place.
func SetPath(doc Document, path string, value interface{}) error {
	parts, err := SplitPath(path)
	if err != nil {
		return err
	}

	cur := doc
	for i, seg := range parts[:len(parts)-1] {
		next, exists := cur[seg]
		if !exists {
			child := make(Document)
			cur[seg] = child
			cur = child
			continue
		}
		child, ok := writableMap(next)
		if !ok {
			return fmt.Errorf("%w: %q is not a document at %q",
				ErrInvalidFieldPath, strings.Join(parts[:i+1], "."), path)
		}
		cur = child
	}
	cur[parts[len(parts)-1]] = value
	return nil
}

// UnsetPath removes the value at path and reports whether it was present.
func UnsetPath(doc Document, path string) bool {
	parts, err := SplitPath(path)
	if err != nil {
		return false
	}

	cur := doc
	for _, seg := range parts[:len(parts)-1] {
		child, ok := writableMap(cur[seg])
		if !ok {
			return false
		}
		cur = child
	}
	last := parts[len(parts)-1]
	if _, ok := cur[last]; !ok {
		return false
	}
	delete(cur, last)
	return true
}

// PathsOverlap reports whether a and b address the same field or one is
// nested under the other.
func PathsOverlap(a, b string) bool {
	if a == b {
		return true
	}
	return strings.HasPrefix(a, b+".") || strings.HasPrefix(b, a+".")
}

func writableMap(v interface{}) (Document, bool) {
	switch m := v.(type) {
	case Document:
		return m, true
	case map[string]interface{}:
		return Document(m), true
	}
	return nil, false
}
