package query

import (
	"fmt"

	"github.com/skshohagmiah/docquery/internal/document"
)

// updateOrder fixes the order operators are applied in. Paths never overlap
// across operators, so the order is only observable in error reporting.
var updateOrder = []string{OpSet, OpUnset, OpInc, OpPush, OpAddToSet, OpPull, OpPop}

type fieldUpdate struct {
	op      string
	path    string
	operand interface{}
}

// Apply returns a copy of doc with update applied. doc is never modified.
func Apply(doc document.Document, update Update) (document.Document, error) {
	out, _, err := ApplyChanges(doc, update)
	return out, err
}

// ApplyChanges is Apply that also reports whether the result differs from
// doc, e.g. false for an $addToSet of a value already present or an $unset
// of a missing field.
func ApplyChanges(doc document.Document, update Update) (document.Document, bool, error) {
	changes, err := parseUpdate(update)
	if err != nil {
		return nil, false, err
	}

	out := doc.Clone()
	if out == nil {
		out = make(document.Document)
	}

	for _, ch := range changes {
		if err := applyField(out, ch); err != nil {
			return nil, false, fmt.Errorf("%s %q: %w", ch.op, ch.path, err)
		}
	}

	return out, !document.Equal(doc, out), nil
}

// ValidateUpdate checks an update expression without applying it.
func ValidateUpdate(update Update) error {
	_, err := parseUpdate(update)
	return err
}

func parseUpdate(update Update) ([]fieldUpdate, error) {
	if len(update) == 0 {
		return nil, fmt.Errorf("%w: empty update", ErrBadValue)
	}

	known := make(map[string]bool, len(updateOrder))
	for _, op := range updateOrder {
		known[op] = true
	}
	for key := range update {
		if !isOperatorKey(key) {
			return nil, fmt.Errorf("%w: update field %q is not an operator", ErrBadValue, key)
		}
		if !known[key] {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperator, key)
		}
	}

	var changes []fieldUpdate
	for _, op := range updateOrder {
		raw, ok := update[op]
		if !ok {
			continue
		}
		fields, ok := document.AsMap(raw)
		if !ok {
			return nil, fmt.Errorf("%w: operand of %s must be an object", ErrBadValue, op)
		}
		for _, path := range sortedKeys(fields) {
			if _, err := document.SplitPath(path); err != nil {
				return nil, err
			}
			if isOperatorKey(path) {
				return nil, fmt.Errorf("%w: %s field %q", ErrInvalidFieldPath, op, path)
			}
			changes = append(changes, fieldUpdate{op: op, path: path, operand: fields[path]})
		}
	}

	for i := range changes {
		for j := i + 1; j < len(changes); j++ {
			if document.PathsOverlap(changes[i].path, changes[j].path) {
				return nil, fmt.Errorf("%w: %q (%s) and %q (%s)", ErrConflictingUpdate,
					changes[i].path, changes[i].op, changes[j].path, changes[j].op)
			}
		}
	}

	return changes, nil
}

func applyField(doc document.Document, ch fieldUpdate) error {
	if document.PathsOverlap(ch.path, document.IDField) {
		cur, exists := doc[document.IDField]
		if !(ch.op == OpSet && ch.path == document.IDField && (!exists || document.Equal(cur, ch.operand))) {
			return fmt.Errorf("%w: %s", ErrImmutableField, document.IDField)
		}
	}

	switch ch.op {
	case OpSet:
		return document.SetPath(doc, ch.path, document.CloneValue(ch.operand))
	case OpUnset:
		document.UnsetPath(doc, ch.path)
		return nil
	case OpInc:
		return applyInc(doc, ch.path, ch.operand)
	case OpPush:
		return applyPush(doc, ch.path, ch.operand)
	case OpAddToSet:
		return applyAddToSet(doc, ch.path, ch.operand)
	case OpPull:
		return applyPull(doc, ch.path, ch.operand)
	case OpPop:
		return applyPop(doc, ch.path, ch.operand)
	}
	return fmt.Errorf("%w: %s", ErrUnsupportedOperator, ch.op)
}

func applyInc(doc document.Document, path string, delta interface{}) error {
	if !document.IsNumber(delta) {
		return fmt.Errorf("%w: $inc needs a numeric operand", ErrBadValue)
	}
	cur, exists := document.Lookup(doc, path)
	if exists && !document.IsNumber(cur) {
		return fmt.Errorf("%w: cannot increment non-numeric value %v", ErrTypeMismatch, cur)
	}
	sum, ok := document.AddNumbers(cur, delta)
	if !ok {
		return fmt.Errorf("%w: cannot increment %v", ErrTypeMismatch, cur)
	}
	return document.SetPath(doc, path, sum)
}

// arrayAt resolves path as an array. A missing field yields an empty array.
func arrayAt(doc document.Document, path string) ([]interface{}, bool, error) {
	cur, exists := document.Lookup(doc, path)
	if !exists {
		return []interface{}{}, false, nil
	}
	list, ok := document.AsSlice(cur)
	if !ok {
		return nil, true, fmt.Errorf("%w: value %v is not an array", ErrTypeMismatch, cur)
	}
	out := make([]interface{}, len(list))
	copy(out, list)
	return out, true, nil
}

// pushArgs splits a $push/$addToSet operand into values and an optional
// $slice count.
func pushArgs(op string, operand interface{}, allowSlice bool) ([]interface{}, *int64, error) {
	m, ok := document.AsMap(operand)
	if !ok || !hasOperatorKey(m) {
		return []interface{}{operand}, nil, nil
	}

	each, hasEach := m[ModEach]
	if !hasEach {
		return nil, nil, fmt.Errorf("%w: %s modifiers need %s", ErrBadValue, op, ModEach)
	}
	values, ok := document.AsSlice(each)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s must be an array", ErrBadValue, ModEach)
	}

	var slice *int64
	for key, val := range m {
		switch {
		case key == ModEach:
		case key == ModSlice && allowSlice:
			n, ok := document.ToInt(val)
			if !ok {
				return nil, nil, fmt.Errorf("%w: %s must be an integer", ErrBadValue, ModSlice)
			}
			slice = &n
		case isOperatorKey(key):
			return nil, nil, fmt.Errorf("%w: %s modifier %s", ErrUnsupportedOperator, op, key)
		default:
			return nil, nil, fmt.Errorf("%w: unexpected field %q in %s", ErrBadValue, key, op)
		}
	}
	return values, slice, nil
}

func applyPush(doc document.Document, path string, operand interface{}) error {
	values, slice, err := pushArgs(OpPush, operand, true)
	if err != nil {
		return err
	}
	list, _, err := arrayAt(doc, path)
	if err != nil {
		return err
	}

	for _, v := range values {
		list = append(list, document.CloneValue(v))
	}

	if slice != nil {
		n := int(*slice)
		switch {
		case n >= 0 && n < len(list):
			list = list[:n]
		case n < 0 && -n < len(list):
			list = list[len(list)+n:]
		}
	}

	return document.SetPath(doc, path, list)
}

func applyAddToSet(doc document.Document, path string, operand interface{}) error {
	values, _, err := pushArgs(OpAddToSet, operand, false)
	if err != nil {
		return err
	}
	list, _, err := arrayAt(doc, path)
	if err != nil {
		return err
	}

	for _, v := range values {
		if !arrayContains(list, v) {
			list = append(list, document.CloneValue(v))
		}
	}

	return document.SetPath(doc, path, list)
}

func applyPull(doc document.Document, path string, operand interface{}) error {
	match, err := compileElementMatcher(operand)
	if err != nil {
		return err
	}
	list, exists, err := arrayAt(doc, path)
	if err != nil || !exists {
		return err
	}

	kept := make([]interface{}, 0, len(list))
	for _, item := range list {
		if !match(item) {
			kept = append(kept, item)
		}
	}
	return document.SetPath(doc, path, kept)
}

func applyPop(doc document.Document, path string, operand interface{}) error {
	n, ok := document.ToInt(operand)
	if !ok || n == 0 {
		return fmt.Errorf("%w: $pop needs 1 or -1", ErrBadValue)
	}
	list, exists, err := arrayAt(doc, path)
	if err != nil || !exists || len(list) == 0 {
		return err
	}

	if n > 0 {
		list = list[:len(list)-1]
	} else {
		list = list[1:]
	}
	return document.SetPath(doc, path, list)
}
