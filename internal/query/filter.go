package query

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/skshohagmiah/docquery/internal/document"
)

// Matcher decides whether a document satisfies a compiled filter.
type Matcher interface {
	Match(doc document.Document) bool
}

// LogicalNode represents $and/$or/$nor over child matchers. The implicit
// conjunction of the keys of one filter map is an $and node.
type LogicalNode struct {
	Operator Operator
	Children []Matcher
}

// Match implements Matcher.
func (n *LogicalNode) Match(doc document.Document) bool {
	switch n.Operator {
	case OpAnd:
		for _, child := range n.Children {
			if !child.Match(doc) {
				return false
			}
		}
		return true
	case OpOr:
		for _, child := range n.Children {
			if child.Match(doc) {
				return true
			}
		}
		return false
	case OpNor:
		for _, child := range n.Children {
			if child.Match(doc) {
				return false
			}
		}
		return true
	}
	return false
}

// FieldNode represents the predicate attached to one field path.
type FieldNode struct {
	Field     string
	Predicate Predicate
}

// Match implements Matcher.
func (n *FieldNode) Match(doc document.Document) bool {
	val, exists := document.Lookup(doc, n.Field)
	return n.Predicate.Test(val, exists)
}

// Predicate tests a resolved field value. exists is false when the path
// did not resolve.
type Predicate interface {
	Test(val interface{}, exists bool) bool
}

// Compile parses a filter expression into a Matcher.
func Compile(filter Filter) (Matcher, error) {
	return compileFilter(filter)
}

// Matches reports whether doc satisfies filter. An empty filter matches
// every document.
func Matches(doc document.Document, filter Filter) (bool, error) {
	m, err := Compile(filter)
	if err != nil {
		return false, err
	}
	return m.Match(doc), nil
}

func compileFilter(filter document.Document) (*LogicalNode, error) {
	root := &LogicalNode{Operator: OpAnd}

	for _, key := range sortedKeys(filter) {
		val := filter[key]

		if isOperatorKey(key) {
			op := Operator(key)
			switch op {
			case OpAnd, OpOr, OpNor:
				node, err := compileLogical(op, val)
				if err != nil {
					return nil, err
				}
				root.Children = append(root.Children, node)
			default:
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperator, key)
			}
			continue
		}

		if _, err := document.SplitPath(key); err != nil {
			return nil, err
		}
		pred, err := compilePredicate(val)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		root.Children = append(root.Children, &FieldNode{Field: key, Predicate: pred})
	}

	return root, nil
}

func compileLogical(op Operator, val interface{}) (*LogicalNode, error) {
	list, ok := document.AsSlice(val)
	if !ok {
		return nil, fmt.Errorf("%w: value for %s must be a list", ErrBadValue, op)
	}
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s must be a non-empty list", ErrBadValue, op)
	}

	node := &LogicalNode{Operator: op, Children: make([]Matcher, 0, len(list))}
	for _, item := range list {
		sub, ok := document.AsMap(item)
		if !ok {
			return nil, fmt.Errorf("%w: element of %s must be an object", ErrBadValue, op)
		}
		child, err := compileFilter(sub)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return node, nil
}

// compilePredicate turns the right-hand side of a field key into a
// Predicate: an operator map, a regular expression, or a literal.
func compilePredicate(val interface{}) (Predicate, error) {
	if re, ok := val.(*regexp.Regexp); ok {
		return &regexPredicate{re: re}, nil
	}
	if m, ok := document.AsMap(val); ok && hasOperatorKey(m) {
		return compileOperators(m)
	}
	return &eqPredicate{value: val}, nil
}

func compileOperators(ops document.Document) (Predicate, error) {
	all := allPredicate{}

	if _, hasOptions := ops[string(OpOptions)]; hasOptions {
		if _, hasRegex := ops[string(OpRegex)]; !hasRegex {
			return nil, fmt.Errorf("%w: $options needs a $regex", ErrBadValue)
		}
	}

	for _, key := range sortedKeys(ops) {
		operand := ops[key]
		var (
			pred Predicate
			err  error
		)

		switch Operator(key) {
		case OpEq:
			pred = &eqPredicate{value: operand}
		case OpNe:
			pred = &notPredicate{inner: &eqPredicate{value: operand}}
		case OpGt, OpGte, OpLt, OpLte:
			pred = &comparePredicate{op: Operator(key), value: operand}
		case OpIn, OpNin:
			list, ok := document.AsSlice(operand)
			if !ok {
				return nil, fmt.Errorf("%w: %s needs an array", ErrBadValue, key)
			}
			pred = &inPredicate{values: list}
			if Operator(key) == OpNin {
				pred = &notPredicate{inner: pred}
			}
		case OpExists:
			want, ok := truthy(operand)
			if !ok {
				return nil, fmt.Errorf("%w: $exists needs a boolean", ErrBadValue)
			}
			pred = &existsPredicate{want: want}
		case OpRegex:
			opts, _ := ops[string(OpOptions)].(string)
			pred, err = compileRegex(operand, opts)
		case OpOptions:
			if _, ok := operand.(string); !ok {
				return nil, fmt.Errorf("%w: $options must be a string", ErrBadValue)
			}
			continue
		case OpAll:
			list, ok := document.AsSlice(operand)
			if !ok {
				return nil, fmt.Errorf("%w: $all needs an array", ErrBadValue)
			}
			pred = &containsAllPredicate{values: list}
		case OpSize:
			n, ok := document.ToInt(operand)
			if !ok || n < 0 {
				return nil, fmt.Errorf("%w: $size needs a non-negative integer", ErrBadValue)
			}
			pred = &sizePredicate{size: int(n)}
		case OpElemMatch:
			pred, err = compileElemMatch(operand)
		case OpNot:
			pred, err = compileNot(operand)
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedOperator, key)
		}
		if err != nil {
			return nil, err
		}
		all = append(all, pred)
	}

	return all, nil
}

func compileRegex(pattern interface{}, options string) (Predicate, error) {
	var src string
	switch p := pattern.(type) {
	case string:
		src = p
	case *regexp.Regexp:
		src = p.String()
	default:
		return nil, fmt.Errorf("%w: $regex needs a string pattern", ErrBadValue)
	}

	var flags strings.Builder
	for _, f := range options {
		switch f {
		case 'i', 'm', 's':
			if !strings.ContainsRune(flags.String(), f) {
				flags.WriteRune(f)
			}
		default:
			return nil, fmt.Errorf("%w: unsupported regex option %q", ErrBadValue, f)
		}
	}
	if flags.Len() > 0 {
		src = "(?" + flags.String() + ")" + src
	}

	re, err := regexp.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadValue, err)
	}
	return &regexPredicate{re: re}, nil
}

func compileElemMatch(operand interface{}) (Predicate, error) {
	sub, ok := document.AsMap(operand)
	if !ok {
		return nil, fmt.Errorf("%w: $elemMatch needs an object", ErrBadValue)
	}
	if isValueCondition(sub) {
		pred, err := compileOperators(sub)
		if err != nil {
			return nil, err
		}
		return &elemMatchPredicate{value: pred}, nil
	}
	m, err := compileFilter(sub)
	if err != nil {
		return nil, err
	}
	return &elemMatchPredicate{doc: m}, nil
}

func compileNot(operand interface{}) (Predicate, error) {
	if re, ok := operand.(*regexp.Regexp); ok {
		return &notPredicate{inner: &regexPredicate{re: re}}, nil
	}
	m, ok := document.AsMap(operand)
	if !ok || !isOperatorMap(m) {
		return nil, fmt.Errorf("%w: $not needs an operator expression or a regex", ErrBadValue)
	}
	inner, err := compileOperators(m)
	if err != nil {
		return nil, err
	}
	return &notPredicate{inner: inner}, nil
}

// isValueCondition reports whether m is an operator map that applies to a
// value rather than a filter over a sub-document.
func isValueCondition(m document.Document) bool {
	if !isOperatorMap(m) {
		return false
	}
	for k := range m {
		switch Operator(k) {
		case OpAnd, OpOr, OpNor:
			return false
		}
	}
	return true
}

// compileElementMatcher builds the per-element test used by $pull. A
// document operand is a filter over document elements, an operator map
// applies to the element value, and anything else is deep equality.
func compileElementMatcher(operand interface{}) (func(interface{}) bool, error) {
	if re, ok := operand.(*regexp.Regexp); ok {
		pred := &regexPredicate{re: re}
		return func(el interface{}) bool { return pred.Test(el, true) }, nil
	}

	m, ok := document.AsMap(operand)
	if !ok {
		return func(el interface{}) bool { return document.Equal(el, operand) }, nil
	}

	if isValueCondition(m) {
		pred, err := compileOperators(m)
		if err != nil {
			return nil, err
		}
		return func(el interface{}) bool { return pred.Test(el, true) }, nil
	}

	matcher, err := compileFilter(m)
	if err != nil {
		return nil, err
	}
	return func(el interface{}) bool {
		sub, ok := document.AsMap(el)
		return ok && matcher.Match(sub)
	}, nil
}

// EqualityFields extracts the field equalities a filter pins down: literal
// predicates, $eq operators and those nested in $and. Used to seed upserts.
func EqualityFields(filter Filter) document.Document {
	out := make(document.Document)
	collectEqualities(filter, out)
	return out
}

func collectEqualities(filter document.Document, out document.Document) {
	for key, val := range filter {
		if Operator(key) == OpAnd {
			list, _ := document.AsSlice(val)
			for _, item := range list {
				if sub, ok := document.AsMap(item); ok {
					collectEqualities(sub, out)
				}
			}
			continue
		}
		if isOperatorKey(key) {
			continue
		}
		if _, ok := val.(*regexp.Regexp); ok {
			continue
		}
		if m, ok := document.AsMap(val); ok && hasOperatorKey(m) {
			if eq, ok := m[string(OpEq)]; ok {
				out[key] = document.CloneValue(eq)
			}
			continue
		}
		out[key] = document.CloneValue(val)
	}
}

func truthy(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case nil:
		return false, false
	}
	if f, ok := document.ToFloat(v); ok {
		return f != 0, true
	}
	return false, false
}

func sortedKeys(m document.Document) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
