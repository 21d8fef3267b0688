package query

import (
	"regexp"

	"github.com/skshohagmiah/docquery/internal/document"
)

// allPredicate is the conjunction of the operators in one operator map.
type allPredicate []Predicate

func (p allPredicate) Test(val interface{}, exists bool) bool {
	for _, pred := range p {
		if !pred.Test(val, exists) {
			return false
		}
	}
	return true
}

// eqPredicate matches equal values, or arrays containing the value. A nil
// operand also matches a missing field.
type eqPredicate struct {
	value interface{}
}

func (p *eqPredicate) Test(val interface{}, exists bool) bool {
	if !exists {
		return p.value == nil
	}
	if document.Equal(val, p.value) {
		return true
	}
	return arrayContains(val, p.value)
}

type notPredicate struct {
	inner Predicate
}

func (p *notPredicate) Test(val interface{}, exists bool) bool {
	return !p.inner.Test(val, exists)
}

// comparePredicate implements $gt, $gte, $lt and $lte. Values without a
// common ordering never match.
type comparePredicate struct {
	op    Operator
	value interface{}
}

func (p *comparePredicate) Test(val interface{}, exists bool) bool {
	if !exists {
		return false
	}
	if p.compare(val) {
		return true
	}
	if list, ok := document.AsSlice(val); ok {
		for _, item := range list {
			if p.compare(item) {
				return true
			}
		}
	}
	return false
}

func (p *comparePredicate) compare(val interface{}) bool {
	c, ok := document.Compare(val, p.value)
	if !ok {
		return false
	}
	switch p.op {
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	}
	return false
}

type inPredicate struct {
	values []interface{}
}

func (p *inPredicate) Test(val interface{}, exists bool) bool {
	for _, candidate := range p.values {
		if re, ok := candidate.(*regexp.Regexp); ok {
			if (&regexPredicate{re: re}).Test(val, exists) {
				return true
			}
			continue
		}
		if (&eqPredicate{value: candidate}).Test(val, exists) {
			return true
		}
	}
	return false
}

type existsPredicate struct {
	want bool
}

func (p *existsPredicate) Test(_ interface{}, exists bool) bool {
	return exists == p.want
}

// regexPredicate searches string values, or string elements of arrays.
type regexPredicate struct {
	re *regexp.Regexp
}

func (p *regexPredicate) Test(val interface{}, exists bool) bool {
	if !exists {
		return false
	}
	if s, ok := val.(string); ok {
		return p.re.MatchString(s)
	}
	if list, ok := document.AsSlice(val); ok {
		for _, item := range list {
			if s, ok := item.(string); ok && p.re.MatchString(s) {
				return true
			}
		}
	}
	return false
}

type containsAllPredicate struct {
	values []interface{}
}

func (p *containsAllPredicate) Test(val interface{}, exists bool) bool {
	if !exists || len(p.values) == 0 {
		return false
	}
	list, ok := document.AsSlice(val)
	if !ok {
		return false
	}
	for _, want := range p.values {
		found := false
		for _, item := range list {
			if document.Equal(item, want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

type sizePredicate struct {
	size int
}

func (p *sizePredicate) Test(val interface{}, exists bool) bool {
	if !exists {
		return false
	}
	list, ok := document.AsSlice(val)
	return ok && len(list) == p.size
}

// elemMatchPredicate matches arrays with at least one element satisfying
// either a sub-filter (doc) or a value condition (value).
type elemMatchPredicate struct {
	doc   Matcher
	value Predicate
}

func (p *elemMatchPredicate) Test(val interface{}, exists bool) bool {
	if !exists {
		return false
	}
	list, ok := document.AsSlice(val)
	if !ok {
		return false
	}
	for _, item := range list {
		if p.value != nil {
			if p.value.Test(item, true) {
				return true
			}
			continue
		}
		if sub, ok := document.AsMap(item); ok && p.doc.Match(sub) {
			return true
		}
	}
	return false
}

func arrayContains(val, want interface{}) bool {
	list, ok := document.AsSlice(val)
	if !ok {
		return false
	}
	for _, item := range list {
		if document.Equal(item, want) {
			return true
		}
	}
	return false
}
