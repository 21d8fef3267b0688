package document

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"
	"time"
)

// number is a normalised numeric value. Integers keep full int64 precision.
type number struct {
	i     int64
	f     float64
	isInt bool
}

func toNumber(v interface{}) (number, bool) {
	switch n := v.(type) {
	case int:
		return number{i: int64(n), isInt: true}, true
	case int8:
		return number{i: int64(n), isInt: true}, true
	case int16:
		return number{i: int64(n), isInt: true}, true
	case int32:
		return number{i: int64(n), isInt: true}, true
	case int64:
		return number{i: n, isInt: true}, true
	case uint:
		return uintNumber(uint64(n)), true
	case uint8:
		return number{i: int64(n), isInt: true}, true
	case uint16:
		return number{i: int64(n), isInt: true}, true
	case uint32:
		return number{i: int64(n), isInt: true}, true
	case uint64:
		return uintNumber(n), true
	case float32:
		return number{f: float64(n)}, true
	case float64:
		return number{f: n}, true
	}
	return number{}, false
}

func uintNumber(n uint64) number {
	if n > math.MaxInt64 {
		return number{f: float64(n)}
	}
	return number{i: int64(n), isInt: true}
}

func (n number) float() float64 {
	if n.isInt {
		return float64(n.i)
	}
	return n.f
}

func compareNumbers(a, b number) int {
	if a.isInt && b.isInt {
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		}
		return 0
	}
	fa, fb := a.float(), b.float()
	switch {
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	}
	return 0
}

// IsNumber reports whether v is any Go numeric kind.
func IsNumber(v interface{}) bool {
	_, ok := toNumber(v)
	return ok
}

// ToFloat converts any numeric kind to float64.
func ToFloat(v interface{}) (float64, bool) {
	n, ok := toNumber(v)
	if !ok {
		return 0, false
	}
	return n.float(), true
}

// ToInt converts an integral value, or a float without a fractional part,
// to int64.
func ToInt(v interface{}) (int64, bool) {
	n, ok := toNumber(v)
	if !ok {
		return 0, false
	}
	if n.isInt {
		return n.i, true
	}
	if n.f != math.Trunc(n.f) || math.IsInf(n.f, 0) || math.IsNaN(n.f) {
		return 0, false
	}
	return int64(n.f), true
}

// AddNumbers sums two numeric values. Two integers produce an integer of
// base's kind (or delta's when base is nil). A sum outside the range of
// base's kind is returned as int64, and one outside int64 as float64.
// Anything else produces float64.
func AddNumbers(base, delta interface{}) (interface{}, bool) {
	d, ok := toNumber(delta)
	if !ok {
		return nil, false
	}
	if base == nil {
		return delta, true
	}
	b, ok := toNumber(base)
	if !ok {
		return nil, false
	}
	if b.isInt && d.isInt {
		sum := b.i + d.i
		if (d.i > 0 && sum < b.i) || (d.i < 0 && sum > b.i) {
			return b.float() + d.float(), true
		}
		if t := reflect.TypeOf(base); fitsKind(sum, t) {
			return reflect.ValueOf(sum).Convert(t).Interface(), true
		}
		return sum, true
	}
	return b.float() + d.float(), true
}

// fitsKind reports whether n is representable in the integer type t.
func fitsKind(n int64, t reflect.Type) bool {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return !v.OverflowInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return n >= 0 && !v.OverflowUint(uint64(n))
	}
	return false
}

// Equal reports deep equality. Numbers compare by value across kinds and
// times compare by instant.
func Equal(a, b interface{}) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if na, ok := toNumber(a); ok {
		nb, ok := toNumber(b)
		return ok && compareNumbers(na, nb) == 0
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	}

	if am, ok := AsMap(a); ok {
		bm, ok := AsMap(b)
		if !ok || len(am) != len(bm) {
			return false
		}
		for k, v := range am {
			bvv, exists := bm[k]
			if !exists || !Equal(v, bvv) {
				return false
			}
		}
		return true
	}

	if as, ok := AsSlice(a); ok {
		bs, ok := AsSlice(b)
		if !ok || len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !Equal(as[i], bs[i]) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(a, b)
}

// Compare orders two values of the same kind: numbers numerically, strings
// lexicographically and times chronologically. The second result is false
// when the values have no common natural ordering.
func Compare(a, b interface{}) (int, bool) {
	if na, ok := toNumber(a); ok {
		nb, ok := toNumber(b)
		if !ok {
			return 0, false
		}
		return compareNumbers(na, nb), true
	}

	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return av.Compare(bv), true
	}
	return 0, false
}

// Type ranks used for cross-type sorting.
const (
	rankNull = iota
	rankNumber
	rankString
	rankDocument
	rankArray
	rankBool
	rankDate
	rankOther
)

func typeRank(v interface{}) int {
	if v == nil {
		return rankNull
	}
	if IsNumber(v) {
		return rankNumber
	}
	switch v.(type) {
	case string:
		return rankString
	case bool:
		return rankBool
	case time.Time:
		return rankDate
	}
	if _, ok := AsMap(v); ok {
		return rankDocument
	}
	if _, ok := AsSlice(v); ok {
		return rankArray
	}
	return rankOther
}

// SortCompare is a total order over values used when sorting results.
// Values of different kinds order as null < numbers < strings < documents
// < arrays < booleans < dates.
func SortCompare(a, b interface{}) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}

	switch ra {
	case rankNull:
		return 0
	case rankNumber, rankString, rankDate:
		c, _ := Compare(a, b)
		return c
	case rankBool:
		ab, bb := a.(bool), b.(bool)
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		}
		return 1
	case rankDocument:
		am, _ := AsMap(a)
		bm, _ := AsMap(b)
		return compareMaps(am, bm)
	case rankArray:
		as, _ := AsSlice(a)
		bs, _ := AsSlice(b)
		for i := 0; i < len(as) && i < len(bs); i++ {
			if c := SortCompare(as[i], bs[i]); c != 0 {
				return c
			}
		}
		return compareInts(len(as), len(bs))
	}
	return strings.Compare(fmt.Sprintf("%v", a), fmt.Sprintf("%v", b))
}

func compareMaps(a, b Document) int {
	ak, bk := sortedKeys(a), sortedKeys(b)
	for i := 0; i < len(ak) && i < len(bk); i++ {
		if c := strings.Compare(ak[i], bk[i]); c != 0 {
			return c
		}
		if c := SortCompare(a[ak[i]], b[bk[i]]); c != 0 {
			return c
		}
	}
	return compareInts(len(ak), len(bk))
}

func sortedKeys(m Document) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
