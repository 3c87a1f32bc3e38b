package query

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/user/aiwf/internal/types"
)

// Sort orders records by key, ascending unless order is Desc. The sort is
// stable. Records without the key (or with a nil value) follow all records
// that have it, in input order, whichever the direction.
func Sort(records []types.Document, key string, order Order) []types.Document {
	present := make([]types.Document, 0, len(records))
	var missing []types.Document
	for _, rec := range records {
		if rec.Has(key) {
			present = append(present, rec)
		} else {
			missing = append(missing, rec)
		}
	}

	slices.SortStableFunc(present, func(a, b types.Document) int {
		c := Compare(a[key], b[key])
		if order == Desc {
			return -c
		}
		return c
	})
	return append(present, missing...)
}

// Value classes in ascending order. Values of different classes compare by
// class alone, so Compare is a total order.
const (
	classNumber = iota
	classBool
	classTime
	classString
	classOther
)

// Compare orders two field values. Numbers come first and compare
// numerically, then bools (false first), then strings that parse as times
// (chronologically), then other strings (lexicographically), then
// everything else by its string form.
func Compare(a, b any) int {
	ca, ta := classify(a)
	cb, tb := classify(b)
	if ca != cb {
		return cmp.Compare(ca, cb)
	}
	switch ca {
	case classNumber:
		x, _ := number(a)
		y, _ := number(b)
		return cmp.Compare(x, y)
	case classBool:
		x, y := a.(bool), b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		default:
			return 1
		}
	case classTime:
		return ta.Compare(tb)
	case classString:
		return strings.Compare(a.(string), b.(string))
	}
	return strings.Compare(Stringify(a), Stringify(b))
}

func classify(v any) (int, time.Time) {
	if _, ok := number(v); ok {
		return classNumber, time.Time{}
	}
	switch x := v.(type) {
	case bool:
		return classBool, time.Time{}
	case string:
		if t, err := ParseTime(x); err == nil {
			return classTime, t
		}
		return classString, time.Time{}
	}
	return classOther, time.Time{}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
