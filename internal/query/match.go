package query

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/user/aiwf/internal/types"
	"golang.org/x/text/cases"
)

// MatchText keeps records whose serialized JSON contains text, compared
// under Unicode case folding.
func MatchText(records []types.Document, text string) []types.Document {
	fold := cases.Fold()
	needle := fold.String(text)

	out := make([]types.Document, 0, len(records))
	for _, rec := range records {
		if strings.Contains(fold.String(serialize(rec)), needle) {
			out = append(out, rec)
		}
	}
	return out
}

// MatchFilters keeps records that satisfy every filter.
func MatchFilters(records []types.Document, filters []Filter) []types.Document {
	out := make([]types.Document, 0, len(records))
	for _, rec := range records {
		if matchesAll(rec, filters) {
			out = append(out, rec)
		}
	}
	return out
}

func matchesAll(rec types.Document, filters []Filter) bool {
	for _, f := range filters {
		if !matches(rec, f) {
			return false
		}
	}
	return true
}

func matches(rec types.Document, f Filter) bool {
	v, ok := rec[f.Key]
	if !ok {
		return false
	}
	switch list := v.(type) {
	case []any:
		for _, elem := range list {
			if Stringify(elem) == f.Value {
				return true
			}
		}
		return false
	case []string:
		for _, elem := range list {
			if elem == f.Value {
				return true
			}
		}
		return false
	}
	return Stringify(v) == f.Value
}

// Stringify renders a field value the way filters compare it: strings as
// is, numbers without exponent or trailing zeros, nil as "null", anything
// else as JSON.
func Stringify(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case json.Number:
		return val.String()
	}
	return serialize(v)
}

// serialize is json.Marshal without HTML escaping, so text queries see
// '<', '>' and '&' as written.
func serialize(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
