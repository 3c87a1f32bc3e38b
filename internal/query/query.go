package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/user/aiwf/internal/types"
)

// Order is a sort direction.
type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// Filter keeps records whose Key field equals Value, or contains Value when
// the field is a list. Comparison is on string forms.
type Filter struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value"`
}

// Query is a declarative description of what Run should return. The zero
// value returns its input unchanged.
type Query struct {
	Text      string     `json:"q,omitempty"`
	Filters   []Filter   `json:"filters,omitempty" validate:"dive"`
	Since     *time.Time `json:"since,omitempty"`
	Until     *time.Time `json:"until,omitempty"`
	SortKey   string     `json:"sort,omitempty"`
	SortOrder Order      `json:"order,omitempty" validate:"omitempty,oneof=asc desc"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
	Fields    []string   `json:"fields,omitempty"`
}

var validate = validator.New()

// Validate checks the query's shape. Limits and offsets are never invalid:
// values <= 0 mean no limit and no offset.
func (q Query) Validate() error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("invalid query: %w", err)
	}
	if q.Since != nil && q.Until != nil && q.Until.Before(*q.Since) {
		return fmt.Errorf("invalid query: until %s is before since %s",
			types.Timestamp(*q.Until), types.Timestamp(*q.Since))
	}
	return nil
}

// Run evaluates q over records.
func Run(records []types.Document, q Query) []types.Document {
	out := records
	if q.Text != "" {
		out = MatchText(out, q.Text)
	}
	if len(q.Filters) > 0 {
		out = MatchFilters(out, q.Filters)
	}
	if q.Since != nil || q.Until != nil {
		out = InRange(out, q.Since, q.Until)
	}
	if q.SortKey != "" {
		out = Sort(out, q.SortKey, q.SortOrder)
	}
	out = Paginate(out, q.Offset, q.Limit)
	if len(q.Fields) > 0 {
		out = Project(out, q.Fields)
	}
	if out == nil {
		out = []types.Document{}
	}
	return out
}

// Paginate drops the first offset records and keeps at most limit of the
// rest. offset <= 0 drops nothing; limit <= 0 keeps everything.
func Paginate(records []types.Document, offset, limit int) []types.Document {
	if offset > 0 {
		if offset >= len(records) {
			return []types.Document{}
		}
		records = records[offset:]
	}
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	out := make([]types.Document, len(records))
	copy(out, records)
	return out
}

// Missing is what Project substitutes for an absent field.
var Missing any = nil

// Project replaces each record with one holding exactly fields. Absent
// fields are set to Missing.
func Project(records []types.Document, fields []string) []types.Document {
	out := make([]types.Document, 0, len(records))
	for _, rec := range records {
		projected := make(types.Document, len(fields))
		for _, f := range fields {
			if v, ok := rec[f]; ok {
				projected[f] = v
			} else {
				projected[f] = Missing
			}
		}
		out = append(out, projected)
	}
	return out
}

// ParseFilter reads "key=value". Only the first '=' splits, so values may
// contain '='.
func ParseFilter(s string) (Filter, error) {
	key, value, ok := strings.Cut(s, "=")
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return Filter{}, fmt.Errorf("invalid filter %q (want key=value)", s)
	}
	return Filter{Key: key, Value: value}, nil
}

// ParseFields splits a comma-separated field list, dropping blanks.
func ParseFields(s string) []string {
	var fields []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	return fields
}
