package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/aiwf/internal/types"
)

// TimeFields are consulted in order; the first one present supplies the
// record's timestamp.
var TimeFields = []string{"created_at", "added_at", "started_at", "ts"}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTime accepts RFC 3339 timestamps, zone-less date-times and bare
// dates. Zone-less values are read as UTC.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q", s)
}

// RecordTime returns the record's timestamp and whether one was found and
// parsed.
func RecordTime(rec types.Document) (time.Time, bool) {
	for _, field := range TimeFields {
		v, ok := rec[field]
		if !ok || v == nil {
			continue
		}
		s, isString := v.(string)
		if !isString {
			return time.Time{}, false
		}
		t, err := ParseTime(s)
		if err != nil {
			return time.Time{}, false
		}
		return t, true
	}
	return time.Time{}, false
}

// InRange drops records earlier than since or later than until. Records
// with no timestamp, or one that does not parse, are always kept.
func InRange(records []types.Document, since, until *time.Time) []types.Document {
	out := make([]types.Document, 0, len(records))
	for _, rec := range records {
		t, ok := RecordTime(rec)
		if ok {
			if since != nil && t.Before(*since) {
				continue
			}
			if until != nil && t.After(*until) {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}
