// internal/types/ids.go
package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionID names a session workspace directory.
type SessionID string

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// suffixLen is the length of the random tail on generated ids.
const suffixLen = 4

// TimestampID renders at as YYYYMMDD_HHMMSS in local time.
func TimestampID(at time.Time) string {
	return at.Format("20060102_150405")
}

// MakeID returns {prefix}_{YYYYMMDD}_{HHMMSS}_{rand4}. Ids sort by creation
// second; two ids minted in the same second differ only by the random suffix,
// so uniqueness is probabilistic.
func MakeID(prefix string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s", prefix, TimestampID(at), randomSuffix())
}

// NewID is MakeID at the current time.
func NewID(prefix string) string {
	return MakeID(prefix, time.Now())
}

// NewSessionID returns the timestamp id for at, suffixed with _name when a
// name is given.
func NewSessionID(at time.Time, name string) SessionID {
	id := TimestampID(at)
	if name = strings.TrimSpace(name); name != "" {
		id += "_" + name
	}
	return SessionID(id)
}

func randomSuffix() string {
	return suffixFrom(uuidBytes())
}

// suffixFrom draws suffixLen alphabet characters from next. Bytes at or
// above the largest multiple of the alphabet size are rejected so every
// character is equally likely.
func suffixFrom(next func() byte) string {
	limit := 256 - 256%len(idAlphabet)
	var b strings.Builder
	b.Grow(suffixLen)
	for b.Len() < suffixLen {
		c := int(next())
		if c >= limit {
			continue
		}
		b.WriteByte(idAlphabet[c%len(idAlphabet)])
	}
	return b.String()
}

// uuidBytes yields the random bytes of successive v4 uuids. Bytes 6 and 8
// carry the version and variant bits and are skipped.
func uuidBytes() func() byte {
	var buf uuid.UUID
	i := len(buf)
	return func() byte {
		for {
			if i == len(buf) {
				buf, i = uuid.New(), 0
			}
			j := i
			i++
			if j != 6 && j != 8 {
				return buf[j]
			}
		}
	}
}

// ParseRef splits a "kind:id" reference.
func ParseRef(ref string) (kind, id string, err error) {
	kind, id, ok := strings.Cut(ref, ":")
	kind = strings.TrimSpace(kind)
	id = strings.TrimSpace(id)
	if !ok || kind == "" || id == "" {
		return "", "", fmt.Errorf("%w: %q (want kind:id)", ErrInvalidReference, ref)
	}
	return kind, id, nil
}
