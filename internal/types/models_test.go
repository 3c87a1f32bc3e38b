// internal/types/models_test.go
package types

import (
	"testing"
	"time"
)

func TestMergePatchWins(t *testing.T) {
	base := Document{"session_id": "s1", "status": "created"}
	patch := Document{"status": "archived", "archived_at": "T"}

	got := Merge(base, patch)

	if got["session_id"] != "s1" {
		t.Errorf("expected session_id preserved, got %v", got["session_id"])
	}
	if got["status"] != "archived" {
		t.Errorf("expected patch to win, got %v", got["status"])
	}
	if got["archived_at"] != "T" {
		t.Errorf("expected archived_at added, got %v", got["archived_at"])
	}
	if base["status"] != "created" {
		t.Error("expected base to be unmodified")
	}
}

func TestDocumentAccessors(t *testing.T) {
	doc := Document{"name": "x", "n": 1.0, "nil": nil}
	if doc.String("name") != "x" {
		t.Errorf("unexpected String: %q", doc.String("name"))
	}
	if doc.String("n") != "" {
		t.Error("expected empty String for non-string field")
	}
	if doc.Has("nil") {
		t.Error("expected Has to be false for nil value")
	}
	if _, ok := doc.Get("nil"); !ok {
		t.Error("expected Get to report the key present")
	}
}

func TestTimestampFormat(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 600_000_000, time.UTC)
	if got := Timestamp(at); got != "2024-01-02T03:04:05.600Z" {
		t.Errorf("unexpected timestamp: %s", got)
	}
}

func TestToDocument(t *testing.T) {
	doc, err := ToDocument(struct {
		Path string `json:"path"`
	}{Path: "a.txt"})
	if err != nil {
		t.Fatal(err)
	}
	if doc.String("path") != "a.txt" {
		t.Errorf("unexpected document: %v", doc)
	}
}
