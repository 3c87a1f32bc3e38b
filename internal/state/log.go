// internal/state/log.go
package state

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/user/aiwf/internal/types"
)

// AppendRecord writes record as one JSON line at the end of the log at path,
// creating the file and its parent directories when absent. The line is
// issued as a single write on an O_APPEND descriptor.
func AppendRecord(path string, record any) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create log dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write record: %w", err)
	}
	return f.Close()
}

// LoadRecords returns every record of the log in append order. A missing
// file is an empty log. Blank lines are skipped; any other line that is not
// a JSON object fails the whole load with a *types.CorruptLogError.
func LoadRecords(path string) ([]types.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	// Lines can carry whole stdout chunks, so read without a token limit.
	var records []types.Document
	r := bufio.NewReader(f)
	lineNo := 0
	for {
		line, readErr := r.ReadBytes('\n')
		if len(line) > 0 {
			lineNo++
			if trimmed := bytes.TrimSpace(line); len(trimmed) > 0 {
				var doc types.Document
				if err := json.Unmarshal(trimmed, &doc); err != nil {
					return nil, &types.CorruptLogError{Path: path, Line: lineNo, Err: err}
				}
				if doc == nil {
					return nil, &types.CorruptLogError{Path: path, Line: lineNo, Err: errors.New("record is not an object")}
				}
				records = append(records, doc)
			}
		}
		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read log: %w", readErr)
		}
	}
	return records, nil
}
