package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/user/aiwf/internal/types"
	"gopkg.in/yaml.v3"
)

// Exit codes for CLI commands. A run exits with its child's code instead.
const (
	ExitSuccess = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ValidFormats lists the values accepted by --format.
var ValidFormats = []string{"text", "json", "jsonl", "yaml"}

// ExitError carries a specific exit code out of a command. An empty
// Message with no Err prints nothing.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		if e.Message == "" {
			return e.Err.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func usageError(err error) *ExitError {
	return &ExitError{Code: ExitUsage, Err: err}
}

// GetExitCode maps err to a process exit code. Caller mistakes such as an
// unknown catalog, a malformed reference or a missing confirmation exit 2.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	switch {
	case errors.Is(err, types.ErrUnknownCatalog),
		errors.Is(err, types.ErrInvalidReference),
		errors.Is(err, types.ErrConfirmationRequired):
		return ExitUsage
	}
	return ExitFailure
}

// printer writes documents in the selected --format.
type printer struct {
	format string
	w      io.Writer
}

// list prints docs. In text mode columns picks the table columns; nil
// means the sorted union of keys.
func (p *printer) list(docs []types.Document, columns []string) error {
	switch p.format {
	case "json":
		return p.json(docs)
	case "jsonl":
		for _, d := range docs {
			line, err := json.Marshal(d)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(p.w, "%s\n", line); err != nil {
				return err
			}
		}
		return nil
	case "yaml":
		return p.yaml(docs)
	}

	if len(docs) == 0 {
		_, err := fmt.Fprintln(p.w, "No records found.")
		return err
	}
	if len(columns) == 0 {
		columns = keysOf(docs)
	}
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	header := make([]string, len(columns))
	for i, c := range columns {
		header[i] = strings.ToUpper(c)
	}
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, d := range docs {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = cell(d[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

// record prints one document.
func (p *printer) record(doc types.Document) error {
	switch p.format {
	case "json":
		return p.json(doc)
	case "jsonl":
		line, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(p.w, "%s\n", line)
		return err
	case "yaml":
		return p.yaml(doc)
	}

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%s\n", k, cell(doc[k]))
	}
	return tw.Flush()
}

// message prints a line in text mode and doc otherwise.
func (p *printer) message(doc types.Document, format string, args ...any) error {
	if p.format == "text" {
		_, err := fmt.Fprintf(p.w, format+"\n", args...)
		return err
	}
	return p.record(doc)
}

func (p *printer) json(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(p.w, "%s\n", data)
	return err
}

func (p *printer) yaml(v any) error {
	enc := yaml.NewEncoder(p.w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func keysOf(docs []types.Document) []string {
	seen := map[string]bool{}
	var keys []string
	for _, d := range docs {
		for k := range d {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		return strings.ReplaceAll(x, "\n", `\n`)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return fmt.Sprint(x)
		}
		return string(data)
	}
}
