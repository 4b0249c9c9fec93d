// Package auditlog keeps an append-only record of submission outcomes, so
// rejected payloads can be inspected after a run.
package auditlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fireflybt/fireflybt/internal/model"
)

// Entry is one submission outcome.
type Entry struct {
	Timestamp  time.Time           `json:"timestamp"`
	ExternalID string              `json:"external_id"`
	Action     string              `json:"action"` // created, exists, failed
	Detail     string              `json:"detail,omitempty"`
	Payload    *model.StoreRequest `json:"payload,omitempty"`
}

const (
	logDir  = "logs"
	logFile = "logs/submissions.jsonl"
)

// Append writes entries to <root>/logs/submissions.jsonl, creating the file
// if needed. One JSON object per line.
func Append(root string, entries []Entry) error {
	dir := filepath.Join(root, logDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}

	path := filepath.Join(root, logFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for i, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("writing entry %d: %w", i, err)
		}
	}
	return nil
}

// Read returns all entries from <root>/logs/submissions.jsonl.
// Returns nil if the file does not exist.
func Read(root string) ([]Entry, error) {
	path := filepath.Join(root, logFile)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening audit log: %w", err)
	}
	defer f.Close()

	return readEntries(f)
}

func readEntries(r io.Reader) ([]Entry, error) {
	var entries []Entry

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading audit log: %w", err)
	}
	return entries, nil
}
