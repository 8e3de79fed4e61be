// Package history keeps a plain-text journal of generation runs in
// .testgen/history.log, one line per run, newest last.
package history

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FileName is the journal inside the .testgen directory.
const FileName = "history.log"

// Status is the outcome of a run.
type Status string

const (
	StatusOK     Status = "OK"
	StatusFailed Status = "FAIL"
)

// Entry describes one run.
type Entry struct {
	Time      time.Time
	Status    Status
	RunID     string
	OutFile   string
	Questions int
	Attempts  int
	Message   string
}

func (e Entry) line() string {
	ts := e.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	fields := []string{
		ts.UTC().Format(time.RFC3339),
		fmt.Sprintf("%-4s", string(e.Status)),
	}
	if e.RunID != "" {
		fields = append(fields, "run="+e.RunID)
	}
	if e.OutFile != "" {
		fields = append(fields, "out="+e.OutFile)
	}
	if e.Status == StatusOK {
		fields = append(fields, fmt.Sprintf("questions=%d", e.Questions), fmt.Sprintf("attempts=%d", e.Attempts))
	}
	if msg := strings.Join(strings.Fields(e.Message), " "); msg != "" {
		fields = append(fields, msg)
	}
	return strings.Join(fields, " ")
}

// Journal appends run entries to a file.
type Journal struct {
	path string
	mu   sync.Mutex
}

// Open returns a journal writing to path, creating its directory.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: ensure dir: %w", err)
	}
	return &Journal{path: path}, nil
}

// Record appends a single entry.
func (j *Journal) Record(e Entry) error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("history: open: %w", err)
	}
	defer file.Close()
	if _, err := file.WriteString(e.line() + "\n"); err != nil {
		return fmt.Errorf("history: write: %w", err)
	}
	return nil
}

// Tail returns up to maxLines of the most recent entries and the total
// number of entries recorded. A missing journal has no entries.
func (j *Journal) Tail(maxLines int) ([]string, int, error) {
	if j == nil {
		return nil, 0, nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	file, err := os.Open(j.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("history: open: %w", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("history: read: %w", err)
	}
	total := len(lines)
	if maxLines <= 0 {
		return nil, total, nil
	}
	if total > maxLines {
		lines = lines[total-maxLines:]
	}
	return lines, total, nil
}
