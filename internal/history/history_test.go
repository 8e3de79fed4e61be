package history

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestTailReturnsRecentLinesAndTotal(t *testing.T) {
	journal, err := Open(filepath.Join(t.TempDir(), "state", FileName))
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := journal.Record(Entry{Status: StatusOK, RunID: "run-" + string(rune('a'+i)), OutFile: "quiz", Questions: 3, Attempts: i + 1}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	lines, total, err := journal.Tail(3)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if total != 5 {
		t.Fatalf("total lines = %d, want 5", total)
	}
	if len(lines) != 3 {
		t.Fatalf("len(lines) = %d, want 3", len(lines))
	}
	for idx, want := range []string{"run-c", "run-d", "run-e"} {
		if !strings.Contains(lines[idx], want) {
			t.Fatalf("line %d = %q, missing %s", idx, lines[idx], want)
		}
	}
}

func TestEntryLineFormats(t *testing.T) {
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	ok := Entry{Time: at, Status: StatusOK, RunID: "r1", OutFile: "midterm", Questions: 4, Attempts: 2}.line()
	if ok != "2026-05-01T08:00:00Z OK   run=r1 out=midterm questions=4 attempts=2" {
		t.Fatalf("unexpected ok line: %q", ok)
	}
	failed := Entry{Time: at, Status: StatusFailed, OutFile: "midterm", Message: "Tried to assemble\nthe test 4 times."}.line()
	if failed != "2026-05-01T08:00:00Z FAIL out=midterm Tried to assemble the test 4 times." {
		t.Fatalf("unexpected failure line: %q", failed)
	}
}

func TestTailOfMissingJournalIsEmpty(t *testing.T) {
	journal, err := Open(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	lines, total, err := journal.Tail(10)
	if err != nil || total != 0 || lines != nil {
		t.Fatalf("expected empty tail, got %v %d %v", lines, total, err)
	}
}

func TestTailWithoutLinesStillCountsEntries(t *testing.T) {
	journal, err := Open(filepath.Join(t.TempDir(), FileName))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := journal.Record(Entry{Status: StatusFailed, OutFile: "quiz", Message: "boom"}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	lines, total, err := journal.Tail(0)
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if lines != nil || total != 2 {
		t.Fatalf("expected no lines and total 2, got %v %d", lines, total)
	}
}
