package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

const bankYAML = `- text: What is 2+2?
  responses: ["3", "4"]
  correct: 2
  tags: [arithmetic]
- text: What is 3+3?
  responses: ["6", "7"]
  correct: 1
  tags: [arithmetic]
- text: Solve x+1=2.
  responses: ["0", "1"]
  correct: 2
  tags: [algebra]
`

func setupWorkspace(t *testing.T, exam string) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("TESTGEN_COMPILER", "")
	if err := os.WriteFile("bank.yaml", []byte(bankYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile("exam.yaml", []byte(exam), 0o644); err != nil {
		t.Fatal(err)
	}
}

func execute(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestGenerateWritesBothVariants(t *testing.T) {
	setupWorkspace(t, "include:\n  arithmetic: 1\n  algebra: 1\n")
	code, out, errOut := execute(t, "bank.yaml", "exam.yaml", "--outfile", "quiz", "--no-compile", "--seed", "7")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	for _, name := range []string{"quiz.tex", "quiz_and_key.tex", "quiz.selection.json"} {
		if _, err := os.Stat(name); err != nil {
			t.Fatalf("%s not written: %v", name, err)
		}
		if !strings.Contains(out, name) {
			t.Fatalf("summary should list %s:\n%s", name, out)
		}
	}
	if !strings.Contains(out, "2 questions") || !strings.Contains(out, "not compiled") {
		t.Fatalf("unexpected summary:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(".testgen", "logs", "testgen.log")); err != nil {
		t.Fatalf("run log missing: %v", err)
	}
}

func TestGenerateUsesProjectDefaults(t *testing.T) {
	setupWorkspace(t, "include:\n  algebra: 1\n")
	if err := os.MkdirAll(".testgen", 0o755); err != nil {
		t.Fatal(err)
	}
	settings := "version: 1\ncompiler:\n  name: none\ndefaults:\n  outfile: weekly\n  max_tries: 3\n"
	if err := os.WriteFile(filepath.Join(".testgen", "config.yaml"), []byte(settings), 0o644); err != nil {
		t.Fatal(err)
	}
	code, out, errOut := execute(t, "bank.yaml", "exam.yaml")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if _, err := os.Stat("weekly_and_key.tex"); err != nil {
		t.Fatalf("default outfile not used: %v", err)
	}
	if !strings.Contains(out, "compiled") || strings.Contains(out, "not compiled") {
		t.Fatalf("none compiler should report compiled:\n%s", out)
	}

	code, out, errOut = execute(t, "check", "bank.yaml", "exam.yaml")
	if code != 0 {
		t.Fatalf("check exit %d: %s", code, errOut)
	}
	for _, want := range []string{"ready weekly.tex", "ready weekly_and_key.tex", "ready weekly.selection.json"} {
		if !strings.Contains(out, want) {
			t.Fatalf("check should list %q for the project outfile:\n%s", want, out)
		}
	}
}

func TestGenerateExhaustionExitsWithStatusOne(t *testing.T) {
	setupWorkspace(t, "include:\n  algebra: 2\n")
	code, _, errOut := execute(t, "bank.yaml", "exam.yaml", "--max_tries", "4", "--no-compile")
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if n := strings.Count(errOut, "Tried to assemble the test 4 times"); n != 1 {
		t.Fatalf("stderr should state the bound exactly once, got %d:\n%s", n, errOut)
	}
	if _, err := os.Stat("test.tex"); !os.IsNotExist(err) {
		t.Fatalf("no source should be written on exhaustion")
	}
}

func TestGenerateMissingCompilerFails(t *testing.T) {
	setupWorkspace(t, "include:\n  arithmetic: 1\n")
	code, _, errOut := execute(t, "bank.yaml", "exam.yaml", "--compiler", "testgen-no-such-compiler")
	if code != 1 {
		t.Fatalf("exit = %d, want 1", code)
	}
	if !strings.Contains(errOut, "testgen-no-such-compiler") {
		t.Fatalf("stderr should name the compiler:\n%s", errOut)
	}
	if _, err := os.Stat("test.tex"); err != nil {
		t.Fatalf("sources should remain after a compiler failure: %v", err)
	}
}

func TestArgumentCountIsChecked(t *testing.T) {
	setupWorkspace(t, "include:\n  arithmetic: 1\n")
	code, _, errOut := execute(t, "bank.yaml")
	if code != 1 || !strings.Contains(errOut, "accepts 2 arg(s)") {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
}

func TestCheckReportsEligibility(t *testing.T) {
	setupWorkspace(t, "include:\n  arithmetic: 2\n  algebra: 1\n")
	code, out, errOut := execute(t, "check", "bank.yaml", "exam.yaml")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "3 questions in bank, 3 requested") || !strings.Contains(out, "arithmetic") {
		t.Fatalf("unexpected check output:\n%s", out)
	}
	if strings.Contains(out, "ready") {
		t.Fatalf("no outputs exist yet:\n%s", out)
	}
	if code, _, errOut := execute(t, "bank.yaml", "exam.yaml", "--no-compile"); code != 0 {
		t.Fatalf("generate exit %d: %s", code, errOut)
	}
	if err := os.WriteFile("test_and_key.tex", []byte("\\documentclass{exam}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, out, _ = execute(t, "check", "bank.yaml", "exam.yaml")
	if !strings.Contains(out, "ready test.tex") || !strings.Contains(out, "stale test_and_key.tex") || !strings.Contains(out, "ready test.selection.json") {
		t.Fatalf("expected output states:\n%s", out)
	}

	setupWorkspace(t, "include:\n  algebra: 2\n")
	code, out, errOut = execute(t, "check", "bank.yaml", "exam.yaml")
	if code != 1 || !strings.Contains(out, "short") || !strings.Contains(errOut, "can never be filled") {
		t.Fatalf("expected short report, exit %d\n%s\n%s", code, out, errOut)
	}
}

func TestCheckRejectsMalformedBank(t *testing.T) {
	setupWorkspace(t, "include:\n  arithmetic: 1\n")
	if err := os.WriteFile("bank.yaml", []byte("- text: x\n  responses: [a]\n  correct: 2\n  tags: [arithmetic]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, errOut := execute(t, "check", "bank.yaml", "exam.yaml")
	if code != 1 || !strings.Contains(errOut, "malformed input") {
		t.Fatalf("exit %d, stderr %q", code, errOut)
	}
}

func TestHistoryListsRecordedRuns(t *testing.T) {
	setupWorkspace(t, "include:\n  arithmetic: 1\n")
	code, out, _ := execute(t, "history")
	if code != 0 || !strings.Contains(out, "no runs recorded") {
		t.Fatalf("exit %d, stdout %q", code, out)
	}
	if code, _, errOut := execute(t, "bank.yaml", "exam.yaml", "--no-compile"); code != 0 {
		t.Fatalf("generate exit %d: %s", code, errOut)
	}
	if code, _, _ := execute(t, "bank.yaml", "exam.yaml", "--no-compile", "--max_tries", "0"); code != 1 {
		t.Fatalf("zero tries should fail")
	}
	code, out, errOut := execute(t, "history", "-n", "5")
	if code != 0 {
		t.Fatalf("exit %d: %s", code, errOut)
	}
	if !strings.Contains(out, "OK   run=") || !strings.Contains(out, "FAIL") || !strings.Contains(out, "showing 2 of 2 runs") {
		t.Fatalf("unexpected history:\n%s", out)
	}
}

func TestHistoryRejectsNonPositiveLimit(t *testing.T) {
	setupWorkspace(t, "include:\n  arithmetic: 1\n")
	if code, _, errOut := execute(t, "bank.yaml", "exam.yaml", "--no-compile"); code != 0 {
		t.Fatalf("generate exit %d: %s", code, errOut)
	}
	code, out, errOut := execute(t, "history", "-n", "0")
	if code != 1 || !strings.Contains(errOut, "--lines must be at least 1") {
		t.Fatalf("exit %d, stdout %q, stderr %q", code, out, errOut)
	}
}

// lockedBuffer lets the test read output while the command is still writing.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestWatchRegeneratesAndSurvivesFailures(t *testing.T) {
	setupWorkspace(t, "include:\n  arithmetic: 1\n")
	var stdout, stderr lockedBuffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{"watch", "bank.yaml", "exam.yaml", "--no-compile"}, &stdout, &stderr)
	}()

	regenerations := func() int { return strings.Count(stdout.String(), "questions ·") }
	failures := func() int { return strings.Count(stderr.String(), "error:") }

	waitFor(t, "watch to start", func() bool { return strings.Contains(stdout.String(), "watching") })
	if regenerations() != 1 {
		t.Fatalf("expected the initial generation:\n%s", stdout.String())
	}

	if err := os.WriteFile("exam.yaml", []byte("include:\n  algebra: 5\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "the failed regeneration", func() bool { return failures() == 1 })

	if err := os.WriteFile("exam.yaml", []byte("include:\n  arithmetic: 2\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "the second regeneration", func() bool { return regenerations() == 2 })

	cancel()
	select {
	case code := <-done:
		if code != 0 {
			t.Fatalf("watch exit = %d, stderr:\n%s", code, stderr.String())
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("watch did not stop after cancellation")
	}
	if failures() != 1 {
		t.Fatalf("expected exactly one error line:\n%s", stderr.String())
	}
	if !strings.Contains(stdout.String(), "2 questions") {
		t.Fatalf("second regeneration should use the rewritten exam:\n%s", stdout.String())
	}
}
