package artifact

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func testStore(t *testing.T) (*Store, string) {
	t.Helper()
	outfile := filepath.Join(t.TempDir(), "out", "midterm")
	return NewStore(outfile, WithClock(func() time.Time { return fixedNow })), outfile
}

func TestWriteSourceRoundTripsHeader(t *testing.T) {
	store, outfile := testStore(t)
	body := []byte("\\documentclass{exam}\n\\begin{document}\n\\end{document}\n")
	meta := Metadata{RunID: "run-1", Version: "dev", Inputs: []string{"bank.yaml", "exam.yaml"}, Checksum: "abc", Notes: map[string]string{"variant": "plain"}}
	path, err := store.Write(PlainSource, body, meta)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	if path != outfile+".tex" {
		t.Fatalf("path = %q, want %q", path, outfile+".tex")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "% testgen:\n") {
		t.Fatalf("source should start with header:\n%s", data)
	}
	parsed, gotBody, err := ParseHeader(data)
	if err != nil {
		t.Fatalf("parse header: %v", err)
	}
	if diff := cmp.Diff(string(body), string(gotBody)); diff != "" {
		t.Fatalf("body mismatch (-want +got):\n%s", diff)
	}
	want := Metadata{ArtifactID: "plain-source", RunID: "run-1", Version: "dev", Inputs: []string{"bank.yaml", "exam.yaml"}, CreatedAt: fixedNow, Checksum: "abc", Notes: map[string]string{"variant": "plain"}}
	if diff := cmp.Diff(want, parsed); diff != "" {
		t.Fatalf("metadata mismatch (-want +got):\n%s", diff)
	}

	result, err := store.Check(PlainSource)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.State != StateReady || result.Metadata.RunID != "run-1" {
		t.Fatalf("unexpected check result: %+v", result)
	}
}

func TestWriteManifestEmbedsMetadata(t *testing.T) {
	store, outfile := testStore(t)
	body := []byte(`{"selection":[3,0,2]}`)
	if _, err := store.Write(Manifest, body, Metadata{RunID: "run-2", Version: "dev", Notes: map[string]string{"seed": "7"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(outfile + ".selection.json")
	if err != nil {
		t.Fatal(err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("manifest is not json: %v", err)
	}
	if _, ok := payload["selection"]; !ok {
		t.Fatalf("body fields lost: %s", data)
	}
	result, err := store.Check(Manifest)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if result.State != StateReady {
		t.Fatalf("state = %s", result.State)
	}
	if result.Metadata.Notes["seed"] != "7" || !result.Metadata.CreatedAt.Equal(fixedNow) {
		t.Fatalf("unexpected metadata: %+v", result.Metadata)
	}
}

func TestCheckReportsMissingAndInvalid(t *testing.T) {
	store, outfile := testStore(t)
	result, err := store.Check(KeySource)
	if err != nil || result.State != StateMissing {
		t.Fatalf("expected missing, got %+v (%v)", result, err)
	}
	if err := os.MkdirAll(filepath.Dir(outfile), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(outfile+"_and_key.tex", []byte("\\documentclass{exam}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	result, err = store.Check(KeySource)
	if !errors.Is(err, ErrMissingHeader) || result.State != StateInvalid {
		t.Fatalf("expected invalid/missing header, got %+v (%v)", result, err)
	}

	// A plain source copied over the key path carries the wrong artifact id.
	if _, err := store.Write(PlainSource, []byte("x"), Metadata{RunID: "r", Version: "v"}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(outfile + ".tex")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(outfile+"_and_key.tex", data, 0o644); err != nil {
		t.Fatal(err)
	}
	result, err = store.Check(KeySource)
	if err == nil || result.State != StateInvalid {
		t.Fatalf("expected id mismatch, got %+v", result)
	}
}

func TestWriteRequiresRunAndVersion(t *testing.T) {
	store, _ := testStore(t)
	if _, err := store.Write(PlainSource, nil, Metadata{Version: "dev"}); err == nil {
		t.Fatalf("expected missing run id error")
	}
	if _, err := store.Write(Manifest, []byte("not json"), Metadata{RunID: "r", Version: "dev"}); err == nil {
		t.Fatalf("expected invalid json body error")
	}
}

func TestParseHeaderRejectsUnclosedBlock(t *testing.T) {
	_, _, err := ParseHeader([]byte("% testgen:\n%   artifact: x\n\\documentclass{exam}\n"))
	if !errors.Is(err, ErrMalformedHeader) {
		t.Fatalf("expected ErrMalformedHeader, got %v", err)
	}
}

func TestCanonicalRefPaths(t *testing.T) {
	cases := map[string]struct {
		ref  Ref
		want string
	}{
		"plain":    {PlainSource, filepath.Join("out", "midterm.tex")},
		"key":      {KeySource, filepath.Join("out", "midterm_and_key.tex")},
		"manifest": {Manifest, filepath.Join("out", "midterm.selection.json")},
	}
	for name, tc := range cases {
		if got := tc.ref.Path(filepath.Join("out", "midterm")); got != tc.want {
			t.Fatalf("%s: path = %q, want %q", name, got, tc.want)
		}
		if err := tc.ref.Validate(); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
}

func TestStringValueAcceptsDecodedJSONScalars(t *testing.T) {
	if got := stringValue("abc"); got != "abc" {
		t.Fatalf("string = %q", got)
	}
	if got := stringValue(float64(7)); got != "7" {
		t.Fatalf("number = %q", got)
	}
	if got := stringValue(map[string]any{"x": 1}); got != "" {
		t.Fatalf("object should not stringify, got %q", got)
	}
}
