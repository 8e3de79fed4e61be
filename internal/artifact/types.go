// Package artifact defines the files a run leaves behind: the rendered LaTeX
// sources and the selection manifest. Each artifact has a stable identifier,
// a kind, and a path relative to the output base name.

package artifact

import (
	"fmt"
	"path/filepath"
	"time"
)

// Kind captures the storage shape and serialization format for an artifact.
type Kind string

const (
	// KindSource is a LaTeX source led by a %-comment provenance header.
	KindSource Kind = "source"
	// KindJSON is a JSON document enriched with a _testgen metadata block.
	KindJSON Kind = "json"
)

// PathResolver returns the fully-qualified path for an output base name.
type PathResolver func(outfile string) string

// Ref declares a stable identifier and metadata for an artifact.
type Ref struct {
	ID   string
	Name string
	Kind Kind
	path PathResolver
}

// Path resolves the artifact path for the provided output base name.
func (r Ref) Path(outfile string) string {
	if outfile == "" || r.path == nil {
		return ""
	}
	return filepath.Clean(r.path(outfile))
}

// Validate ensures the reference is well-formed.
func (r Ref) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("artifact: id is required")
	}
	if r.Kind == "" {
		return fmt.Errorf("artifact: kind is required for %s", r.ID)
	}
	if r.path == nil {
		return fmt.Errorf("artifact: path resolver missing for %s", r.ID)
	}
	return nil
}

// NewSourceRef declares a LaTeX source artifact.
func NewSourceRef(id, name string, resolver PathResolver) Ref {
	return Ref{ID: id, Name: name, Kind: KindSource, path: resolver}
}

// NewJSONRef declares a JSON artifact.
func NewJSONRef(id, name string, resolver PathResolver) Ref {
	return Ref{ID: id, Name: name, Kind: KindJSON, path: resolver}
}

// Metadata captures provenance stored in source headers or JSON metadata blocks.
type Metadata struct {
	ArtifactID string
	RunID      string
	Version    string
	Inputs     []string
	CreatedAt  time.Time
	Checksum   string
	Notes      map[string]string
}

// WithDefaults ensures metadata carries the artifact ID and timestamps.
func (m Metadata) WithDefaults(ref Ref, now time.Time) Metadata {
	clone := m
	if clone.ArtifactID == "" {
		clone.ArtifactID = ref.ID
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = now.UTC()
	} else {
		clone.CreatedAt = clone.CreatedAt.UTC()
	}
	return clone
}

// ValidateFor ensures metadata matches the artifact contract.
func (m Metadata) ValidateFor(ref Ref) error {
	if m.ArtifactID != ref.ID {
		return fmt.Errorf("artifact: metadata id %s does not match ref %s", m.ArtifactID, ref.ID)
	}
	if m.RunID == "" {
		return fmt.Errorf("artifact: run id is required for %s", ref.ID)
	}
	if m.Version == "" {
		return fmt.Errorf("artifact: version is required for %s", ref.ID)
	}
	return nil
}

// State captures the readiness of an artifact on disk.
type State string

const (
	StateMissing State = "missing"
	StateReady   State = "ready"
	StateInvalid State = "invalid"
	StateError   State = "error"
)

// CheckResult captures Store.Check results.
type CheckResult struct {
	Ref      Ref
	Path     string
	State    State
	Metadata *Metadata
	Err      error
}

// Canonical run outputs.
var (
	PlainSource = NewSourceRef("plain-source", "Test", func(outfile string) string { return outfile + ".tex" })
	KeySource   = NewSourceRef("key-source", "Test With Answer Key", func(outfile string) string { return outfile + "_and_key.tex" })
	Manifest    = NewJSONRef("selection-manifest", "Selection Manifest", func(outfile string) string { return outfile + ".selection.json" })
)
