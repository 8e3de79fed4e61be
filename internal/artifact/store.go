package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Store manages artifact IO for one output base name.
type Store struct {
	outfile string
	now     func() time.Time
}

// StoreOption customizes a Store during construction.
type StoreOption func(*Store)

// WithClock overrides the clock used for metadata timestamps.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = clock
	}
}

// NewStore builds a store writing next to outfile (a path without extension).
func NewStore(outfile string, opts ...StoreOption) *Store {
	store := &Store{
		outfile: outfile,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Path resolves ref for this store's output base name.
func (s *Store) Path(ref Ref) string {
	return ref.Path(s.outfile)
}

// Check inspects the artifact on disk and returns its status and metadata.
func (s *Store) Check(ref Ref) (CheckResult, error) {
	path := s.Path(ref)
	if path == "" {
		err := fmt.Errorf("artifact: %s path could not be resolved", ref.ID)
		return CheckResult{Ref: ref, Path: path, State: StateError, Err: err}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return CheckResult{Ref: ref, Path: path, State: StateMissing}, nil
		}
		return CheckResult{Ref: ref, Path: path, State: StateError, Err: err}, err
	}
	var meta Metadata
	var metaErr error
	switch ref.Kind {
	case KindJSON:
		meta, metaErr = parseJSONMetadata(data)
	default:
		meta, _, metaErr = ParseHeader(data)
	}
	if metaErr != nil {
		return invalidResult(ref, path, metaErr)
	}
	if meta.ArtifactID != ref.ID {
		return invalidResult(ref, path, fmt.Errorf("artifact: metadata id %s does not match %s", meta.ArtifactID, ref.ID))
	}
	return CheckResult{Ref: ref, Path: path, State: StateReady, Metadata: &meta}, nil
}

// Write persists the artifact contents and metadata based on its kind and
// returns the path written.
func (s *Store) Write(ref Ref, body []byte, meta Metadata) (string, error) {
	if err := ref.Validate(); err != nil {
		return "", err
	}
	path := s.Path(ref)
	if path == "" {
		return "", fmt.Errorf("artifact: %s path could not be resolved", ref.ID)
	}
	prepared := meta.WithDefaults(ref, s.now())
	if err := prepared.ValidateFor(ref); err != nil {
		return "", err
	}
	var content []byte
	var err error
	switch ref.Kind {
	case KindJSON:
		content, err = encodeJSON(ref, body, prepared)
	default:
		content, err = WriteHeader(prepared, body)
	}
	if err != nil {
		return "", err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", err
		}
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("artifact: write %s: %w", path, err)
	}
	return path, nil
}

func encodeJSON(ref Ref, body []byte, meta Metadata) ([]byte, error) {
	if body == nil {
		body = []byte("{}")
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("artifact: invalid json body for %s: %w", ref.ID, err)
	}
	payload["_testgen"] = metadataToJSON(meta)
	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("artifact: encode json for %s: %w", ref.ID, err)
	}
	return append(encoded, '\n'), nil
}

func invalidResult(ref Ref, path string, err error) (CheckResult, error) {
	return CheckResult{Ref: ref, Path: path, State: StateInvalid, Err: err}, err
}

func parseJSONMetadata(data []byte) (Metadata, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return Metadata{}, fmt.Errorf("artifact: parse json metadata: %w", err)
	}
	raw, ok := payload["_testgen"]
	if !ok {
		return Metadata{}, fmt.Errorf("artifact: missing _testgen metadata")
	}
	metaMap, ok := raw.(map[string]any)
	if !ok {
		return Metadata{}, fmt.Errorf("artifact: invalid _testgen metadata structure")
	}
	return metadataFromMap(metaMap)
}

func metadataToJSON(meta Metadata) map[string]any {
	result := map[string]any{
		"artifact": meta.ArtifactID,
		"run":      meta.RunID,
		"version":  meta.Version,
		"inputs":   append([]string{}, meta.Inputs...),
		"created":  meta.CreatedAt.UTC().Format(timeLayout),
	}
	if meta.Checksum != "" {
		result["checksum"] = meta.Checksum
	}
	if len(meta.Notes) > 0 {
		result["notes"] = cloneNotes(meta.Notes)
	}
	return result
}

func metadataFromMap(values map[string]any) (Metadata, error) {
	artifactID := stringValue(values["artifact"])
	runID := stringValue(values["run"])
	version := stringValue(values["version"])
	if artifactID == "" || runID == "" || version == "" {
		return Metadata{}, fmt.Errorf("artifact: incomplete metadata")
	}
	created := stringValue(values["created"])
	if created == "" {
		return Metadata{}, fmt.Errorf("artifact: metadata missing created timestamp")
	}
	timeValue, err := parseTime(created)
	if err != nil {
		return Metadata{}, err
	}
	return Metadata{
		ArtifactID: artifactID,
		RunID:      runID,
		Version:    version,
		Inputs:     sliceStringValue(values["inputs"]),
		CreatedAt:  timeValue,
		Checksum:   stringValue(values["checksum"]),
		Notes:      mapStringValue(values["notes"]),
	}, nil
}

func stringValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

func sliceStringValue(value any) []string {
	arr, ok := value.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s := stringValue(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func mapStringValue(value any) map[string]string {
	raw, ok := value.(map[string]any)
	if !ok || len(raw) == 0 {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s := stringValue(v); s != "" {
			out[k] = s
		}
	}
	return out
}
