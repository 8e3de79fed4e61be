package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var (
	// ErrMissingHeader indicates the source did not start with a provenance header.
	ErrMissingHeader = errors.New("artifact: missing header")
	// ErrMalformedHeader indicates the header block could not be parsed.
	ErrMalformedHeader = errors.New("artifact: malformed header")
)

const (
	headerPrefix = "% "
	headerEnd    = "%"
)

// ParseHeader extracts the metadata block and body from a source whose first
// lines are YAML behind LaTeX comment markers, closed by a bare "%" line.
func ParseHeader(content []byte) (Metadata, []byte, error) {
	if len(content) == 0 {
		return Metadata{}, nil, ErrMissingHeader
	}
	normalized := normalizeNewlines(content)
	if !bytes.HasPrefix(normalized, []byte(headerPrefix+"testgen:")) {
		return Metadata{}, nil, ErrMissingHeader
	}
	var yamlLines []string
	rest := normalized
	closed := false
	for len(rest) > 0 {
		line := rest
		if idx := bytes.IndexByte(rest, '\n'); idx >= 0 {
			line, rest = rest[:idx], rest[idx+1:]
		} else {
			rest = nil
		}
		if string(line) == headerEnd {
			closed = true
			break
		}
		if !bytes.HasPrefix(line, []byte(headerPrefix)) {
			return Metadata{}, nil, ErrMalformedHeader
		}
		yamlLines = append(yamlLines, string(line[len(headerPrefix):]))
	}
	if !closed {
		return Metadata{}, nil, ErrMalformedHeader
	}
	var envelope headerEnvelope
	if err := yaml.Unmarshal([]byte(strings.Join(yamlLines, "\n")), &envelope); err != nil {
		return Metadata{}, nil, fmt.Errorf("artifact: parse header: %w", err)
	}
	meta, err := envelope.toMetadata()
	if err != nil {
		return Metadata{}, nil, err
	}
	return meta, rest, nil
}

// WriteHeader renders metadata as a commented YAML block followed by body.
func WriteHeader(meta Metadata, body []byte) ([]byte, error) {
	if meta.ArtifactID == "" {
		return nil, fmt.Errorf("artifact: metadata missing artifact id")
	}
	envelope := headerEnvelope{}
	envelope.fromMetadata(meta)
	data, err := yaml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("artifact: encode header: %w", err)
	}
	var buf bytes.Buffer
	for _, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		buf.WriteString(headerPrefix)
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	buf.WriteString(headerEnd + "\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

type headerEnvelope struct {
	Testgen headerMetadata `yaml:"testgen"`
}

type headerMetadata struct {
	Artifact string            `yaml:"artifact"`
	Run      string            `yaml:"run"`
	Version  string            `yaml:"version"`
	Inputs   []string          `yaml:"inputs,omitempty"`
	Created  string            `yaml:"created"`
	Checksum string            `yaml:"checksum,omitempty"`
	Notes    map[string]string `yaml:"notes,omitempty"`
}

func (e headerEnvelope) toMetadata() (Metadata, error) {
	if e.Testgen.Artifact == "" || e.Testgen.Run == "" || e.Testgen.Version == "" {
		return Metadata{}, ErrMalformedHeader
	}
	created, err := parseTime(e.Testgen.Created)
	if err != nil {
		return Metadata{}, fmt.Errorf("artifact: parse created timestamp: %w", err)
	}
	return Metadata{
		ArtifactID: e.Testgen.Artifact,
		RunID:      e.Testgen.Run,
		Version:    e.Testgen.Version,
		Inputs:     append([]string{}, e.Testgen.Inputs...),
		CreatedAt:  created,
		Checksum:   e.Testgen.Checksum,
		Notes:      cloneNotes(e.Testgen.Notes),
	}, nil
}

func (e *headerEnvelope) fromMetadata(meta Metadata) {
	e.Testgen.Artifact = meta.ArtifactID
	e.Testgen.Run = meta.RunID
	e.Testgen.Version = meta.Version
	e.Testgen.Inputs = append([]string{}, meta.Inputs...)
	e.Testgen.Created = meta.CreatedAt.UTC().Format(timeLayout)
	e.Testgen.Checksum = meta.Checksum
	e.Testgen.Notes = cloneNotes(meta.Notes)
}

func cloneNotes(notes map[string]string) map[string]string {
	if len(notes) == 0 {
		return nil
	}
	cloned := make(map[string]string, len(notes))
	for k, v := range notes {
		cloned[k] = v
	}
	return cloned
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func parseTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("artifact: empty created timestamp")
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func normalizeNewlines(content []byte) []byte {
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
}
