package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/testgen/internal/bank"
	"github.com/kingrea/testgen/internal/sampler"
)

const (
	defaultTitle        = "Multiple Choice Test"
	defaultInstructions = `Answer the questions in the spaces provided on the question sheets. If you run out of room for an answer, continue on the back of the page.`
)

// Document configures the fixed parts of the rendered test.
type Document struct {
	Title        string `yaml:"title"`
	Instructions string `yaml:"instructions"`
}

// Exam is a per-run test configuration: which tags to draw, in order and
// how many of each, and which tags make an item ineligible.
type Exam struct {
	Quotas   []sampler.Quota
	Exclude  []string
	Document Document
}

type examFile struct {
	Include  yaml.Node `yaml:"include"`
	Exclude  []string  `yaml:"exclude"`
	Document Document  `yaml:"document"`
}

// LoadExam reads the exam configuration at path.
func LoadExam(path string) (*Exam, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	exam, err := ParseExam(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return exam, nil
}

// ParseExam decodes an exam configuration. The include mapping is read in
// document order because earlier tags consume items before later ones.
func ParseExam(data []byte) (*Exam, error) {
	var raw examFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: include is required", bank.ErrMalformedInput)
		}
		return nil, fmt.Errorf("%w: parse: %v", bank.ErrMalformedInput, err)
	}
	quotas, err := decodeQuotas(&raw.Include)
	if err != nil {
		return nil, err
	}
	exam := &Exam{
		Quotas:   quotas,
		Document: raw.Document,
	}
	for i, tag := range raw.Exclude {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return nil, fmt.Errorf("%w: exclude[%d] is blank", bank.ErrMalformedInput, i)
		}
		exam.Exclude = append(exam.Exclude, tag)
	}
	exam.Document.applyDefaults()
	return exam, nil
}

func decodeQuotas(node *yaml.Node) ([]sampler.Quota, error) {
	if node.Kind == 0 {
		return nil, fmt.Errorf("%w: include is required", bank.ErrMalformedInput)
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: include must map tags to counts (line %d)", bank.ErrMalformedInput, node.Line)
	}
	quotas := make([]sampler.Quota, 0, len(node.Content)/2)
	seen := map[string]struct{}{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valueNode := node.Content[i], node.Content[i+1]
		tag := strings.TrimSpace(keyNode.Value)
		if tag == "" {
			return nil, fmt.Errorf("%w: include has a blank tag (line %d)", bank.ErrMalformedInput, keyNode.Line)
		}
		if _, dup := seen[tag]; dup {
			return nil, fmt.Errorf("%w: include lists %q twice (line %d)", bank.ErrMalformedInput, tag, keyNode.Line)
		}
		seen[tag] = struct{}{}
		var count int
		if err := valueNode.Decode(&count); err != nil {
			return nil, fmt.Errorf("%w: include.%s must be an integer (line %d)", bank.ErrMalformedInput, tag, valueNode.Line)
		}
		if count < 0 {
			return nil, fmt.Errorf("%w: include.%s must be >= 0, got %d", bank.ErrMalformedInput, tag, count)
		}
		quotas = append(quotas, sampler.Quota{Tag: tag, Count: count})
	}
	return quotas, nil
}

// ExcludeSet returns the excluded tags as a set.
func (e *Exam) ExcludeSet() sampler.TagSet {
	return sampler.NewTagSet(e.Exclude...)
}

// TotalItems is the number of items a successful selection contains.
func (e *Exam) TotalItems() int {
	total := 0
	for _, q := range e.Quotas {
		total += q.Count
	}
	return total
}

func (d *Document) applyDefaults() {
	d.Title = strings.TrimSpace(d.Title)
	if d.Title == "" {
		d.Title = defaultTitle
	}
	d.Instructions = strings.TrimSpace(d.Instructions)
	if d.Instructions == "" {
		d.Instructions = defaultInstructions
	}
}
