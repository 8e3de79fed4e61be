// Package bank loads item banks: YAML sequences of multiple choice items, each
// carrying question text, ordered responses, the 1-based index of the correct
// response and a set of content tags.
package bank

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kingrea/testgen/internal/sampler"
)

// Item is a single multiple choice question.
type Item struct {
	Text      string   `yaml:"text" validate:"required"`
	Responses []string `yaml:"responses" validate:"required,min=1"`
	Correct   int      `yaml:"correct" validate:"required,gte=1"`
	Tags      []string `yaml:"tags" validate:"required"`
}

// TagSet returns the item's tags as a set.
func (it Item) TagSet() sampler.TagSet {
	return sampler.NewTagSet(it.Tags...)
}

// Bank is an ordered item collection. An item's identifier is its index.
type Bank struct {
	Path     string
	Items    []Item
	Checksum string
}

// Load reads and validates the bank at path.
func Load(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bank: read %s: %w", path, err)
	}
	b, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("bank: %s: %w", path, err)
	}
	b.Path = path
	return b, nil
}

// Parse decodes a bank from YAML. Unknown item fields are rejected. An empty
// document yields an empty bank.
func Parse(data []byte) (*Bank, error) {
	sum := sha256.Sum256(data)
	b := &Bank{Checksum: hex.EncodeToString(sum[:])}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&b.Items); err != nil {
		if errors.Is(err, io.EOF) {
			return b, nil
		}
		return nil, fmt.Errorf("%w: parse: %v", ErrMalformedInput, err)
	}
	for i, item := range b.Items {
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return b, nil
}

// Len returns the number of items.
func (b *Bank) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Items)
}

// Pool exposes the bank's tags in identifier order for sampling.
func (b *Bank) Pool() sampler.Pool {
	pool := make(sampler.Pool, b.Len())
	for i, item := range b.Items {
		pool[i] = item.TagSet()
	}
	return pool
}

// Resolve maps selected identifiers back to items, preserving order.
func (b *Bank) Resolve(sel sampler.Selection) ([]Item, error) {
	items := make([]Item, 0, len(sel))
	for _, id := range sel {
		if id < 0 || id >= b.Len() {
			return nil, fmt.Errorf("bank: selection references item %d outside 0..%d", id, b.Len()-1)
		}
		items = append(items, b.Items[id])
	}
	return items, nil
}
