// Package dataset accumulates extracted reviews into labeled and unlabeled tables.
package dataset

import (
	"strings"
	"sync"

	"github.com/ppiankov/sentiscope/internal/model"
)

// DefaultMinWords is the shortest review (in whitespace-separated words) kept in a table
const DefaultMinWords = 2

// Builder collects rows from many documents. Safe for concurrent use.
type Builder struct {
	mu       sync.Mutex
	minWords int

	labeled      []model.Row
	labeledSeen  map[string]struct{}
	unlabeled    []model.Row
	unlabeledSet map[string]struct{}

	dropped int
}

// NewBuilder creates a builder that drops texts shorter than minWords
func NewBuilder(minWords int) *Builder {
	if minWords <= 0 {
		minWords = DefaultMinWords
	}
	return &Builder{
		minWords:     minWords,
		labeled:      []model.Row{},
		labeledSeen:  make(map[string]struct{}),
		unlabeled:    []model.Row{},
		unlabeledSet: make(map[string]struct{}),
	}
}

// AddLabeled appends texts from a labeled document. Returns the number of rows added.
func (b *Builder) AddLabeled(category string, label model.Label, texts []string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.add(&b.labeled, b.labeledSeen, category, label, texts)
}

// AddUnlabeled appends texts from an unlabeled document. Returns the number of rows added.
func (b *Builder) AddUnlabeled(category string, texts []string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.add(&b.unlabeled, b.unlabeledSet, category, model.LabelNone, texts)
}

// add filters and dedupes texts into rows; caller holds the lock
func (b *Builder) add(rows *[]model.Row, seen map[string]struct{}, category string, label model.Label, texts []string) int {
	added := 0
	for _, text := range texts {
		if len(strings.Fields(text)) < b.minWords {
			b.dropped++
			continue
		}
		if _, dup := seen[text]; dup {
			b.dropped++
			continue
		}
		seen[text] = struct{}{}
		*rows = append(*rows, model.Row{
			Category: category,
			Text:     text,
			Label:    label,
		})
		added++
	}
	return added
}

// Rows returns a copy of the labeled table in insertion order
func (b *Builder) Rows() []model.Row {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows := make([]model.Row, len(b.labeled))
	copy(rows, b.labeled)
	return rows
}

// UnlabeledRows returns a copy of the unlabeled table in insertion order
func (b *Builder) UnlabeledRows() []model.Row {
	b.mu.Lock()
	defer b.mu.Unlock()

	rows := make([]model.Row, len(b.unlabeled))
	copy(rows, b.unlabeled)
	return rows
}

// Dropped returns how many texts were filtered as too short or duplicate
func (b *Builder) Dropped() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.dropped
}
