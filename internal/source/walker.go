// Package source enumerates review documents in a category-per-directory corpus.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ppiankov/sentiscope/internal/extract"
	"github.com/ppiankov/sentiscope/internal/model"
)

// ErrBaseDirNotFound is returned when the corpus root does not exist
var ErrBaseDirNotFound = errors.New("corpus base directory not found")

// labelFiles maps the review file names found in each category to their label.
// "unlabaled.review" is the spelling used by the published corpus.
var labelFiles = []struct {
	name  string
	label model.Label
}{
	{"negative.review", model.LabelNegative},
	{"positive.review", model.LabelPositive},
	{"unlabaled.review", model.LabelNone},
	{"unlabeled.review", model.LabelNone},
}

// Document is one review file within a category
type Document struct {
	Path     string
	Category string
	Label    model.Label // LabelNone for the unlabeled file
}

// Labeled reports whether the document feeds the labeled table
func (d Document) Labeled() bool {
	return d.Label.IsTrainable()
}

// Read returns the document content decoded as UTF-8, replacing undecodable bytes
func (d Document) Read() (string, error) {
	data, err := os.ReadFile(d.Path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", d.Path, err)
	}
	return extract.DecodeBestEffort(data), nil
}

// Walk lists every known review file under baseDir, categories sorted by name
func Walk(baseDir string) ([]Document, error) {
	info, err := os.Stat(baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrBaseDirNotFound, baseDir)
		}
		return nil, fmt.Errorf("stat base dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrBaseDirNotFound, baseDir)
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("read base dir: %w", err)
	}

	var categories []string
	for _, e := range entries {
		if e.IsDir() {
			categories = append(categories, e.Name())
		}
	}
	sort.Strings(categories)

	docs := []Document{}
	for _, category := range categories {
		for _, lf := range labelFiles {
			path := filepath.Join(baseDir, category, lf.name)
			fi, err := os.Stat(path)
			if err != nil || fi.IsDir() {
				continue
			}

			docs = append(docs, Document{
				Path:     path,
				Category: category,
				Label:    lf.label,
			})
		}
	}

	return docs, nil
}
