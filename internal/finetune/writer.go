package finetune

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ppiankov/sentiscope/internal/model"
)

// Split file names inside the output directory
const (
	TrainFile = "train.jsonl"
	ValFile   = "val.jsonl"
	TestFile  = "test.jsonl"
)

// WriteJSONL writes one chat record per line. Non-ASCII and HTML characters are written literally.
func WriteJSONL(path string, examples []model.Example) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	w := bufio.NewWriter(file)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	for _, ex := range examples {
		// Encode appends the newline
		if err := enc.Encode(NewRecord(ex)); err != nil {
			return fmt.Errorf("encode record: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return file.Close()
}

// WriteSplits writes train, val and test files into dir, creating it if needed
func WriteSplits(dir string, s Splits) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	parts := []struct {
		name     string
		examples []model.Example
	}{
		{TrainFile, s.Train},
		{ValFile, s.Val},
		{TestFile, s.Test},
	}

	for _, p := range parts {
		if err := WriteJSONL(filepath.Join(dir, p.name), p.examples); err != nil {
			return fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	return nil
}
