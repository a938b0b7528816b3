package finetune

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ppiankov/sentiscope/internal/model"
	"github.com/ppiankov/sentiscope/internal/normalize"
)

func newNormalizer(t *testing.T) *normalize.Normalizer {
	t.Helper()

	n, err := normalize.New(normalize.DefaultOptions())
	if err != nil {
		t.Fatalf("normalize.New failed: %v", err)
	}
	return n
}

func TestNewRecord(t *testing.T) {
	rec := NewRecord(model.Example{Text: "works great every single time", Label: model.LabelPositive})

	if len(rec.Messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(rec.Messages))
	}

	want := []Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: "Classify the sentiment: works great every single time"},
		{Role: "assistant", Content: "positive"},
	}
	for i, m := range want {
		if rec.Messages[i] != m {
			t.Errorf("Message %d = %+v, want %+v", i, rec.Messages[i], m)
		}
	}
}

func TestPrepare(t *testing.T) {
	rows := []model.Row{
		{Text: "The blender works great and crushes ice easily", Label: model.LabelPositive},
		{Text: "the BLENDER works great, and crushes ice easily!!", Label: model.LabelPositive}, // Same once cleaned
		{Text: "bad", Label: model.LabelNegative},
		{Text: "Some reasonable unlabeled review text here", Label: model.LabelNone},
		{Text: "Motor burned out after two uses, total waste", Label: model.LabelNegative},
	}

	examples, stats := Prepare(rows, newNormalizer(t), false)

	if len(examples) != 2 {
		t.Fatalf("Expected 2 examples, got %d: %+v", len(examples), examples)
	}
	if examples[0].Text != "blender works great crushes ice easily" {
		t.Errorf("Unexpected cleaned text: %q", examples[0].Text)
	}
	if examples[1].Label != model.LabelNegative {
		t.Errorf("Expected negative label, got %q", examples[1].Label)
	}
	if strings.Contains(examples[0].Text, normalize.DefaultPadToken) {
		t.Error("Expected unpadded content by default")
	}

	want := Stats{Input: 5, Unlabeled: 1, Rejected: 1, Duplicates: 1, Kept: 2}
	if stats != want {
		t.Errorf("Expected stats %+v, got %+v", want, stats)
	}
}

func TestPrepare_KeepPadding(t *testing.T) {
	rows := []model.Row{{Text: "one two three four five six", Label: model.LabelPositive}}

	examples, _ := Prepare(rows, newNormalizer(t), true)
	if len(examples) != 1 {
		t.Fatalf("Expected 1 example, got %d", len(examples))
	}
	if got := len(strings.Fields(examples[0].Text)); got != normalize.DefaultMaxTokens {
		t.Errorf("Expected %d padded tokens, got %d", normalize.DefaultMaxTokens, got)
	}
}

func makeExamples(n int) []model.Example {
	examples := make([]model.Example, n)
	for i := range examples {
		examples[i] = model.Example{Text: fmt.Sprintf("example %d", i), Label: model.LabelPositive}
	}
	return examples
}

func TestSplit_Sizes(t *testing.T) {
	tests := []struct {
		n                 int
		train, val, testN int
	}{
		{0, 0, 0, 0},
		{1, 0, 0, 1},
		{9, 7, 1, 1},
		{10, 8, 1, 1},
		{25, 20, 2, 3},
		{1000, 800, 100, 100},
	}

	for _, tt := range tests {
		s := Split(makeExamples(tt.n), NewRand(42))
		if len(s.Train) != tt.train || len(s.Val) != tt.val || len(s.Test) != tt.testN {
			t.Errorf("Split(%d) = %d/%d/%d, want %d/%d/%d",
				tt.n, len(s.Train), len(s.Val), len(s.Test), tt.train, tt.val, tt.testN)
		}
		if s.Total() != tt.n {
			t.Errorf("Split(%d) lost examples: total %d", tt.n, s.Total())
		}
	}
}

func TestSplit_PartitionIsExact(t *testing.T) {
	input := makeExamples(50)
	s := Split(input, NewRand(7))

	seen := make(map[string]int)
	for _, part := range [][]model.Example{s.Train, s.Val, s.Test} {
		for _, ex := range part {
			seen[ex.Text]++
		}
	}
	for _, ex := range input {
		if seen[ex.Text] != 1 {
			t.Errorf("Example %q appears %d times", ex.Text, seen[ex.Text])
		}
	}

	// Input order untouched
	if input[0].Text != "example 0" {
		t.Error("Expected Split not to reorder its input")
	}
}

func TestSplit_SeedIsReproducible(t *testing.T) {
	a := Split(makeExamples(30), NewRand(99))
	b := Split(makeExamples(30), NewRand(99))

	for i := range a.Train {
		if a.Train[i] != b.Train[i] {
			t.Fatalf("Expected identical shuffles for the same seed at %d", i)
		}
	}
}

func TestSplit_NilShufflerKeepsOrder(t *testing.T) {
	s := Split(makeExamples(10), nil)
	if s.Train[0].Text != "example 0" || s.Test[0].Text != "example 9" {
		t.Errorf("Expected input order, got %+v", s)
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	return lines
}

func TestWriteJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "train.jsonl")
	examples := []model.Example{
		{Text: "naïve <b>design</b> & great", Label: model.LabelPositive},
		{Text: "awful", Label: model.LabelNegative},
	}

	if err := WriteJSONL(path, examples); err != nil {
		t.Fatalf("WriteJSONL failed: %v", err)
	}

	lines := readLines(t, path)
	if len(lines) != 2 {
		t.Fatalf("Expected 2 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "naïve <b>design</b> & great") {
		t.Errorf("Expected literal non-ASCII and HTML characters, got %s", lines[0])
	}

	var rec Record
	if err := json.Unmarshal([]byte(lines[1]), &rec); err != nil {
		t.Fatalf("Line is not valid JSON: %v", err)
	}
	if rec.Messages[2].Content != "negative" {
		t.Errorf("Expected assistant label negative, got %q", rec.Messages[2].Content)
	}
}

func TestWriteSplits(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")
	s := Split(makeExamples(10), NewRand(1))

	if err := WriteSplits(dir, s); err != nil {
		t.Fatalf("WriteSplits failed: %v", err)
	}

	counts := map[string]int{TrainFile: 8, ValFile: 1, TestFile: 1}
	for name, want := range counts {
		if got := len(readLines(t, filepath.Join(dir, name))); got != want {
			t.Errorf("%s: expected %d lines, got %d", name, want, got)
		}
	}
}

func TestWriteSplits_EmptySplitsStillWritten(t *testing.T) {
	dir := t.TempDir()

	if err := WriteSplits(dir, Split(nil, nil)); err != nil {
		t.Fatalf("WriteSplits failed: %v", err)
	}
	for _, name := range []string{TrainFile, ValFile, TestFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected %s to exist: %v", name, err)
		}
	}
}
