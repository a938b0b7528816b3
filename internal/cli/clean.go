package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sentiscope/internal/logger"
	"github.com/ppiankov/sentiscope/internal/normalize"
	"github.com/ppiankov/sentiscope/internal/pipeline"
)

var (
	cleanFile       string
	maxTokens       int
	minTokens       int
	correctSpelling bool
	dictionaryPath  string
	noPadding       bool
	cleanJSON       bool
)

// cleanCmd represents the clean command
var cleanCmd = &cobra.Command{
	Use:   "clean [text]",
	Short: "Normalize review text into a fixed-length token sequence",
	Long: `Clean lowercases text, strips digits and punctuation (keeping contractions),
drops stopwords, optionally spell-corrects, and pads or truncates to a fixed
number of tokens. Texts with too few tokens left are reported as rejected.

Input is the argument, one text per line from --file, or one per line on stdin.

Example:
  sentiscope clean "I LOVED it!!! Don't you think??"
  sentiscope clean --file reviews.txt --no-padding
  sentiscope clean --spell --dictionary frequency_dictionary_en_82_765.txt "teh book was grate"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().StringVarP(&cleanFile, "file", "f", "", "read texts from file, one per line")
	cleanCmd.Flags().IntVar(&maxTokens, "max-tokens", normalize.DefaultMaxTokens, "fixed output length")
	cleanCmd.Flags().IntVar(&minTokens, "min-tokens", normalize.DefaultMinTokens, "reject texts with fewer real tokens")
	cleanCmd.Flags().BoolVar(&correctSpelling, "spell", false, "enable spelling correction")
	cleanCmd.Flags().StringVar(&dictionaryPath, "dictionary", "", "frequency dictionary path (overrides spell.dictionary_path)")
	cleanCmd.Flags().BoolVar(&noPadding, "no-padding", false, "print only real tokens")
	cleanCmd.Flags().BoolVar(&cleanJSON, "json", false, "print one JSON object per text")
}

type cleanOutput struct {
	Status string `json:"status"`
	Text   string `json:"text,omitempty"`
	Tokens int    `json:"tokens"`
	Reason string `json:"reason,omitempty"`
}

func runClean(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("max-tokens") {
		cfg.Normalize.MaxTokens = maxTokens
	}
	if flags.Changed("min-tokens") {
		cfg.Normalize.MinTokens = minTokens
	}
	if flags.Changed("spell") {
		cfg.Normalize.CorrectSpelling = correctSpelling
	}
	if flags.Changed("dictionary") {
		cfg.Spell.DictionaryPath = dictionaryPath
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	texts, err := cleanInputs(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	n, err := pipeline.NewNormalizer(cfg)
	if err != nil {
		return fmt.Errorf("create normalizer: %w", err)
	}

	out := cmd.OutOrStdout()
	rejected := 0
	for _, text := range texts {
		res := n.Normalize(text)
		if !res.OK() {
			rejected++
		}
		if err := printCleaned(out, res); err != nil {
			return err
		}
	}

	if len(texts) > 1 {
		logger.Success("Cleaned %d texts (%d rejected)", len(texts), rejected)
	}
	return nil
}

// cleanInputs returns the texts to clean. File and stdin input keep every
// non-blank line, duplicates and '#' lines included, so output lines up with input.
func cleanInputs(args []string, stdin io.Reader) ([]string, error) {
	if len(args) == 1 {
		return args, nil
	}
	if cleanFile == "" {
		return readTexts(stdin, "stdin")
	}

	f, err := os.Open(cleanFile)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return readTexts(f, cleanFile)
}

func readTexts(r io.Reader, name string) ([]string, error) {
	var texts []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			texts = append(texts, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return texts, nil
}

func printCleaned(w io.Writer, res normalize.Result) error {
	text := res.String()
	if noPadding {
		text = res.Content()
	}

	if cleanJSON {
		data, err := json.Marshal(cleanOutput{
			Status: res.Status.String(),
			Text:   text,
			Tokens: res.NonPad(),
			Reason: res.Reason,
		})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	if !res.OK() {
		_, err := fmt.Fprintf(w, "✗ rejected: %s\n", res.Reason)
		return err
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
