package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sentiscope/internal/finetune"
	"github.com/ppiankov/sentiscope/internal/logger"
	"github.com/ppiankov/sentiscope/internal/pipeline"
)

var (
	finetuneInput  string
	finetuneOutput string
	finetuneSeed   int64
	keepPadding    bool
)

// prepareFinetuneCmd represents the prepare-finetune command
var prepareFinetuneCmd = &cobra.Command{
	Use:   "prepare-finetune",
	Short: "Write train/val/test JSONL chat records from a labeled table",
	Long: `Prepare-finetune reads a labeled table (text,label columns), cleans every
positive/negative row, drops rejected and duplicate texts, shuffles, and writes
an 80/10/10 split as train.jsonl, val.jsonl and test.jsonl. Each line is a
three-turn chat record: system instruction, user text, assistant label.

Example:
  sentiscope prepare-finetune --input reviews.csv --output-dir artifacts
  sentiscope prepare-finetune --input reviews.xlsx --seed 42`,
	Args: cobra.NoArgs,
	RunE: runPrepareFinetune,
}

func init() {
	rootCmd.AddCommand(prepareFinetuneCmd)

	prepareFinetuneCmd.Flags().StringVarP(&finetuneInput, "input", "i", "reviews.csv", "labeled table (.csv or .xlsx)")
	prepareFinetuneCmd.Flags().StringVarP(&finetuneOutput, "output-dir", "o", "artifacts", "directory for the JSONL splits")
	prepareFinetuneCmd.Flags().Int64Var(&finetuneSeed, "seed", 0, "shuffle seed (0 = random)")
	prepareFinetuneCmd.Flags().BoolVar(&keepPadding, "keep-padding", false, "keep pad tokens in the user turn")
	prepareFinetuneCmd.Flags().BoolVar(&correctSpelling, "spell", false, "enable spelling correction")
	prepareFinetuneCmd.Flags().StringVar(&dictionaryPath, "dictionary", "", "frequency dictionary path (overrides spell.dictionary_path)")
}

func runPrepareFinetune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Finetune.InputPath = finetuneInput
	}
	if flags.Changed("output-dir") {
		cfg.Finetune.OutputDir = finetuneOutput
	}
	if flags.Changed("seed") {
		cfg.Finetune.Seed = finetuneSeed
	}
	if flags.Changed("keep-padding") {
		cfg.Finetune.KeepPadding = keepPadding
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

	logger.Banner("Sentiscope Fine-tune Preparation")
	fmt.Fprintf(os.Stderr, "  Input:        %s\n", cfg.Finetune.InputPath)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", cfg.Finetune.OutputDir)
	fmt.Fprintf(os.Stderr, "  Spelling:     %v\n", cfg.Normalize.CorrectSpelling)
	fmt.Fprintf(os.Stderr, "\n")

	n, err := pipeline.NewNormalizer(cfg)
	if err != nil {
		return fmt.Errorf("create normalizer: %w", err)
	}

	result, err := pipeline.PrepareFinetune(cmd.Context(), cfg, n)
	if err != nil {
		logger.Failure("Preparation failed: %v", err)
		return err
	}

	logger.Success("%d rows read, %d examples kept (%d rejected, %d duplicates, %d unlabeled)",
		result.Stats.Input, result.Stats.Kept, result.Stats.Rejected, result.Stats.Duplicates, result.Stats.Unlabeled)
	logger.Success("%s: %d", filepath.Join(result.OutputDir, finetune.TrainFile), result.Train)
	logger.Success("%s: %d", filepath.Join(result.OutputDir, finetune.ValFile), result.Val)
	logger.Success("%s: %d", filepath.Join(result.OutputDir, finetune.TestFile), result.Test)
	fmt.Fprintln(os.Stderr)

	return nil
}
