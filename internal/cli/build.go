package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sentiscope/internal/logger"
	"github.com/ppiankov/sentiscope/internal/pipeline"
)

var (
	baseDir         string
	labeledOutput   string
	unlabeledOutput string
	minWords        int
	workers         int
	buildTimeout    time.Duration
)

// buildDatasetCmd represents the build-dataset command
var buildDatasetCmd = &cobra.Command{
	Use:   "build-dataset",
	Short: "Extract reviews from a corpus into labeled and unlabeled tables",
	Long: `Build-dataset walks a review corpus and writes deduplicated tables:
- Each subdirectory of the base dir is a category
- positive.review / negative.review become labeled rows
- unlabeled.review (or unlabaled.review) become unlabeled rows
- Documents are extracted in parallel; output order follows the corpus

The output format follows the file extension (.csv or .xlsx).

Example:
  sentiscope build-dataset --base-dir ./data
  sentiscope build-dataset --base-dir ./data --output reviews.xlsx --unlabeled-output ""`,
	Args: cobra.NoArgs,
	RunE: runBuildDataset,
}

func init() {
	rootCmd.AddCommand(buildDatasetCmd)

	buildDatasetCmd.Flags().StringVar(&baseDir, "base-dir", "data", "corpus directory (one subdirectory per category)")
	buildDatasetCmd.Flags().StringVarP(&labeledOutput, "output", "o", "reviews.csv", "labeled table path (.csv or .xlsx)")
	buildDatasetCmd.Flags().StringVar(&unlabeledOutput, "unlabeled-output", "unlabeled_reviews.csv", "unlabeled table path; empty skips it")
	buildDatasetCmd.Flags().IntVar(&minWords, "min-words", 2, "drop reviews with fewer words")
	buildDatasetCmd.Flags().IntVar(&workers, "workers", 4, "number of concurrent extraction workers")
	buildDatasetCmd.Flags().DurationVar(&buildTimeout, "timeout", 10*time.Minute, "total timeout")
}

func runBuildDataset(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("base-dir") {
		cfg.Extract.BaseDir = baseDir
	}
	if flags.Changed("output") {
		cfg.Dataset.LabeledPath = labeledOutput
	}
	if flags.Changed("unlabeled-output") {
		cfg.Dataset.UnlabeledPath = unlabeledOutput
	}
	if flags.Changed("min-words") {
		cfg.Dataset.MinWords = minWords
	}
	if flags.Changed("workers") {
		cfg.Concurrency.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), buildTimeout)
	defer cancel()

	logger.Banner("Sentiscope Dataset Build")
	fmt.Fprintf(os.Stderr, "  Corpus:       %s\n", cfg.Extract.BaseDir)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Min words:    %d\n", cfg.Dataset.MinWords)
	fmt.Fprintf(os.Stderr, "\n")

	start := time.Now()
	result, err := pipeline.BuildDataset(ctx, cfg)
	if err != nil {
		logger.Failure("Build failed: %v", err)
		return err
	}

	logger.Success("Extracted %d documents across %d categories in %v",
		result.Documents, result.Categories, time.Since(start).Round(time.Millisecond))
	logger.Success("Wrote %d labeled rows to %s", result.Labeled, result.LabeledPath)
	if result.UnlabeledPath != "" {
		logger.Success("Wrote %d unlabeled rows to %s", result.Unlabeled, result.UnlabeledPath)
	}
	fmt.Fprintf(os.Stderr, "  Dropped %d short or duplicate reviews\n\n", result.Dropped)

	return nil
}
