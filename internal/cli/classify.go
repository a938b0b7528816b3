package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sentiscope/internal/logger"
	"github.com/ppiankov/sentiscope/internal/model"
	"github.com/ppiankov/sentiscope/internal/pipeline"
	"github.com/ppiankov/sentiscope/internal/worker"
)

var (
	classifyFile    string
	llmProvider     string
	llmModel        string
	examplesPath    string
	shotsPerClass   int
	noCache         bool
	classifyTimeout time.Duration
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify [text]",
	Short: "Classify the sentiment of text with a hosted model",
	Long: `Classify sends text to the configured LLM provider, seeded with a balanced
few-shot sample of cleaned labeled reviews, and prints the validated result
as JSON: {"sentiment":"positive|negative|unknown","confidence":0.9}.

With --file every line is classified concurrently (rate limited) and one
JSON object is printed per line, in input order.

Example:
  sentiscope classify "Terrible binding, pages fell out on day one."
  sentiscope classify --file texts.txt --llm-provider ollama --llm-model llama3.2
  OPENAI_API_KEY=sk-... sentiscope classify --examples reviews.csv "Loved it"`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClassify,
}

func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVarP(&classifyFile, "file", "f", "", "classify every line of a file")
	classifyCmd.Flags().IntVar(&workers, "workers", 4, "concurrent requests in --file mode")
	classifyCmd.Flags().DurationVar(&classifyTimeout, "timeout", 5*time.Minute, "total timeout")
	addLLMFlags(classifyCmd)
}

// addLLMFlags registers the provider flags shared by classify and serve
func addLLMFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, anthropic, ollama)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini-2024-07-18", "LLM model name")
	cmd.Flags().StringVar(&examplesPath, "examples", "reviews.csv", "labeled table used for few-shot examples")
	cmd.Flags().IntVar(&shotsPerClass, "shots", 3, "few-shot examples per label (0 = zero-shot)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable result caching")
}

// applyLLMFlags copies explicitly set provider flags onto cfg
func applyLLMFlags(cmd *cobra.Command, cfg *model.Config) {
	flags := cmd.Flags()
	if flags.Changed("llm-provider") {
		cfg.LLM.Provider = llmProvider
	}
	if flags.Changed("llm-model") {
		cfg.LLM.Model = llmModel
	}
	if flags.Changed("examples") {
		cfg.LLM.ExamplesPath = examplesPath
	}
	if flags.Changed("shots") {
		cfg.LLM.ShotsPerClass = shotsPerClass
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
}

func runClassify(cmd *cobra.Command, args []string) error {
	if len(args) == 0 && classifyFile == "" {
		return fmt.Errorf("provide text to classify or --file")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyLLMFlags(cmd, cfg)
	if cmd.Flags().Changed("workers") {
		cfg.Concurrency.Workers = workers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	classifier, err := pipeline.NewClassifier(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "⚙️  %s/%s with %d few-shot examples available\n", classifier.ProviderName(), cfg.LLM.Model, classifier.Examples())

	ctx, cancel := context.WithTimeout(cmd.Context(), classifyTimeout)
	defer cancel()

	enc := json.NewEncoder(cmd.OutOrStdout())

	if len(args) == 1 {
		result, err := classifier.Classify(ctx, args[0])
		if err != nil {
			logger.Failure("Classification failed: %v", err)
			return err
		}
		return enc.Encode(result)
	}

	texts, err := worker.ReadLinesFromFile(classifyFile)
	if err != nil {
		return err
	}

	processor := worker.NewBatchProcessor(cfg.Concurrency.Workers, cfg.Server.RequestsPerSecond, cfg.Server.BurstSize)
	results := processor.ProcessTexts(ctx, classifier, classifier.ProviderName(), texts)

	failures := 0
	for _, res := range results {
		if res.Error != nil {
			failures++
			logger.Failure("%s: %v", truncateText(res.Text, 60), res.Error)
		}
		if err := enc.Encode(newClassifyLine(res)); err != nil {
			return err
		}
	}

	logger.Success("Classified %d texts (%d failures)", len(results)-failures, failures)
	return nil
}

// classifyLine is one JSON line of batch output; failed lines carry an error and no verdict
type classifyLine struct {
	Text string `json:"text"`
	*model.Classification
	Error string `json:"error,omitempty"`
}

func newClassifyLine(res *worker.ClassifyResult) classifyLine {
	line := classifyLine{Text: res.Text}
	if res.Error != nil {
		line.Error = res.Error.Error()
		return line
	}
	c := res.Classification
	line.Classification = &c
	return line
}

func truncateText(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
