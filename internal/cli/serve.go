package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sentiscope/internal/logger"
	"github.com/ppiankov/sentiscope/internal/pipeline"
	"github.com/ppiankov/sentiscope/internal/server"
)

var (
	serveAddr          string
	serveRPS           float64
	serveBurst         int
	serveClassifyLimit time.Duration
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the single-page sentiment classification demo",
	Long: `Serve starts the demo web server:
  GET  /          single page with a text box and a colored result badge
  POST /classify  {"text": "..."} -> {"sentiment": "...", "confidence": ...}
  GET  /healthz   liveness
  GET  /metrics   Prometheus metrics

Requests are rate limited per client address.

Example:
  OPENAI_API_KEY=sk-... sentiscope serve --addr 127.0.0.1:5000
  sentiscope serve --llm-provider ollama --llm-model llama3.2`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:5000", "listen address")
	serveCmd.Flags().Float64Var(&serveRPS, "rps", 2, "requests per second per client (0 = unlimited)")
	serveCmd.Flags().IntVar(&serveBurst, "burst", 5, "burst size per client")
	serveCmd.Flags().DurationVar(&serveClassifyLimit, "classify-timeout", 30*time.Second, "deadline for one classification")
	addLLMFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyLLMFlags(cmd, cfg)

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr = serveAddr
	}
	if flags.Changed("rps") {
		cfg.Server.RequestsPerSecond = serveRPS
	}
	if flags.Changed("burst") {
		cfg.Server.BurstSize = serveBurst
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	classifier, err := pipeline.NewClassifier(cfg)
	if err != nil {
		return err
	}

	srv := server.New(classifier, cfg.Server, server.Options{
		Provider:        classifier.ProviderName(),
		ClassifyTimeout: serveClassifyLimit,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Success("Serving on http://%s (%s/%s, %d few-shot examples)",
		cfg.Server.Addr, classifier.ProviderName(), cfg.LLM.Model, classifier.Examples())

	return srv.Run(ctx)
}
