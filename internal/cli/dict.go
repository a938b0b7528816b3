package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sentiscope/internal/logger"
	"github.com/ppiankov/sentiscope/internal/pipeline"
)

var (
	dictURL     string
	dictOutput  string
	dictTimeout time.Duration
	dictUA      string
	dictRobots  bool
	httpProxy   string
	httpsProxy  string
)

// dictCmd groups dictionary management commands
var dictCmd = &cobra.Command{
	Use:   "dict",
	Short: "Manage the spelling frequency dictionary",
}

// dictFetchCmd represents the dict fetch command
var dictFetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download a frequency dictionary for spelling correction",
	Long: `Fetch downloads a word-frequency dictionary ("term count" per line),
checks that it parses, and writes it to spell.dictionary_path.

Example:
  sentiscope dict fetch
  sentiscope dict fetch --url https://example.org/en-80k.txt --output dict.txt`,
	Args: cobra.NoArgs,
	RunE: runDictFetch,
}

func init() {
	rootCmd.AddCommand(dictCmd)
	dictCmd.AddCommand(dictFetchCmd)

	dictFetchCmd.Flags().StringVar(&dictURL, "url", "", "dictionary URL (overrides spell.dictionary_url)")
	dictFetchCmd.Flags().StringVarP(&dictOutput, "output", "o", "", "destination (overrides spell.dictionary_path)")
	dictFetchCmd.Flags().DurationVar(&dictTimeout, "timeout", 60*time.Second, "HTTP timeout")
	dictFetchCmd.Flags().StringVar(&dictUA, "ua", "Sentiscope/0.1", "HTTP User-Agent")
	dictFetchCmd.Flags().BoolVar(&dictRobots, "robots", false, "honor robots.txt on the dictionary host")
	dictFetchCmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	dictFetchCmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
}

func runDictFetch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dictURL != "" {
		cfg.Spell.DictionaryURL = dictURL
	}
	if dictOutput != "" {
		cfg.Spell.DictionaryPath = dictOutput
	}
	if cfg.Spell.DictionaryURL == "" {
		return fmt.Errorf("no dictionary URL configured")
	}

	fetcher := pipeline.NewDictionaryFetcher(dictTimeout, dictUA, 0, httpProxy, httpsProxy, "")
	if dictRobots {
		fetcher.RespectRobots()
	}

	fmt.Fprintf(os.Stderr, "⚙️  Fetching %s\n", cfg.Spell.DictionaryURL)
	terms, err := fetcher.Download(cmd.Context(), cfg.Spell.DictionaryURL, cfg.Spell.DictionaryPath, cfg.Spell.TermIndex, cfg.Spell.CountIndex)
	if err != nil {
		logger.Failure("Download failed: %v", err)
		return err
	}

	logger.Success("Wrote %d terms to %s", terms, cfg.Spell.DictionaryPath)
	return nil
}
