package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/sentiscope/internal/logger"
	"github.com/ppiankov/sentiscope/internal/model"
)

// configSources lists where settings come from, highest priority first
var configSources = []string{
	"CLI flags",
	"Environment variables (SENTISCOPE_*, e.g. SENTISCOPE_NORMALIZE_MAX_TOKENS; OPENAI_API_KEY, ANTHROPIC_API_KEY, OPENAI_BASE_URL, OLLAMA_BASE_URL)",
	"Config file (~/.sentiscope/config.yaml)",
	"Built-in defaults",
}

var (
	configShowJSON  bool
	configInitPath  string
	configInitForce bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage Sentiscope configuration",
	Long: `Manage Sentiscope configuration files and settings.

Settings are merged from, highest priority first:
` + numbered(configSources, "") + `
A .env file in the working directory is loaded before anything else.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long:  `Print the configuration after merging defaults, config file and environment. API keys are masked.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.LLM.APIKey != "" {
			cfg.LLM.APIKey = "********"
		}

		if file := viper.ConfigFileUsed(); file != "" {
			logger.Info("Configuration file: %s", file)
		} else {
			logger.Info("No configuration file found, using defaults")
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		if configShowJSON {
			// Round-trip through YAML so keys match the config file
			var tree map[string]any
			if err := yaml.Unmarshal(data, &tree); err != nil {
				return fmt.Errorf("convert config: %w", err)
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(tree); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
		} else {
			fmt.Print(string(data))
		}

		if err := cfg.Validate(); err != nil {
			logger.Failure("%v", err)
		}
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long:  `Create a commented configuration file with every option at its default value.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configInitPath
		if path == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return fmt.Errorf("find home directory: %w", err)
			}
			path = filepath.Join(home, ".sentiscope", "config.yaml")
		}

		if configInitForce {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("remove existing config: %w", err)
			}
		}
		if err := writeDefaultConfig(path); err != nil {
			return err
		}

		logger.Success("Created default configuration: %s", path)
		logger.Info("Review it with 'sentiscope config show' or edit it with $EDITOR %s", path)
		return nil
	},
}

// numbered renders items as a 1-based list, each line starting with indent
func numbered(items []string, indent string) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%s%d. %s\n", indent, i+1, item)
	}
	return b.String()
}

// defaultConfigFile renders the default configuration as commented YAML
func defaultConfigFile() ([]byte, error) {
	data, err := yaml.Marshal(model.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	var b bytes.Buffer
	b.WriteString("# Sentiscope Configuration File\n#\n# Settings are merged from, highest priority first:\n")
	b.WriteString(numbered(configSources, "#   "))
	b.WriteString("\n")
	b.Write(data)
	b.WriteString("\n# Prefer environment variables for secrets:\n")
	b.WriteString("#   export OPENAI_API_KEY=sk-...\n")
	b.WriteString("#   export ANTHROPIC_API_KEY=sk-ant-...\n")
	b.WriteString("#   export OLLAMA_BASE_URL=http://localhost:11434\n")
	return b.Bytes(), nil
}

// writeDefaultConfig writes the commented default config to path, refusing to overwrite
func writeDefaultConfig(path string) error {
	data, err := defaultConfigFile()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if os.IsExist(err) {
		return fmt.Errorf("config file already exists: %s (use --force to replace it)", path)
	}
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write config file: %w", err)
	}
	return f.Close()
}

func init() {
	configShowCmd.Flags().BoolVar(&configShowJSON, "json", false, "Print as JSON instead of YAML")
	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "Write to this path instead of ~/.sentiscope/config.yaml")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Replace an existing config file")

	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}
