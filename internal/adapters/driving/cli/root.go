// Package cli implements the corpusd command line interface.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/corpus-ai/corpus/internal/config"
	"github.com/corpus-ai/corpus/internal/logger"
)

var version = "dev"

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "corpusd",
	Short: "Document ingestion and vector retrieval daemon",
	Long: `corpusd ingests documents (PDF, DOCX, Markdown, CSV, plain text),
chunks and embeds them, and serves similarity search and RAG context
assembly over HTTP.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ~/.corpus/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the CLI with the given build version.
func Execute(buildVersion string) error {
	if buildVersion != "" {
		version = buildVersion
	}

	// A local .env is a development convenience; absence is normal.
	_ = godotenv.Load()

	return rootCmd.Execute()
}

// loadConfig reads the config file (or defaults) plus env overrides.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	path, err := config.DefaultPath()
	if err != nil {
		return nil, err
	}
	return config.Load(path)
}
