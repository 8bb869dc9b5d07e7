package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/config"
)

var cfg *config.Config

// Persistent flags override the loaded file and environment when set.
var (
	configPath    string
	storeDriver   string
	databaseURL   string
	logLevel      string
	scoringVendor string
)

var rootCmd = &cobra.Command{
	Use:          "radar",
	Short:        "Lead radar enrichment and scoring pipeline",
	Long:         "Discovers companies by domain, fans out to twelve public-data sources, resolves firmographics and scores each lead with an LLM.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.LoadFrom(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		applyFlagOverrides(c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		zap.L().Debug("config loaded",
			zap.String("config", configPath),
			zap.String("store_driver", cfg.Store.Driver),
			zap.String("scoring_provider", cfg.Scoring.Provider),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func applyFlagOverrides(c *config.Config) {
	if storeDriver != "" {
		c.Store.Driver = storeDriver
	}
	if databaseURL != "" {
		c.Store.DatabaseURL = databaseURL
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	if scoringVendor != "" {
		c.Scoring.Provider = scoringVendor
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "config file (default ./config.yaml if present)")
	pf.StringVar(&storeDriver, "store-driver", "", "store driver: postgres or sqlite")
	pf.StringVar(&databaseURL, "database-url", "", "postgres connection string or sqlite file path")
	pf.StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	pf.StringVar(&scoringVendor, "scoring-provider", "", "scoring provider: anthropic or openai")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
