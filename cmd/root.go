package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/corpus-refresh/internal/config"
)

var cfg *config.Config

var (
	logLevelFlag  string
	logFormatFlag string
)

var rootCmd = &cobra.Command{
	Use:   "corpus-refresh",
	Short: "Keep a record corpus and its dated-update ledger current",
	Long: `corpus-refresh walks a corpus of records section by section, asks the
generation service whether each section has missed concrete developments,
and rewrites only the sections an operator approves.

  refresh   interactive enrichment pass over records due for re-enhancement
  feed      generate, filter and merge dated updates into the ledger
  runs      inspect the history of past refresh and feed runs

Configuration is read from ./config.yaml and REFRESH_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if logLevelFlag != "" {
			c.Log.Level = logLevelFlag
		}
		if logFormatFlag != "" {
			c.Log.Format = logFormatFlag
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		zap.L().Debug("config loaded",
			zap.String("command", cmd.Name()),
			zap.String("provider", cfg.Oracle.Provider),
			zap.Int("credentials", len(cfg.Oracle.Keys)),
			zap.String("store", cfg.Store.Driver),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "override log.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "override log.format (json, console)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
