// tickersent scrapes per-ticker news headlines, scores their sentiment and
// prints a ticker × date table of mean scores.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/seenimoa/tickersent/internal/config"
	"github.com/seenimoa/tickersent/internal/infra"
	"github.com/seenimoa/tickersent/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set by the root command's pre-run.
var (
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "tickersent",
	Short: "tickersent — headline sentiment by ticker and date",
	Long: `tickersent scrapes financial news headlines per stock ticker, resolves
their relative date labels, scores each headline's sentiment and aggregates
the scores into a ticker × date table of means.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
			cfg.Logging.Level = lvl
		}
		logger = infra.NewLogger(cfg.Logging.Level, cfg.Logging.Format)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(configCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("tickersent %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and the resolved current date",
	RunE: func(cmd *cobra.Command, args []string) error {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		now := time.Now()

		cfgFile := cfg.File()
		if cfgFile == "" {
			cfgFile = "(defaults + environment)"
		}

		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  tickersent — Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Config file:   %s\n", cfgFile)
		fmt.Printf("  Time:          %s\n", utils.FormatDateTime(now, loc))
		fmt.Printf("  Today:         %s (Yesterday = %s)\n", utils.TodayIn(now, loc), utils.TodayIn(now, loc).AddDays(-1))
		fmt.Println()

		fmt.Println("  Pipeline:")
		fmt.Printf("    Supplier:    %s\n", cfg.Pipeline.Supplier)
		if cfg.Pipeline.Input != "" {
			fmt.Printf("    Input:       %s\n", cfg.Pipeline.Input)
		}
		fmt.Printf("    Tickers:     %v\n", cfg.Pipeline.Tickers)
		fmt.Printf("    Workers:     %d\n", cfg.Pipeline.Workers)
		fmt.Printf("    Scorer:      %s (cache %ds)\n", cfg.Scorer.Name, cfg.Scorer.CacheTTL)
		fmt.Printf("    Export:      %s %s\n", cfg.Export.Format, cfg.Export.Path)
		fmt.Printf("    API Server:  %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}

// --- Config Command ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		return cfg.WriteYAML(cmd.OutOrStdout())
	},
}
