package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/seenimoa/tickersent/api"
	"github.com/seenimoa/tickersent/internal/datasource"
	"github.com/seenimoa/tickersent/internal/export"
	"github.com/seenimoa/tickersent/internal/infra"
	"github.com/seenimoa/tickersent/internal/pipeline"
	"github.com/seenimoa/tickersent/pkg/models"
	"github.com/seenimoa/tickersent/pkg/utils"
)

// --- Run Command ---

var runCmd = &cobra.Command{
	Use:   "run [tickers...]",
	Short: "Build the ticker × date sentiment table",
	Long: `Fetch headlines for the given tickers, resolve their dates, score them
and print (or export) the mean sentiment per ticker and date.

Tickers come from the arguments, --tickers, or pipeline.tickers in the
config. --screen (or pipeline.screen) adds the tickers matching FinViz
screener filters such as cap_large,sector_technology. With --input (or supplier "csv") rows are read from a
ticker,label,text file and every ticker in it is used unless tickers are
given.`,
	RunE: runSentiment,
}

func init() {
	runCmd.Flags().String("tickers", "", "comma-separated tickers")
	runCmd.Flags().String("input", "", "read rows from a CSV file (implies --supplier csv)")
	runCmd.Flags().String("supplier", "", "row supplier: finviz, rss, csv")
	runCmd.Flags().String("format", "", "output format: table, csv, json, html, parquet, sqlite")
	runCmd.Flags().String("out", "", "output path (stdout when empty; required for parquet/sqlite)")
	runCmd.Flags().String("today", "", "resolve Today/Yesterday against this date (YYYY-MM-DD)")
	runCmd.Flags().Bool("discover", false, "add tickers found on the FinViz news page")
	runCmd.Flags().String("screen", "", "add tickers from the FinViz screener, comma-separated filters (e.g. cap_large,sector_technology)")
}

func runSentiment(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	applyRunFlags(cmd)

	opts, err := pipelineOptions(cfg, logger)
	if err != nil {
		return err
	}
	if s, _ := cmd.Flags().GetString("today"); s != "" {
		d, err := utils.ParseDate(s)
		if err != nil {
			return fmt.Errorf("--today: %w", err)
		}
		opts = append(opts, pipeline.WithClock(utils.FixedClock(d)))
	}

	flagTickers, _ := cmd.Flags().GetString("tickers")
	tickers := utils.ParseTickerList(append(args, flagTickers)...)
	if len(tickers) == 0 {
		tickers = utils.ParseTickerList(cfg.Pipeline.Tickers...)
	}

	if discover, _ := cmd.Flags().GetBool("discover"); discover {
		found, err := newFinViz(cfg).DiscoverTickers(ctx)
		if err != nil {
			return fmt.Errorf("discovering tickers: %w", err)
		}
		logger.Info("discovered tickers", "count", len(found))
		tickers = utils.ParseTickerList(append(tickers, found...)...)
	}
	filters := cfg.Pipeline.Screen
	if v, _ := cmd.Flags().GetString("screen"); v != "" {
		filters = splitFilters(v)
	}
	if len(filters) > 0 {
		found, err := newFinViz(cfg).ScreenTickers(ctx, filters...)
		if err != nil {
			return fmt.Errorf("screening tickers: %w", err)
		}
		logger.Info("screened tickers", "filters", filters, "count", len(found))
		tickers = utils.ParseTickerList(append(tickers, found...)...)
	}
	if len(tickers) > 0 {
		opts = append(opts, pipeline.WithTickerOrder(tickers...))
	}

	scorer, err := newScorer(cfg)
	if err != nil {
		return err
	}
	pipe := pipeline.New(scorer, opts...)

	sup, err := newSupplier(cfg)
	if err != nil {
		return err
	}

	var res *pipeline.Result
	if csvSup, ok := sup.(*datasource.CSVFile); ok && len(tickers) == 0 {
		var rows []models.RawRow
		if rows, err = csvSup.AllRows(ctx); err != nil {
			return err
		}
		res, err = pipe.Run(ctx, rows)
	} else {
		if len(tickers) == 0 {
			return fmt.Errorf("no tickers: pass them as arguments, --tickers or pipeline.tickers")
		}
		var fetchErrs []pipeline.FetchError
		res, fetchErrs, err = pipe.RunSupplier(ctx, sup, tickers)
		if len(fetchErrs) == len(tickers) && err == nil {
			return fmt.Errorf("every ticker failed to fetch, first: %w", &fetchErrs[0])
		}
	}
	if err != nil {
		return err
	}

	if err := export.Write(ctx, cfg.Export.Format, cfg.Export.Path, os.Stdout, res.Table); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	if cfg.Export.Path != "" {
		logger.Info("table written", "format", cfg.Export.Format, "path", cfg.Export.Path, "cells", res.Table.Len())
	}
	return nil
}

// applyRunFlags folds run flags into the loaded config.
func applyRunFlags(cmd *cobra.Command) {
	if v, _ := cmd.Flags().GetString("input"); v != "" {
		cfg.Pipeline.Input = v
		cfg.Pipeline.Supplier = "csv"
	}
	if v, _ := cmd.Flags().GetString("supplier"); v != "" {
		cfg.Pipeline.Supplier = v
	}
	if v, _ := cmd.Flags().GetString("format"); v != "" {
		cfg.Export.Format = v
	}
	if v, _ := cmd.Flags().GetString("out"); v != "" {
		cfg.Export.Path = v
	}
}

// --- Discover Command ---

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List tickers currently linked from the FinViz news page",
	Long: `List the tickers linked from the FinViz news page, or with --screen the
tickers matching FinViz screener filters.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fv := newFinViz(cfg)
		var tickers []string
		var err error
		if v, _ := cmd.Flags().GetString("screen"); v != "" {
			tickers, err = fv.ScreenTickers(cmd.Context(), splitFilters(v)...)
		} else {
			tickers, err = fv.DiscoverTickers(cmd.Context())
		}
		if err != nil {
			return err
		}
		for _, t := range tickers {
			fmt.Fprintln(cmd.OutOrStdout(), t)
		}
		return nil
	},
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if p, _ := cmd.Flags().GetInt("port"); p > 0 {
			cfg.API.Port = p
		}

		opts, err := pipelineOptions(cfg, logger)
		if err != nil {
			return err
		}
		scorer, err := newScorer(cfg)
		if err != nil {
			return err
		}
		sup, err := newSupplier(cfg)
		if err != nil {
			return err
		}

		deps := api.Deps{
			Pipeline: pipeline.New(scorer, opts...),
			Supplier: sup,
			Logger:   logger,
			Version:  version,
		}
		if fv, ok := sup.(*datasource.FinViz); ok {
			deps.Discoverer = fv
		} else {
			deps.Discoverer = newFinViz(cfg)
		}

		srv, err := api.NewServer(cfg, deps)
		if err != nil {
			return err
		}

		ctx, stop := context.WithCancel(cmd.Context())
		defer stop()
		go infra.RunCleanup(ctx, seconds(cfg.Scrape.CleanupSec), cleaners(sup, scorer, deps.Discoverer)...)

		addr := net.JoinHostPort(cfg.API.Host, strconv.Itoa(cfg.API.Port))
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (overrides api.port)")
	discoverCmd.Flags().String("screen", "", "comma-separated FinViz screener filters (e.g. cap_large,sector_technology)")
}
