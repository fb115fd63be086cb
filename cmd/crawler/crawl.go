package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"steamscraper/internal/config"
	"steamscraper/internal/crawler"
	"steamscraper/internal/crawler/parsers"
	"steamscraper/internal/formatter"
	"steamscraper/internal/journal"
	"steamscraper/internal/models"
	"steamscraper/internal/store"
	"steamscraper/internal/validator"
)

var crawlFlags struct {
	schema         string
	gamesDir       string
	delayMs        int
	noAgeGateRetry bool
	reportPath     string
	journalEnabled bool
	progressEvery  int
}

var crawlCmd = &cobra.Command{
	Use:   "crawl <app_id|start:end[:step]>...",
	Short: "Scrapes app ids and ranges, skipping ids that already have a record or trash marker.",
	Example: `  crawler crawl 730 440 570
  crawler crawl 10:1000:10 --delay-ms 1500`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCrawl,
}

func init() {
	f := crawlCmd.Flags()
	f.StringVar(&crawlFlags.schema, "schema", "", "Schema version to write (overrides config)")
	f.StringVar(&crawlFlags.gamesDir, "games-dir", "", "Output directory (overrides config)")
	f.IntVar(&crawlFlags.delayMs, "delay-ms", -1, "Politeness delay between fetches in milliseconds (overrides config)")
	f.BoolVar(&crawlFlags.noAgeGateRetry, "no-age-gate-retry", false, "Do not retry age-gated pages with verification cookies")
	f.StringVar(&crawlFlags.reportPath, "report", "", "Write a markdown summary to this file")
	f.BoolVar(&crawlFlags.journalEnabled, "journal", false, "Record per-app outcomes in the run journal")
	f.IntVar(&crawlFlags.progressEvery, "progress-every", 0, "Print a progress summary every N ids (overrides config)")

	rootCmd.AddCommand(crawlCmd)
}

func applyCrawlFlags(cfg *config.Config) error {
	if crawlFlags.schema != "" {
		version, err := models.ParseSchemaVersion(crawlFlags.schema)
		if err != nil {
			return err
		}

		cfg.Crawler.SchemaVersion = string(version)
	}

	if crawlFlags.gamesDir != "" {
		cfg.Storage.GamesDir = crawlFlags.gamesDir
	}

	if crawlFlags.delayMs >= 0 {
		cfg.Crawler.DelayMs = &crawlFlags.delayMs
	}

	if crawlFlags.noAgeGateRetry {
		cfg.Crawler.DisableAgeGateRetry = true
	}

	if crawlFlags.journalEnabled {
		cfg.Journal.Enabled = true
	}

	if crawlFlags.progressEvery > 0 {
		cfg.Crawler.ProgressEvery = crawlFlags.progressEvery
	}

	return cfg.Validate()
}

func runCrawl(cmd *cobra.Command, args []string) error {
	ids, err := crawler.ParseTargets(args)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := applyCrawlFlags(cfg); err != nil {
		return err
	}

	log := newLogger(cfg)
	defer log.Close()

	policies, err := cfg.ValidityPolicies()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	runID := journal.NewRunID()

	var recorder crawler.Recorder

	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path, log)
		if err != nil {
			return err
		}
		defer j.Close()

		if _, err := j.BeginRunWithID(ctx, runID, journal.KindCrawl); err != nil {
			return err
		}

		defer func() {
			if err := j.FinishRun(context.WithoutCancel(ctx), runID); err != nil {
				log.Warn("failed to finish journal run", "error", err)
			}
		}()

		recorder = j
	}

	fmt.Printf("🚀 Starting to scrape %d games (run %s, schema %s)\n", len(ids), runID, cfg.Crawler.Schema())
	fmt.Printf("📁 Output directory: %s\n\n", cfg.Storage.GamesDir)

	pipeline := crawler.NewPipeline(
		crawler.NewScraper(&cfg.Crawler),
		parsers.NewParser(),
		store.NewFileStore(cfg.Storage.GamesDir, !cfg.Storage.Compact),
		validator.NewClassifier(policies),
		crawler.PipelineOptions{
			Version:       cfg.Crawler.Schema(),
			AgeGateRetry:  !cfg.Crawler.DisableAgeGateRetry,
			ProgressEvery: cfg.Crawler.ProgressEvery,
			RunID:         runID,
			Recorder:      recorder,
			Logger:        log,
			OnProgress: func(processed int, stats crawler.Stats) {
				fmt.Println(formatter.CrawlProgress(processed, stats))
			},
		},
	)

	stats, runErr := pipeline.Run(ctx, ids)

	tables := formatter.CrawlTables(stats, pipeline.Validity())

	fmt.Println()

	for _, t := range tables {
		formatter.RenderTable(os.Stdout, t)
	}

	if crawlFlags.reportPath != "" {
		title := "Crawl run " + runID
		if err := formatter.WriteMarkdown(crawlFlags.reportPath, title, tables); err != nil {
			return err
		}

		fmt.Printf("📝 Report written to %s\n", crawlFlags.reportPath)
	}

	if runErr != nil {
		return fmt.Errorf("crawl stopped after %d of %d ids: %w", stats.Processed(), stats.Requested, runErr)
	}

	return nil
}
