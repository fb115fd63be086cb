// Package main provides the migrator command-line tool for upgrading archived game records between schema versions.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"steamscraper/internal/config"
	"steamscraper/internal/crawler/parsers"
	"steamscraper/internal/formatter"
	"steamscraper/internal/journal"
	"steamscraper/internal/logger"
	"steamscraper/internal/migrate"
	"steamscraper/internal/models"
	"steamscraper/internal/store"
)

const defaultConfig = "configs/steamscraper.yaml"

// errFilesFailed makes the process exit non-zero after a completed batch.
var errFilesFailed = errors.New("some files failed to migrate")

var flags struct {
	config     string
	from       string
	to         string
	in         string
	out        string
	workers    int
	report     string
	skipVerify bool
	journal    bool
}

var rootCmd = &cobra.Command{
	Use:   "migrator --from <version> --to <version> --in <dir> --out <dir>",
	Short: "migrator re-derives newer record versions from the markup kept in older ones.",
	Example: `  migrator --from 1.0 --to 2.0 --in data/games_v1.0 --out data/games_v2.0
  migrator --from 2.0 --to 3.0 --in data/games_v2.0 --out data/games_v3.0 --workers 4`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	f := rootCmd.Flags()
	f.StringVar(&flags.config, "config", "", "Path to YAML configuration file (default "+defaultConfig+" when present)")
	f.StringVar(&flags.from, "from", "", "Source schema version")
	f.StringVar(&flags.to, "to", "", "Target schema version")
	f.StringVar(&flags.in, "in", "", "Input archive directory")
	f.StringVar(&flags.out, "out", "", "Output archive directory")
	f.IntVar(&flags.workers, "workers", 0, "Parallel workers (overrides config)")
	f.StringVar(&flags.report, "report", "", "Write a markdown summary to this file (overrides config)")
	f.BoolVar(&flags.skipVerify, "skip-html-verify", false, "Do not re-read outputs to verify the retained markup")
	f.BoolVar(&flags.journal, "journal", false, "Record per-file outcomes in the run journal")

	for _, name := range []string{"from", "to", "in", "out"} {
		_ = rootCmd.MarkFlagRequired(name)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, errFilesFailed) {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		}

		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	path := flags.config
	if path == "" {
		if _, err := os.Stat(defaultConfig); err == nil {
			path = defaultConfig
		}
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if flags.workers > 0 {
		cfg.Migration.Workers = flags.workers
	}

	if flags.report != "" {
		cfg.Migration.ReportPath = flags.report
	}

	if flags.skipVerify {
		cfg.Migration.SkipHTMLVerify = true
	}

	if flags.journal {
		cfg.Journal.Enabled = true
	}

	return cfg, cfg.Validate()
}

func run(cmd *cobra.Command, _ []string) error {
	from, err := models.ParseSchemaVersion(flags.from)
	if err != nil {
		return err
	}

	to, err := models.ParseSchemaVersion(flags.to)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.New(logger.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
	})
	defer log.Close()

	onNotes := func(appID int, notes []string) {
		log.Debug("requirements parsing notes", "app_id", appID, "notes", notes)
	}

	steps, err := migrate.Plan(from, to, parsers.NewParser(), onNotes)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	runID := journal.NewRunID()

	var recorder migrate.Recorder

	if cfg.Journal.Enabled {
		j, err := journal.Open(cfg.Journal.Path, log)
		if err != nil {
			return err
		}
		defer j.Close()

		if _, err := j.BeginRunWithID(ctx, runID, journal.KindMigrate); err != nil {
			return err
		}

		defer func() {
			if err := j.FinishRun(context.WithoutCancel(ctx), runID); err != nil {
				log.Warn("failed to finish journal run", "error", err)
			}
		}()

		recorder = j
	}

	in := store.NewFileStore(flags.in, true)
	out := store.NewFileStore(flags.out, !cfg.Storage.Compact)

	orchestrator, err := migrate.NewOrchestrator(in, out, steps, migrate.Options{
		Workers:       cfg.Migration.Workers,
		ProgressEvery: cfg.Migration.ProgressEvery,
		VerifyHTML:    !cfg.Migration.SkipHTMLVerify,
		RunID:         runID,
		Recorder:      recorder,
		Logger:        log,
		OnProgress: func(processed int, s migrate.Summary) {
			fmt.Println(formatter.MigrationProgress(processed, s))
		},
	})
	if err != nil {
		return err
	}

	fmt.Printf("🚀 Upgrading %s → %s (run %s)\n", from, to, runID)
	fmt.Printf("📂 Input directory:  %s\n", flags.in)
	fmt.Printf("📁 Output directory: %s\n\n", flags.out)

	summary, runErr := orchestrator.Run(ctx)

	tables := formatter.MigrationTables(summary)

	fmt.Println()

	for _, t := range tables {
		formatter.RenderTable(os.Stdout, t)
	}

	if cfg.Migration.ReportPath != "" {
		title := fmt.Sprintf("Migration %s → %s (run %s)", from, to, runID)
		if err := formatter.WriteMarkdown(cfg.Migration.ReportPath, title, tables); err != nil {
			return err
		}

		fmt.Printf("📝 Report written to %s\n", cfg.Migration.ReportPath)
	}

	if runErr != nil {
		return fmt.Errorf("migration interrupted: %w", runErr)
	}

	if summary.Failed > 0 {
		fmt.Fprintf(os.Stderr, "❌ %d of %d files failed: %s\n", summary.Failed, summary.Total, failedNames(summary, 5))

		return errFilesFailed
	}

	fmt.Println("✅ Migration complete")

	return nil
}

func failedNames(s migrate.Summary, limit int) string {
	names := make([]string, 0, limit)

	for i, f := range s.Failures {
		if i == limit {
			names = append(names, fmt.Sprintf("and %d more", len(s.Failures)-limit))

			break
		}

		names = append(names, f.Name)
	}

	return strings.Join(names, ", ")
}
