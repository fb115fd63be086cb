package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"steamscraper/internal/formatter"
	"steamscraper/internal/journal"
)

var failedRunID string

var failedCmd = &cobra.Command{
	Use:   "failed [--run <run_id>]",
	Short: "Lists app ids that failed in a journaled crawl run (default: the latest).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		j, err := journal.Open(cfg.Journal.Path, nil)
		if err != nil {
			return err
		}
		defer j.Close()

		ctx := cmd.Context()

		runID := failedRunID
		if runID == "" {
			run, err := j.LastRun(ctx, journal.KindCrawl)
			if err != nil {
				return err
			}

			runID = run.ID
		}

		entries, err := j.Failed(ctx, runID)
		if err != nil {
			return err
		}

		t := formatter.Table{
			Title:  "Failed in run " + runID,
			Header: []string{"App ID", "Detail"},
		}
		for _, e := range entries {
			t.Rows = append(t.Rows, []string{strconv.Itoa(e.AppID), e.Detail})
		}

		formatter.RenderTable(os.Stdout, t)
		fmt.Printf("%d failed\n", len(entries))

		return nil
	},
}

func init() {
	failedCmd.Flags().StringVar(&failedRunID, "run", "", "Run id to inspect")
	rootCmd.AddCommand(failedCmd)
}
