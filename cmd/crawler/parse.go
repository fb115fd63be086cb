package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"steamscraper/internal/crawler"
	"steamscraper/internal/crawler/parsers"
	"steamscraper/internal/models"
	"steamscraper/internal/store"
	"steamscraper/internal/validator"
)

var parseFlags struct {
	appID     int
	ageGated  bool
	schema    string
	withHTML  bool
	showNotes bool
}

var parseCmd = &cobra.Command{
	Use:   "parse <page.html>",
	Short: "Extracts a record from a saved store page without fetching anything.",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	f := parseCmd.Flags()
	f.IntVar(&parseFlags.appID, "app-id", 0, "App id of the saved page")
	f.BoolVar(&parseFlags.ageGated, "age-gated", false, "The page was saved after passing the age gate")
	f.StringVar(&parseFlags.schema, "schema", "", "Schema version to extract (default: crawler.schema_version)")
	f.BoolVar(&parseFlags.withHTML, "with-html", false, "Include the page markup in the printed record")
	f.BoolVar(&parseFlags.showNotes, "notes", true, "Print requirements parsing notes to stderr")

	rootCmd.AddCommand(parseCmd)
}

func runParse(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	version := cfg.Crawler.Schema()
	if parseFlags.schema != "" {
		if version, err = models.ParseSchemaVersion(parseFlags.schema); err != nil {
			return err
		}
	}

	html, err := crawler.ReadLocalFile(args[0])
	if err != nil {
		return err
	}

	policies, err := cfg.ValidityPolicies()
	if err != nil {
		return err
	}

	classifier := validator.NewClassifier(policies)
	pipeline := crawler.NewPipeline(nil, parsers.NewParser(), nil, classifier, crawler.PipelineOptions{Version: version})

	record, notes, err := pipeline.Extract(&crawler.FetchResult{
		AppID:           parseFlags.appID,
		URL:             crawler.NewScraper(&cfg.Crawler).AppURL(parseFlags.appID),
		HTML:            html,
		AgeGateBypassed: parseFlags.ageGated,
	})
	if err != nil {
		return err
	}

	if parseFlags.showNotes {
		for _, note := range notes {
			fmt.Fprintf(os.Stderr, "📝 %s\n", note)
		}
	}

	result := classifier.Classify(record)
	if result.Valid {
		fmt.Fprintf(os.Stderr, "✅ Valid %s record\n", record.Version)
	} else {
		fmt.Fprintf(os.Stderr, "🗑️  Would be trash, missing: %s\n", strings.Join(result.Missing, ", "))
	}

	if !parseFlags.withHTML {
		record.HTML = ""
	}

	return store.Encode(os.Stdout, record, true)
}
