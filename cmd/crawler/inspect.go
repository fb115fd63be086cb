package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"steamscraper/internal/formatter"
	"steamscraper/internal/normalizer"
	"steamscraper/pkg/checksum"
)

var labelsAsOS bool

var labelsCmd = &cobra.Command{
	Use:   "labels <label>...",
	Short: "Shows how requirement labels (or OS tokens with --os) are normalized.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		if labelsAsOS {
			t := formatter.Table{Header: []string{"Token", "OS"}}
			for _, token := range args {
				t.Rows = append(t.Rows, []string{token, normalizer.NormalizeOS(token)})
			}

			formatter.RenderTable(os.Stdout, t)

			return
		}

		mapper := normalizer.NewFieldMapper(normalizer.DefaultFieldRules())

		t := formatter.Table{Header: []string{"Label", "Key", "Mapped"}}
		for _, label := range args {
			key, ok := mapper.Map(label)
			if !ok {
				key = "-"
			}

			t.Rows = append(t.Rows, []string{label, key, fmt.Sprint(ok)})
		}

		formatter.RenderTable(os.Stdout, t)
	},
}

var verifyReportCmd = &cobra.Command{
	Use:   "verify-report <report.md>",
	Short: "Checks that a crawl or migration report still matches its checksum block.",
	Args:  cobra.ExactArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("failed to read report: %w", err)
		}

		if err := checksum.Verify(string(content)); err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		fmt.Printf("✅ %s: checksum OK\n", args[0])

		return nil
	},
}

func init() {
	labelsCmd.Flags().BoolVar(&labelsAsOS, "os", false, "Treat arguments as platform tokens")
	rootCmd.AddCommand(labelsCmd, verifyReportCmd)
}
