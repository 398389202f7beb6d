package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	extractJSON     bool
	extractProgress bool
)

var extractCmd = &cobra.Command{
	Use:   "extract <pdf>",
	Short: "Extract tables, figures and page text from a PDF",
	Long: `Extract labeled tables and figures from a PDF.

By default a summary line per region is printed. With --json the full
ChunkSet is written to stdout.

Examples:
  hilens extract report.pdf
  hilens extract report.pdf --json > chunks.json
  hilens extract report.pdf --progress`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, doc, err := openDocument(cmd.Context(), args[0], extractProgress)
		if err != nil {
			return err
		}
		defer svc.Close()

		out := cmd.OutOrStdout()
		if extractJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(doc.ChunkSet)
		}

		info := doc.Info()
		fmt.Fprintf(out, "%s: %d pages, %d tables, %d figures, toc pages %v\n",
			info.Filename, info.Pages, info.Tables, info.Figures, info.TOCPages)
		for _, r := range doc.ChunkSet.Tables {
			fmt.Fprintf(out, "  표 %-8s p.%-4d %s\n", r.Label, r.Page, r.Title)
		}
		for _, r := range doc.ChunkSet.Figures {
			fmt.Fprintf(out, "  그림 %-7s p.%-4d %s\n", r.Label, r.Page, r.Title)
		}
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "write the full ChunkSet as JSON")
	extractCmd.Flags().BoolVar(&extractProgress, "progress", false, "report per-page progress on stderr")
}
