package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dgallion1/hilens/internal/pipeline"
)

var (
	searchK     int
	searchScope string
	searchJSON  bool
	askK        int
)

var searchCmd = &cobra.Command{
	Use:   "search <pdf> <query>",
	Short: "Run a hybrid BM25 and embedding search over a PDF",
	Long: `Search a PDF's tables (caption, preview and region text) or its pages.

Examples:
  hilens search report.pdf "2023년 LNG 연료비"
  hilens search report.pdf "발전량" --scope pages -k 3`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		scope, err := pipeline.ParseScope(searchScope)
		if err != nil {
			return err
		}
		svc, doc, err := openDocument(cmd.Context(), args[0], false)
		if err != nil {
			return err
		}
		defer svc.Close()

		hits, err := svc.Search(cmd.Context(), doc, strings.Join(args[1:], " "), searchK, scope)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if searchJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(hits)
		}
		for i, h := range hits {
			label := h.Label
			if label == "" {
				label = "-"
			}
			fmt.Fprintf(out, "%2d. p.%-4d %-6s %-6s %.4f  %s\n", i+1, h.PageLabel, label, h.Source, h.Score, snippet(h.Text, 80))
		}
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <pdf> <question>",
	Short: "Answer a question from a PDF's tables and text",
	Long: `Answer a question using only the retrieved evidence. Requires an
Anthropic API key (answer.api_key or ANTHROPIC_API_KEY) unless the
evidence is too thin to answer.

Example:
  hilens ask report.pdf "2023년 석탄 연료비는 얼마인가?"`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, doc, err := openDocument(cmd.Context(), args[0], false)
		if err != nil {
			return err
		}
		defer svc.Close()

		res, err := svc.Ask(cmd.Context(), doc, strings.Join(args[1:], " "), askK)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, res.Answer)
		if len(res.Evidences) > 0 {
			fmt.Fprintln(out, "\n근거:")
			for _, e := range res.Evidences {
				fmt.Fprintf(out, "  p.%d (%.4f) %s\n", e.Page, e.Score, e.Snippet)
			}
		}
		return nil
	},
}

func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "k", "k", 0, "number of hits (default retrieval.k)")
	searchCmd.Flags().StringVar(&searchScope, "scope", "tables", "corpus to search: tables or pages")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "write hits as JSON")
	askCmd.Flags().IntVarP(&askK, "k", "k", 0, "number of evidence hits (default retrieval.k)")
}
