package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dgallion1/hilens/internal/chunkset"
)

var (
	cropKind  string
	cropLabel string
	cropDPI   float64
	cropWidth int
	cropOut   string
)

var cropCmd = &cobra.Command{
	Use:   "crop <pdf>",
	Short: "Render a labeled table or figure to PNG",
	Long: `Render a table or figure by label, trimming its blank margins.

Examples:
  hilens crop report.pdf --label 3-1 --out table-3-1.png
  hilens crop report.pdf --kind figure --label 2-4 --dpi 300 --out fig.png`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, ok := chunkset.ParseKind(cropKind)
		if !ok {
			return fmt.Errorf("unknown kind %q (want table or figure)", cropKind)
		}
		if cropOut == "" {
			cropOut = fmt.Sprintf("%s-%s.png", kind, cropLabel)
		}
		svc, doc, err := openDocument(cmd.Context(), args[0], false)
		if err != nil {
			return err
		}
		defer svc.Close()

		png, err := svc.CropRegion(cmd.Context(), doc, kind, cropLabel, cropDPI, cropWidth)
		if err != nil {
			return err
		}
		if err := os.WriteFile(cropOut, png, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", cropOut, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", cropOut, len(png))
		return nil
	},
}

func init() {
	cropCmd.Flags().StringVar(&cropKind, "kind", "table", "region kind: table or figure")
	cropCmd.Flags().StringVar(&cropLabel, "label", "", "region label, e.g. 3-1")
	cropCmd.Flags().Float64Var(&cropDPI, "dpi", 0, "render resolution (default crop.dpi)")
	cropCmd.Flags().IntVar(&cropWidth, "width", 0, "scale down to at most this many pixels wide")
	cropCmd.Flags().StringVar(&cropOut, "out", "", "output file (default <kind>-<label>.png)")
	_ = cropCmd.MarkFlagRequired("label")
}
