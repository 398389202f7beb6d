package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <pdf>",
	Short: "Write every table preview to an XLSX workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := exportOut
		if out == "" {
			base := filepath.Base(args[0])
			out = strings.TrimSuffix(base, filepath.Ext(base)) + ".xlsx"
		}
		svc, doc, err := openDocument(cmd.Context(), args[0], false)
		if err != nil {
			return err
		}
		defer svc.Close()

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		if err := svc.Export(doc, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", out, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d tables)\n", out, len(doc.ChunkSet.Tables))
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default <pdf name>.xlsx)")
}
