package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dgallion1/hilens/internal/chunker"
	"github.com/dgallion1/hilens/internal/config"
	"github.com/dgallion1/hilens/internal/pipeline"
	"github.com/dgallion1/hilens/internal/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "hilens",
	Short: "Table and figure extraction with hybrid retrieval for Korean PDF reports",
	Long: `hilens finds captioned tables and figures ("표 3-1", "그림 2-4") in PDF
reports, crops them to images, previews tables as Markdown and answers
questions over the extracted text.

Commands:
  serve    run the HTTP API
  extract  print the ChunkSet of a PDF
  search   run a hybrid search over a PDF
  ask      answer a question from a PDF
  crop     render a table or figure to PNG
  export   write all tables to an XLSX workbook`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./hilens.yaml or ~/.hilens/hilens.yaml)",
	)

	rootCmd.AddCommand(serveCmd, extractCmd, searchCmd, askCmd, cropCmd, exportCmd)
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, level string, json bool) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openDocument loads config, builds a service and ingests path. CLI commands
// log to stderr so stdout stays clean for results.
func openDocument(ctx context.Context, path string, progress bool) (*pipeline.Service, *store.Document, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log := newLogger(os.Stderr, cfg.Log.Level, false)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	svc, err := pipeline.New(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	var onPage chunker.ProgressFunc
	if progress {
		onPage = func(p chunker.Progress) {
			fmt.Fprintf(os.Stderr, "page %d/%d: %d tables, %d figures, toc=%v\n",
				p.PageLabel, p.Pages, p.Tables, p.Figures, p.TOC)
		}
	}
	doc, _, err := svc.IngestProgress(ctx, filepath.Base(path), data, onPage)
	if err != nil {
		svc.Close()
		return nil, nil, err
	}
	return svc, doc, nil
}
