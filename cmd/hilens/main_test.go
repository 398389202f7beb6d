package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dgallion1/hilens/internal/chunkset"
	"github.com/dgallion1/hilens/internal/pdftest"
	"github.com/dgallion1/hilens/internal/retrieval"
)

// writeFixtures writes the sample report and a quiet config into a temp dir.
func writeFixtures(t *testing.T) (pdfPath, cfgPath string) {
	t.Helper()
	dir := t.TempDir()
	pdfPath = filepath.Join(dir, "report.pdf")
	if err := os.WriteFile(pdfPath, pdftest.Report(), 0o600); err != nil {
		t.Fatalf("write pdf: %v", err)
	}
	cfgPath = filepath.Join(dir, "hilens.yaml")
	if err := os.WriteFile(cfgPath, []byte("log:\n  level: error\ncache:\n  backend: none\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return pdfPath, cfgPath
}

// run executes the root command with args and returns its stdout. Flag
// globals are reset when the test ends.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("HILENS_ANSWER_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("HILENS_EMBEDDING_API_KEY", "")
	t.Cleanup(func() {
		cfgFile = ""
		extractJSON, extractProgress = false, false
		searchK, searchScope, searchJSON, askK = 0, "tables", false, 0
		rootCmd.SetArgs(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	out, err := run(t, args...)
	if err != nil {
		t.Fatalf("hilens %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestExtract_JSON(t *testing.T) {
	pdf, cfg := writeFixtures(t)
	out := execute(t, "extract", pdf, "--json", "--config", cfg)

	var cs chunkset.ChunkSet
	if err := json.Unmarshal([]byte(out), &cs); err != nil {
		t.Fatalf("decode chunkset: %v\n%s", err, out)
	}
	if len(cs.Tables) != 2 || cs.Tables[0].Label != "2-1" || cs.Tables[1].Label != "4-2" {
		t.Errorf("unexpected tables %+v", cs.Tables)
	}
	if len(cs.Figures) != 1 || cs.Figures[0].Page != 2 {
		t.Errorf("unexpected figures %+v", cs.Figures)
	}
	if len(cs.Texts) != 3 || !cs.Texts[0].IsTOC {
		t.Errorf("expected the toc page flagged, got %+v", cs.Texts)
	}
}

func TestExtract_Summary(t *testing.T) {
	pdf, cfg := writeFixtures(t)
	out := execute(t, "extract", pdf, "--config", cfg)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected a header and three regions, got %q", out)
	}
	if !strings.HasPrefix(lines[0], "report.pdf: 3 pages, 2 tables, 1 figures") {
		t.Errorf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[1], "2-1") || !strings.Contains(lines[1], "연도별 발전량") {
		t.Errorf("unexpected table line %q", lines[1])
	}
	if !strings.HasPrefix(strings.TrimSpace(lines[3]), "그림 2-1") {
		t.Errorf("unexpected figure line %q", lines[3])
	}
}

func TestSearch_JSON(t *testing.T) {
	pdf, cfg := writeFixtures(t)
	out := execute(t, "search", pdf, "원자력", "--json", "-k", "3", "--config", cfg)

	var hits []retrieval.Hit
	if err := json.Unmarshal([]byte(out), &hits); err != nil {
		t.Fatalf("decode hits: %v\n%s", err, out)
	}
	if len(hits) == 0 {
		t.Fatal("expected hits for a term in table 2-1")
	}
	for _, h := range hits {
		if h.Label != "2-1" || h.PageLabel != 2 {
			t.Errorf("unexpected hit %+v", h)
		}
	}
}

func TestSearch_BadScope(t *testing.T) {
	pdf, cfg := writeFixtures(t)
	if _, err := run(t, "search", pdf, "발전량", "--scope", "everything", "--config", cfg); err == nil {
		t.Error("expected an error for an unknown scope")
	}
}
