package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8090" || cfg.Server.MaxUploadBytes != 52428800 {
		t.Errorf("unexpected server defaults %+v", cfg.Server)
	}
	if cfg.Retrieval.LexicalWeight != 0.6 || cfg.Retrieval.DenseWeight != 0.4 || cfg.Retrieval.DefaultK != 5 ||
		cfg.Retrieval.PageChunkChars != 1200 || cfg.Retrieval.PageChunkOverlap != 150 {
		t.Errorf("unexpected retrieval defaults %+v", cfg.Retrieval)
	}
	if cfg.Crop.TableBlankRun != 22 || cfg.Crop.FigureBlankRun != 28 || cfg.Crop.DPI != 220 {
		t.Errorf("unexpected crop defaults %+v", cfg.Crop)
	}
	if cfg.Store.TTL != time.Hour || cfg.Embedding.Backend != "null" {
		t.Errorf("unexpected defaults %+v %+v", cfg.Store, cfg.Embedding)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected defaults to validate, got %v", err)
	}

	cc := cfg.ChunkerConfig()
	if cc.Region.MinSize != 20 || cc.TOC.HeadChars != 1000 || !cc.PDF.FallbackPdftotext {
		t.Errorf("unexpected chunker config %+v", cc)
	}
	if len(cc.Label.BoldMarkers) != 3 {
		t.Errorf("expected default bold markers, got %v", cc.Label.BoldMarkers)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HILENS_RETRIEVAL_DEFAULT_K", "7")
	t.Setenv("HILENS_STORE_TTL", "90m")
	t.Setenv("HILENS_LABEL_BOLD_MARKERS", "bold,black")
	t.Setenv("HILENS_ANSWER_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Retrieval.DefaultK != 7 {
		t.Errorf("expected k=7, got %d", cfg.Retrieval.DefaultK)
	}
	if cfg.Store.TTL != 90*time.Minute {
		t.Errorf("expected 90m ttl, got %v", cfg.Store.TTL)
	}
	if strings.Join(cfg.Label.BoldMarkers, ",") != "bold,black" {
		t.Errorf("expected bold markers from env, got %v", cfg.Label.BoldMarkers)
	}
	if cfg.Answer.APIKey != "sk-ant-test" {
		t.Errorf("expected ANTHROPIC_API_KEY fallback, got %q", cfg.Answer.APIKey)
	}
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hilens.yaml")
	yaml := "crop:\n  rasterizer: pdftoppm\n  dpi: 300\nregion:\n  min_size: 30\ncache:\n  backend: redis\n  redis_addr: redis:6379\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Crop.Rasterizer != "pdftoppm" || cfg.Crop.DPI != 300 || cfg.Region.MinSize != 30 {
		t.Errorf("expected file values, got %+v %+v", cfg.Crop, cfg.Region)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.RedisAddr != "redis:6379" {
		t.Errorf("unexpected cache %+v", cfg.Cache)
	}
	if cfg.Retrieval.DefaultK != 5 {
		t.Errorf("expected untouched defaults, got k=%d", cfg.Retrieval.DefaultK)
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	base, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cases := []struct {
		name string
		mod  func(*Config)
	}{
		{"zero weights", func(c *Config) { c.Retrieval.LexicalWeight, c.Retrieval.DenseWeight = 0, 0 }},
		{"page overlap", func(c *Config) { c.Retrieval.PageChunkOverlap = 1200 }},
		{"dpi", func(c *Config) { c.Crop.DPI = 1200 }},
		{"rasterizer", func(c *Config) { c.Crop.Rasterizer = "gs" }},
		{"openai without key", func(c *Config) { c.Embedding.Backend, c.Embedding.APIKey = "openai", "" }},
		{"cache backend", func(c *Config) { c.Cache.Backend = "memcached" }},
		{"redis addr", func(c *Config) { c.Cache.Backend, c.Cache.RedisAddr = "redis", "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := base
			tc.mod(&c)
			if c.Validate() == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestTrimOptions(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	cfg.Crop.TableBlankRun = 30
	table, figure := cfg.TrimOptions()
	if table.BottomBlankRun != 30 || figure.BottomBlankRun != 28 || table.Pad != 6 {
		t.Errorf("unexpected trim options %+v %+v", table, figure)
	}
}
