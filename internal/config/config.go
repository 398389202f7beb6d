// Package config loads hilens settings from defaults, an optional YAML file
// and HILENS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dgallion1/hilens/internal/answer"
	"github.com/dgallion1/hilens/internal/chunker"
	"github.com/dgallion1/hilens/internal/crop"
	"github.com/dgallion1/hilens/internal/label"
	"github.com/dgallion1/hilens/internal/pdfpage"
	"github.com/dgallion1/hilens/internal/preview"
	"github.com/dgallion1/hilens/internal/region"
	"github.com/dgallion1/hilens/internal/retrieval"
	"github.com/dgallion1/hilens/internal/toc"
)

type Config struct {
	Server    Server    `mapstructure:"server"`
	Log       Log       `mapstructure:"log"`
	PDF       PDF       `mapstructure:"pdf"`
	Label     Label     `mapstructure:"label"`
	Region    Region    `mapstructure:"region"`
	TOC       TOC       `mapstructure:"toc"`
	Preview   Preview   `mapstructure:"preview"`
	Crop      Crop      `mapstructure:"crop"`
	OCR       OCR       `mapstructure:"ocr"`
	Retrieval Retrieval `mapstructure:"retrieval"`
	Embedding Embedding `mapstructure:"embedding"`
	Answer    Answer    `mapstructure:"answer"`
	Store     Store     `mapstructure:"store"`
	Cache     Cache     `mapstructure:"cache"`
	Metrics   Metrics   `mapstructure:"metrics"`
}

type Server struct {
	Addr            string        `mapstructure:"addr"`
	APIKey          string        `mapstructure:"api_key"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

type PDF struct {
	FallbackPdftotext bool          `mapstructure:"fallback_pdftotext"`
	FallbackTimeout   time.Duration `mapstructure:"fallback_timeout"`
}

type Label struct {
	BoldMarkers []string `mapstructure:"bold_markers"`
}

type Region struct {
	Padding         float64 `mapstructure:"padding"`
	BottomMargin    float64 `mapstructure:"bottom_margin"`
	SideMargin      float64 `mapstructure:"side_margin"`
	MinLines        int     `mapstructure:"min_lines"`
	MinDigitDensity float64 `mapstructure:"min_digit_density"`
	MinSize         float64 `mapstructure:"min_size"`
	DefaultHeight   float64 `mapstructure:"default_height"`
	DefaultWidth    float64 `mapstructure:"default_width"`
}

type TOC struct {
	HeadChars     int `mapstructure:"head_chars"`
	HeadLines     int `mapstructure:"head_lines"`
	MinLabelLines int `mapstructure:"min_label_lines"`
}

type Preview struct {
	MinLines   int `mapstructure:"min_lines"`
	MaxRows    int `mapstructure:"max_rows"`
	MinColumns int `mapstructure:"min_columns"`
}

type Crop struct {
	Rasterizer       string  `mapstructure:"rasterizer"` // fitz or pdftoppm
	DPI              float64 `mapstructure:"dpi"`
	ThumbnailWidth   int     `mapstructure:"thumbnail_width"`
	TableBlankRun    int     `mapstructure:"table_blank_run"`
	FigureBlankRun   int     `mapstructure:"figure_blank_run"`
	TableUpperRatio  float64 `mapstructure:"table_upper_ratio"`
	FigureUpperRatio float64 `mapstructure:"figure_upper_ratio"`
}

type OCR struct {
	Enabled  bool    `mapstructure:"enabled"`
	Language string  `mapstructure:"language"`
	DPI      float64 `mapstructure:"dpi"`
}

type Retrieval struct {
	LexicalWeight float64 `mapstructure:"lexical_weight"`
	DenseWeight   float64 `mapstructure:"dense_weight"`
	DenseBreadth  int     `mapstructure:"dense_breadth"`
	MinCandidates int     `mapstructure:"min_candidates"`
	IndexTOCPages bool    `mapstructure:"index_toc_pages"`
	DefaultK      int     `mapstructure:"default_k"`

	PageChunkChars   int `mapstructure:"page_chunk_chars"`
	PageChunkOverlap int `mapstructure:"page_chunk_overlap"`
}

type Embedding struct {
	Backend    string        `mapstructure:"backend"` // null or openai
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	Dimensions int           `mapstructure:"dimensions"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Attempts   uint          `mapstructure:"attempts"`
}

type Answer struct {
	APIKey     string        `mapstructure:"api_key"`
	Model      string        `mapstructure:"model"`
	MaxTokens  int64         `mapstructure:"max_tokens"`
	CharLimit  int           `mapstructure:"char_limit"`
	MinContext int           `mapstructure:"min_context"`
	Timeout    time.Duration `mapstructure:"timeout"`
	Attempts   uint          `mapstructure:"attempts"`
}

type Store struct {
	TTL             time.Duration `mapstructure:"ttl"`
	JanitorInterval time.Duration `mapstructure:"janitor_interval"`
}

type Cache struct {
	Backend       string        `mapstructure:"backend"` // none, memory or redis
	MaxEntries    int           `mapstructure:"max_entries"`
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Prefix        string        `mapstructure:"prefix"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type Metrics struct {
	Window time.Duration `mapstructure:"window"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8090")
	v.SetDefault("server.api_key", "")
	v.SetDefault("server.max_upload_bytes", int64(52428800)) // 50MB
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("log.level", "info")

	v.SetDefault("pdf.fallback_pdftotext", true)
	v.SetDefault("pdf.fallback_timeout", 30*time.Second)

	v.SetDefault("label.bold_markers", label.DefaultBoldMarkers)

	r := region.DefaultOptions()
	v.SetDefault("region.padding", r.Padding)
	v.SetDefault("region.bottom_margin", r.BottomMargin)
	v.SetDefault("region.side_margin", r.SideMargin)
	v.SetDefault("region.min_lines", r.MinLines)
	v.SetDefault("region.min_digit_density", r.MinDigitDensity)
	v.SetDefault("region.min_size", r.MinSize)
	v.SetDefault("region.default_height", r.DefaultHeight)
	v.SetDefault("region.default_width", r.DefaultWidth)

	t := toc.DefaultOptions()
	v.SetDefault("toc.head_chars", t.HeadChars)
	v.SetDefault("toc.head_lines", t.HeadLines)
	v.SetDefault("toc.min_label_lines", t.MinLabelLines)

	p := preview.DefaultOptions()
	v.SetDefault("preview.min_lines", p.MinLines)
	v.SetDefault("preview.max_rows", p.MaxRows)
	v.SetDefault("preview.min_columns", p.MinColumns)

	tt, ft := crop.TableTrim(), crop.FigureTrim()
	v.SetDefault("crop.rasterizer", "fitz")
	v.SetDefault("crop.dpi", float64(crop.DefaultDPI))
	v.SetDefault("crop.thumbnail_width", 0)
	v.SetDefault("crop.table_blank_run", tt.BottomBlankRun)
	v.SetDefault("crop.figure_blank_run", ft.BottomBlankRun)
	v.SetDefault("crop.table_upper_ratio", tt.UpperRatio)
	v.SetDefault("crop.figure_upper_ratio", ft.UpperRatio)

	v.SetDefault("ocr.enabled", false)
	v.SetDefault("ocr.language", "kor+eng")
	v.SetDefault("ocr.dpi", 300.0)

	ro := retrieval.DefaultOptions()
	v.SetDefault("retrieval.lexical_weight", ro.LexicalWeight)
	v.SetDefault("retrieval.dense_weight", ro.DenseWeight)
	v.SetDefault("retrieval.dense_breadth", ro.DenseBreadth)
	v.SetDefault("retrieval.min_candidates", ro.MinCandidates)
	v.SetDefault("retrieval.index_toc_pages", ro.IndexTOCPages)
	v.SetDefault("retrieval.default_k", ro.DefaultK)
	v.SetDefault("retrieval.page_chunk_chars", ro.PageChunkRunes)
	v.SetDefault("retrieval.page_chunk_overlap", ro.PageChunkOverlap)

	v.SetDefault("embedding.backend", "null")
	v.SetDefault("embedding.api_key", "")
	v.SetDefault("embedding.model", retrieval.DefaultOpenAIModel)
	v.SetDefault("embedding.dimensions", 0)
	v.SetDefault("embedding.base_url", "")
	v.SetDefault("embedding.timeout", 60*time.Second)
	v.SetDefault("embedding.attempts", 3)

	ao := answer.DefaultOptions()
	v.SetDefault("answer.api_key", "")
	v.SetDefault("answer.model", answer.DefaultClaudeModel)
	v.SetDefault("answer.max_tokens", 1024)
	v.SetDefault("answer.char_limit", ao.CharLimit)
	v.SetDefault("answer.min_context", ao.MinContext)
	v.SetDefault("answer.timeout", 120*time.Second)
	v.SetDefault("answer.attempts", 3)

	v.SetDefault("store.ttl", time.Hour)
	v.SetDefault("store.janitor_interval", 5*time.Minute)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.max_entries", 32)
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.prefix", "hilens:chunkset:")
	v.SetDefault("cache.ttl", 24*time.Hour)

	v.SetDefault("metrics.window", time.Hour)
}

// Load reads configuration. cfgFile may be empty, in which case hilens.yaml
// is looked up in the working directory and ~/.hilens but not required.
func Load(cfgFile string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HILENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Provider keys fall back to the variables their SDKs document.
	_ = v.BindEnv("answer.api_key", "HILENS_ANSWER_API_KEY", "ANTHROPIC_API_KEY")
	_ = v.BindEnv("embedding.api_key", "HILENS_EMBEDDING_API_KEY", "OPENAI_API_KEY")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("hilens")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.hilens")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Retrieval.LexicalWeight < 0 || c.Retrieval.DenseWeight < 0 ||
		c.Retrieval.LexicalWeight+c.Retrieval.DenseWeight <= 0 {
		errs = append(errs, fmt.Errorf("retrieval weights must be non-negative with a positive sum"))
	}
	if c.Retrieval.DefaultK <= 0 || c.Retrieval.DenseBreadth <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.default_k and retrieval.dense_breadth must be positive"))
	}
	if c.Retrieval.PageChunkOverlap < 0 ||
		(c.Retrieval.PageChunkChars > 0 && c.Retrieval.PageChunkOverlap >= c.Retrieval.PageChunkChars) {
		errs = append(errs, fmt.Errorf("retrieval.page_chunk_overlap must be in [0, page_chunk_chars)"))
	}
	if c.Crop.DPI < crop.MinDPI || c.Crop.DPI > crop.MaxDPI {
		errs = append(errs, fmt.Errorf("crop.dpi %v outside [%d, %d]", c.Crop.DPI, crop.MinDPI, crop.MaxDPI))
	}
	if _, err := crop.NewRasterizer(c.Crop.Rasterizer); err != nil {
		errs = append(errs, err)
	}
	if c.Region.MinSize <= 0 {
		errs = append(errs, fmt.Errorf("region.min_size must be positive"))
	}
	switch c.Embedding.Backend {
	case "null", "":
	case "openai":
		if c.Embedding.APIKey == "" {
			errs = append(errs, fmt.Errorf("embedding.api_key (or OPENAI_API_KEY) is required for the openai backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown embedding backend %q", c.Embedding.Backend))
	}
	switch c.Cache.Backend {
	case "none", "", "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			errs = append(errs, fmt.Errorf("cache.redis_addr is required for the redis cache"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	return errors.Join(errs...)
}

// ChunkerConfig maps the extraction settings onto the chunk builder.
func (c Config) ChunkerConfig() chunker.Config {
	return chunker.Config{
		Label: label.Options{BoldMarkers: c.Label.BoldMarkers},
		Region: region.Options{
			Padding:         c.Region.Padding,
			BottomMargin:    c.Region.BottomMargin,
			SideMargin:      c.Region.SideMargin,
			MinLines:        c.Region.MinLines,
			MinDigitDensity: c.Region.MinDigitDensity,
			MinSize:         c.Region.MinSize,
			DefaultHeight:   c.Region.DefaultHeight,
			DefaultWidth:    c.Region.DefaultWidth,
		},
		TOC: toc.Options{
			HeadChars:     c.TOC.HeadChars,
			HeadLines:     c.TOC.HeadLines,
			MinLabelLines: c.TOC.MinLabelLines,
		},
		Preview: preview.Options{
			MinLines:   c.Preview.MinLines,
			MaxRows:    c.Preview.MaxRows,
			MinColumns: c.Preview.MinColumns,
		},
		PDF: pdfpage.Options{
			FallbackPdftotext: c.PDF.FallbackPdftotext,
			FallbackTimeout:   c.PDF.FallbackTimeout,
		},
		OCRFallback: c.OCR.Enabled,
		OCRDPI:      c.OCR.DPI,
	}
}

// TrimOptions returns the table and figure trim settings.
func (c Config) TrimOptions() (table, figure crop.TrimOptions) {
	table, figure = crop.TableTrim(), crop.FigureTrim()
	table.BottomBlankRun = c.Crop.TableBlankRun
	table.UpperRatio = c.Crop.TableUpperRatio
	figure.BottomBlankRun = c.Crop.FigureBlankRun
	figure.UpperRatio = c.Crop.FigureUpperRatio
	return table, figure
}

func (c Config) RetrievalOptions() retrieval.Options {
	return retrieval.Options{
		LexicalWeight: c.Retrieval.LexicalWeight,
		DenseWeight:   c.Retrieval.DenseWeight,
		DenseBreadth:  c.Retrieval.DenseBreadth,
		MinCandidates: c.Retrieval.MinCandidates,
		IndexTOCPages: c.Retrieval.IndexTOCPages,
		DefaultK:      c.Retrieval.DefaultK,

		PageChunkRunes:   c.Retrieval.PageChunkChars,
		PageChunkOverlap: c.Retrieval.PageChunkOverlap,
	}
}

func (c Config) AnswerOptions() answer.Options {
	return answer.Options{CharLimit: c.Answer.CharLimit, MinContext: c.Answer.MinContext}
}
