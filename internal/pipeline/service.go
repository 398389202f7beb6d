// Package pipeline wires extraction, caching, indexing and answering into
// the operations served by the API and the CLI.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dgallion1/hilens/internal/answer"
	"github.com/dgallion1/hilens/internal/chunker"
	"github.com/dgallion1/hilens/internal/chunkset"
	"github.com/dgallion1/hilens/internal/config"
	"github.com/dgallion1/hilens/internal/crop"
	"github.com/dgallion1/hilens/internal/export"
	"github.com/dgallion1/hilens/internal/geom"
	"github.com/dgallion1/hilens/internal/metrics"
	"github.com/dgallion1/hilens/internal/ocr"
	"github.com/dgallion1/hilens/internal/retrieval"
	"github.com/dgallion1/hilens/internal/store"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// BuildFunc extracts a ChunkSet from PDF bytes.
type BuildFunc func(ctx context.Context, pdf []byte, progress chunker.ProgressFunc) (*chunkset.ChunkSet, error)

type Option func(*Service)

// WithBuildFunc replaces the chunk builder.
func WithBuildFunc(fn BuildFunc) Option {
	return func(s *Service) { s.build = fn }
}

// WithRasterizer replaces the configured rasterizer.
func WithRasterizer(r crop.Rasterizer) Option {
	return func(s *Service) { s.raster = r }
}

// Service owns the document store and every component built from config.
type Service struct {
	cfg      config.Config
	log      *slog.Logger
	build    BuildFunc
	raster   crop.Rasterizer
	cropper  *crop.Cropper
	backend  retrieval.EmbeddingBackend
	answerer *answer.Answerer
	store    *store.Store
	cache    store.Cache
	latency  *metrics.Latency
	closers  []func() error
}

// New wires the service from cfg. Optional components that cannot start
// (OCR without the ocr build tag, an unreachable Redis) are logged and
// disabled rather than failing startup.
func New(cfg config.Config, log *slog.Logger, opts ...Option) (*Service, error) {
	s := &Service{
		cfg:     cfg,
		log:     log,
		store:   store.New(cfg.Store.TTL),
		latency: metrics.NewLatency(cfg.Metrics.Window),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.raster == nil {
		r, err := crop.NewRasterizer(cfg.Crop.Rasterizer)
		if err != nil {
			return nil, err
		}
		s.raster = r
	}
	table, figure := cfg.TrimOptions()
	s.cropper = crop.NewCropper(s.raster, table, figure, log)

	builder := chunker.NewBuilder(cfg.ChunkerConfig(), log)
	if cfg.OCR.Enabled {
		rec, err := ocr.New(cfg.OCR.Language)
		switch {
		case err != nil:
			log.Warn("ocr fallback disabled", "error", err)
		default:
			builder.WithOCR(rec, s.cropper)
			s.closers = append(s.closers, rec.Close)
		}
	}
	if s.build == nil {
		s.build = builder.Build
	}

	switch cfg.Embedding.Backend {
	case "openai":
		s.backend = retrieval.NewOpenAIBackend(retrieval.OpenAIConfig{
			APIKey:     cfg.Embedding.APIKey,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
			BaseURL:    cfg.Embedding.BaseURL,
			Attempts:   cfg.Embedding.Attempts,
			Timeout:    cfg.Embedding.Timeout,
		}, s.latency, log)
	default:
		s.backend = retrieval.NullBackend{}
	}

	var model answer.Model
	if cfg.Answer.APIKey != "" {
		model = answer.NewClaudeClient(answer.ClaudeConfig{
			APIKey:    cfg.Answer.APIKey,
			Model:     cfg.Answer.Model,
			MaxTokens: cfg.Answer.MaxTokens,
			Attempts:  cfg.Answer.Attempts,
			Timeout:   cfg.Answer.Timeout,
		}, s.latency, log)
	}
	s.answerer = answer.New(model, cfg.AnswerOptions())

	s.cache = s.newCache()
	log.Info("pipeline ready",
		"rasterizer", cfg.Crop.Rasterizer,
		"embedding", s.backend.Name(),
		"answer_model", model != nil,
		"cache", cfg.Cache.Backend,
		"ocr", cfg.OCR.Enabled && ocr.Enabled,
	)
	return s, nil
}

func (s *Service) newCache() store.Cache {
	c := s.cfg.Cache
	switch c.Backend {
	case "redis":
		rc := store.NewRedisCache(store.RedisConfig{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Prefix:   c.Prefix,
			TTL:      c.TTL,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := rc.Ping(ctx); err != nil {
			s.log.Warn("redis cache unavailable, caching disabled", "addr", c.RedisAddr, "error", err)
			_ = rc.Close()
			return store.NopCache{}
		}
		s.closers = append(s.closers, rc.Close)
		return rc
	case "memory":
		return store.NewMemoryCache(c.MaxEntries)
	default:
		return store.NopCache{}
	}
}

// Run evicts idle documents until ctx is done.
func (s *Service) Run(ctx context.Context) {
	if s.cfg.Store.JanitorInterval <= 0 {
		return
	}
	s.store.Janitor(ctx, s.cfg.Store.JanitorInterval, func(n int) {
		s.log.Info("evicted idle documents", "count", n)
	})
}

// Close releases OCR and cache connections.
func (s *Service) Close() error {
	var errs []error
	for _, c := range s.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}

func (s *Service) Latency() *metrics.Latency { return s.latency }
func (s *Service) Store() *store.Store        { return s.store }

// List summarizes the loaded documents, oldest first.
func (s *Service) List() []store.Info { return s.store.List() }

// Document returns a stored document.
func (s *Service) Document(id string) (*store.Document, error) {
	doc, ok := s.store.Get(id)
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return doc, nil
}

// Evict forgets a document and its cached ChunkSet.
func (s *Service) Evict(ctx context.Context, id string) bool {
	if err := s.cache.Delete(ctx, id); err != nil {
		s.log.Warn("cache delete failed", "doc_id", id, "error", err)
	}
	return s.store.Evict(id)
}

// Region looks a table or figure up by label.
func (s *Service) Region(doc *store.Document, kind chunkset.Kind, label string) (*chunkset.Region, error) {
	r, ok := doc.ChunkSet.Find(kind, label)
	if !ok {
		return nil, fmt.Errorf("%s %s: %w", kind, label, ErrNotFound)
	}
	return r, nil
}

// CropRegion renders a labeled region as PNG. width > 0 scales the result
// down to at most that many pixels wide.
func (s *Service) CropRegion(ctx context.Context, doc *store.Document, kind chunkset.Kind, label string, dpi float64, width int) ([]byte, error) {
	r, err := s.Region(doc, kind, label)
	if err != nil {
		return nil, err
	}
	return s.crop(ctx, doc, kind, r.Page-1, r.BBox, dpi, width)
}

// Crop renders an arbitrary rectangle of a page (0-based) as PNG.
func (s *Service) Crop(ctx context.Context, doc *store.Document, kind chunkset.Kind, pageIndex int, bbox geom.Rect, dpi float64) ([]byte, error) {
	if pageIndex < 0 || pageIndex >= doc.ChunkSet.PageCount() {
		return nil, fmt.Errorf("%w: page index %d outside [0, %d)", ErrInvalidInput, pageIndex, doc.ChunkSet.PageCount())
	}
	return s.crop(ctx, doc, kind, pageIndex, bbox, dpi, 0)
}

func (s *Service) crop(ctx context.Context, doc *store.Document, kind chunkset.Kind, pageIndex int, bbox geom.Rect, dpi float64, width int) (png []byte, err error) {
	if dpi <= 0 {
		dpi = s.cfg.Crop.DPI
	}
	if dpi < crop.MinDPI || dpi > crop.MaxDPI {
		return nil, fmt.Errorf("%w: dpi %v outside [%d, %d]", ErrInvalidInput, dpi, crop.MinDPI, crop.MaxDPI)
	}
	if bbox.Empty() {
		return nil, fmt.Errorf("%w: empty bbox %v", ErrInvalidInput, bbox)
	}
	if width <= 0 {
		width = s.cfg.Crop.ThumbnailWidth
	}

	defer func(start time.Time) { s.latency.Since(metrics.OpCrop, start, err) }(time.Now())
	img, err := s.cropper.Crop(ctx, doc.PDF, kind, pageIndex, bbox, dpi)
	if err != nil {
		return nil, err
	}
	return crop.EncodePNG(crop.Thumbnail(img, width))
}

// Scope selects the corpus a search runs over.
type Scope string

const (
	ScopeTables Scope = "tables"
	ScopePages  Scope = "pages"
)

func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeTables:
		return ScopeTables, nil
	case ScopePages:
		return ScopePages, nil
	}
	return "", fmt.Errorf("%w: unknown scope %q", ErrInvalidInput, s)
}

// Search runs a hybrid search over one document.
func (s *Service) Search(ctx context.Context, doc *store.Document, query string, k int, scope Scope) ([]retrieval.Hit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInvalidInput)
	}
	if scope == ScopePages {
		return doc.Index.SearchPages(ctx, query, k)
	}
	return doc.Index.SearchTables(ctx, query, k)
}

// Ask answers a question from the document's tables, falling back to page
// text when no table matches.
func (s *Service) Ask(ctx context.Context, doc *store.Document, question string, k int) (answer.Result, error) {
	if strings.TrimSpace(question) == "" {
		return answer.Result{}, fmt.Errorf("%w: empty question", ErrInvalidInput)
	}
	hits, err := doc.Index.SearchTables(ctx, question, k)
	if err != nil {
		return answer.Result{}, err
	}
	if len(hits) == 0 {
		s.log.Debug("no table hits, answering from page text", "doc_id", doc.ID)
		if hits, err = doc.Index.SearchPages(ctx, question, k); err != nil {
			return answer.Result{}, err
		}
	}
	return s.answerer.Answer(ctx, question, hits)
}

// Export writes the document's tables as an XLSX workbook.
func (s *Service) Export(doc *store.Document, w io.Writer) error {
	return export.WriteTables(w, doc.ChunkSet)
}
