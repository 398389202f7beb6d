package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dgallion1/hilens/internal/chunker"
	"github.com/dgallion1/hilens/internal/chunkset"
	"github.com/dgallion1/hilens/internal/metrics"
	"github.com/dgallion1/hilens/internal/retrieval"
	"github.com/dgallion1/hilens/internal/store"
)

// Where an ingested document came from.
const (
	SourceStore = "store"
	SourceCache = "cache"
	SourceBuild = "build"
)

// IngestInfo summarizes one ingest.
type IngestInfo struct {
	DocID      string `json:"doc_id"`
	Filename   string `json:"filename"`
	Cached     bool   `json:"cached"`
	Source     string `json:"source"`
	Pages      int    `json:"pages"`
	Tables     int    `json:"tables"`
	Figures    int    `json:"figures"`
	TOCPages   []int  `json:"toc_pages"`
	DurationMs int64  `json:"duration_ms"`
}

// Ingest extracts and indexes pdf, reusing the stored document or the
// cached ChunkSet when the same bytes were seen before.
func (s *Service) Ingest(ctx context.Context, filename string, pdf []byte) (*store.Document, IngestInfo, error) {
	return s.IngestProgress(ctx, filename, pdf, nil)
}

// IngestProgress is Ingest with per-page progress for fresh builds.
func (s *Service) IngestProgress(ctx context.Context, filename string, pdf []byte, progress chunker.ProgressFunc) (*store.Document, IngestInfo, error) {
	start := time.Now()
	if len(pdf) == 0 {
		return nil, IngestInfo{}, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}

	// Phase 1: Hash and store lookup
	hash := store.ContentHash(pdf)
	log := s.log.With("doc_id", hash, "filename", filename)
	if doc, ok := s.store.Get(hash); ok {
		log.Info("document already loaded")
		return doc, s.info(doc, SourceStore, start), nil
	}

	// Phase 2: Cache lookup, else build
	source := SourceCache
	cs, hit, err := s.cache.Get(ctx, hash)
	if err != nil {
		log.Warn("cache lookup failed, rebuilding", "error", err)
	}
	if !hit {
		source = SourceBuild
		if cs, err = s.buildChunkSet(ctx, pdf, progress); err != nil {
			log.Error("extraction failed", "error", err)
			return nil, IngestInfo{}, err
		}
		if err := s.cache.Set(ctx, hash, cs); err != nil {
			log.Warn("cache store failed", "error", err)
		}
	}

	// Phase 3: Index
	idx, err := retrieval.Build(ctx, cs, s.backend, s.cfg.RetrievalOptions(), log)
	if err != nil {
		return nil, IngestInfo{}, fmt.Errorf("build index: %w", err)
	}

	// Phase 4: Store
	doc := &store.Document{
		ID:       hash,
		Filename: filename,
		PDF:      pdf,
		ChunkSet: cs,
		Index:    idx,
	}
	s.store.Put(doc)
	info := s.info(doc, source, start)
	log.Info("document ingested",
		"source", source,
		"pages", info.Pages,
		"tables", info.Tables,
		"figures", info.Figures,
		"duration_ms", info.DurationMs,
	)
	return doc, info, nil
}

func (s *Service) buildChunkSet(ctx context.Context, pdf []byte, progress chunker.ProgressFunc) (cs *chunkset.ChunkSet, err error) {
	defer func(start time.Time) { s.latency.Since(metrics.OpBuild, start, err) }(time.Now())
	return s.build(ctx, pdf, progress)
}

func (s *Service) info(doc *store.Document, source string, start time.Time) IngestInfo {
	di := doc.Info()
	return IngestInfo{
		DocID:      doc.ID,
		Filename:   doc.Filename,
		Cached:     source != SourceBuild,
		Source:     source,
		Pages:      di.Pages,
		Tables:     di.Tables,
		Figures:    di.Figures,
		TOCPages:   di.TOCPages,
		DurationMs: time.Since(start).Milliseconds(),
	}
}
