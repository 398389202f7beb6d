// Package retrieval indexes a ChunkSet for hybrid lexical and dense search.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/dgallion1/hilens/internal/chunkset"
)

// Source tags which corpus a hit came from.
type Source string

const (
	SourceShort Source = "short" // caption + preview table
	SourceFull  Source = "full"  // caption + all region text
	SourcePage  Source = "page"
)

// Hit is one search result.
type Hit struct {
	PageIndex  int     `json:"page_index"` // 0-based
	PageLabel  int     `json:"page_label"` // 1-based
	TableIndex int     `json:"table_index"`
	Chunk      int     `json:"chunk,omitempty"` // window within a page text
	IsTOC      bool    `json:"is_toc"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
	Source     Source  `json:"source"`
	Label      string  `json:"label,omitempty"`
	Title      string  `json:"title,omitempty"`
}

type Options struct {
	LexicalWeight float64
	DenseWeight   float64
	DenseBreadth  int // dense shortlist is DenseBreadth*k
	MinCandidates int // per-corpus candidates are max(2k, MinCandidates)
	IndexTOCPages bool
	DefaultK      int

	PageChunkRunes   int // page texts are indexed in windows of this size
	PageChunkOverlap int
}

func DefaultOptions() Options {
	return Options{
		LexicalWeight: 0.6,
		DenseWeight:   0.4,
		DenseBreadth:  4,
		MinCandidates: 10,
		IndexTOCPages: true,
		DefaultK:      5,

		PageChunkRunes:   1200,
		PageChunkOverlap: 150,
	}
}

const scoreEps = 1e-8

type corpus struct {
	source Source
	hits   []Hit
	bm     *BM25
	vecs   VectorIndex
}

// Index is immutable after Build and safe for concurrent searches.
type Index struct {
	backend EmbeddingBackend
	opts    Options
	log     *slog.Logger

	short, full, pages *corpus
}

// Build indexes the tables (short and full corpora, plus TOC pages as
// pseudo-tables) and the page texts of cs. Embedding failures degrade the
// affected corpus to lexical-only search.
func Build(ctx context.Context, cs *chunkset.ChunkSet, backend EmbeddingBackend, opts Options, log *slog.Logger) (*Index, error) {
	if backend == nil {
		backend = NullBackend{}
	}
	ix := &Index{backend: backend, opts: opts, log: log}

	var short, full, pages []Hit
	perPage := make(map[int]int)
	for _, r := range cs.Tables {
		ti := perPage[r.Page]
		perPage[r.Page]++
		base := Hit{PageIndex: r.Page - 1, PageLabel: r.Page, TableIndex: ti, Label: r.Label, Title: r.Title}
		caption := r.Caption
		if caption == "" {
			caption = strings.TrimSpace(chunkset.KindTable.Prefix() + " " + r.Label + " " + r.Title)
		}

		s := base
		s.Source, s.Text = SourceShort, joinNonEmpty(caption, r.PreviewMD)
		short = append(short, s)

		f := base
		f.Source, f.Text = SourceFull, joinNonEmpty(caption, r.Text)
		full = append(full, f)
	}
	for _, pt := range cs.Texts {
		if strings.TrimSpace(pt.Text) == "" {
			continue
		}
		h := Hit{PageIndex: pt.Page - 1, PageLabel: pt.Page, IsTOC: pt.IsTOC, Text: pt.Text}
		if pt.IsTOC && opts.IndexTOCPages {
			toc := h
			toc.Source = SourceShort
			short = append(short, toc)
		}
		h.Source = SourcePage
		for i, text := range SplitRunes(pt.Text, opts.PageChunkRunes, opts.PageChunkOverlap) {
			c := h
			c.Chunk, c.Text = i, text
			pages = append(pages, c)
		}
	}

	var err error
	if ix.short, err = ix.newCorpus(ctx, SourceShort, short); err != nil {
		return nil, err
	}
	if ix.full, err = ix.newCorpus(ctx, SourceFull, full); err != nil {
		return nil, err
	}
	if ix.pages, err = ix.newCorpus(ctx, SourcePage, pages); err != nil {
		return nil, err
	}
	log.Info("retrieval index built",
		"backend", backend.Name(),
		"short", len(short), "full", len(full), "pages", len(pages))
	return ix, nil
}

// SplitRunes cuts s into windows of size runes, each starting overlap runes
// before the previous one ended. A non-positive size keeps s whole.
func SplitRunes(s string, size, overlap int) []string {
	rs := []rune(s)
	if size <= 0 || len(rs) <= size {
		return []string{s}
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	var out []string
	for start := 0; ; start += size - overlap {
		end := min(start+size, len(rs))
		out = append(out, string(rs[start:end]))
		if end == len(rs) {
			return out
		}
	}
}

func joinNonEmpty(parts ...string) string {
	var keep []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			keep = append(keep, p)
		}
	}
	return strings.Join(keep, "\n")
}

func (ix *Index) newCorpus(ctx context.Context, src Source, hits []Hit) (*corpus, error) {
	c := &corpus{source: src, hits: hits}
	toks := make([][]string, len(hits))
	texts := make([]string, len(hits))
	for i, h := range hits {
		toks[i] = Tokenize(h.Text)
		texts[i] = h.Text
	}
	c.bm = NewBM25(toks)

	if len(hits) == 0 || isNull(ix.backend) {
		return c, nil
	}
	vecs, err := ix.backend.Embed(ctx, texts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("embed %s corpus: %w", src, ctx.Err())
		}
		ix.log.Warn("embedding corpus failed, using lexical scores only", "corpus", src, "error", err)
		return c, nil
	}
	c.vecs = NewFlatIndex(vecs)
	return c, nil
}

// queryVector embeds the query, or returns nil when dense scoring is off.
func (ix *Index) queryVector(ctx context.Context, query string) []float32 {
	if isNull(ix.backend) {
		return nil
	}
	vecs, err := ix.backend.Embed(ctx, []string{query})
	if err != nil || len(vecs) != 1 {
		ix.log.Warn("query embedding failed, using lexical scores only", "error", err)
		return nil
	}
	return normalize(vecs[0])
}

// rank fuses normalized BM25 and dense scores and returns the top
// candidates with a positive score, best first. Ties keep corpus order.
func (c *corpus) rank(qtok []string, qvec []float32, k int, opts Options) []Hit {
	n := len(c.hits)
	if n == 0 {
		return nil
	}
	bm := c.bm.Scores(qtok)
	dense := make([]float64, n)
	if qvec != nil && c.vecs != nil {
		idx, sims := c.vecs.Search(qvec, min(opts.DenseBreadth*k, n))
		for i, j := range idx {
			if sims[i] > 0 {
				dense[j] = float64(sims[i])
			}
		}
	}
	bmMax, dMax := maxOf(bm), maxOf(dense)

	scores := make([]float64, n)
	order := make([]int, n)
	for i := range scores {
		scores[i] = opts.LexicalWeight*bm[i]/(bmMax+scoreEps) + opts.DenseWeight*dense[i]/(dMax+scoreEps)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	topn := min(max(2*k, opts.MinCandidates), n)
	out := make([]Hit, 0, topn)
	for _, i := range order[:topn] {
		if scores[i] <= 0 {
			break
		}
		h := c.hits[i]
		h.Score = scores[i]
		out = append(out, h)
	}
	return out
}

func maxOf(xs []float64) float64 {
	m := 0.0
	for _, x := range xs {
		if x > m {
			m = x
		}
	}
	return m
}

// SearchTables ranks tables for query across the short and full corpora,
// deduplicates by (page, table, chunk, source), and prefers non-TOC hits, falling
// back to TOC hits only when nothing else matched.
func (ix *Index) SearchTables(ctx context.Context, query string, k int) ([]Hit, error) {
	return ix.search(ctx, query, k, ix.short, ix.full)
}

// SearchPages ranks page texts with the same fusion and TOC policy.
func (ix *Index) SearchPages(ctx context.Context, query string, k int) ([]Hit, error) {
	return ix.search(ctx, query, k, ix.pages)
}

func (ix *Index) search(ctx context.Context, query string, k int, corpora ...*corpus) ([]Hit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = ix.opts.DefaultK
	}
	qtok := Tokenize(query)
	qvec := ix.queryVector(ctx, query)

	var all []Hit
	for _, c := range corpora {
		all = append(all, c.rank(qtok, qvec, k, ix.opts)...)
	}
	sort.SliceStable(all, func(a, b int) bool { return all[a].Score > all[b].Score })

	type key struct {
		page, table, chunk int
		source             Source
	}
	seen := make(map[key]bool, len(all))
	uniq := make([]Hit, 0, len(all))
	for _, h := range all {
		kk := key{h.PageIndex, h.TableIndex, h.Chunk, h.Source}
		if seen[kk] {
			continue
		}
		seen[kk] = true
		uniq = append(uniq, h)
	}

	var preferred []Hit
	for _, h := range uniq {
		if !h.IsTOC {
			preferred = append(preferred, h)
		}
	}
	if len(preferred) == 0 {
		preferred = uniq
	}
	if len(preferred) > k {
		preferred = preferred[:k]
	}
	return preferred, nil
}

// Backend returns the embedding backend in use.
func (ix *Index) Backend() EmbeddingBackend { return ix.backend }
