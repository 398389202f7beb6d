// Package chunker builds a ChunkSet from a PDF: it walks the pages in order,
// scans for captions, infers and validates regions, and attaches previews.
package chunker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/hilens/internal/chunkset"
	"github.com/dgallion1/hilens/internal/crop"
	"github.com/dgallion1/hilens/internal/label"
	"github.com/dgallion1/hilens/internal/ocr"
	"github.com/dgallion1/hilens/internal/pdfpage"
	"github.com/dgallion1/hilens/internal/preview"
	"github.com/dgallion1/hilens/internal/region"
	"github.com/dgallion1/hilens/internal/toc"
)

// Config controls extraction.
type Config struct {
	Label   label.Options
	Region  region.Options
	TOC     toc.Options
	Preview preview.Options
	PDF     pdfpage.Options

	// OCRFallback renders tables without a text preview and OCRs them.
	// It needs both a Recognizer and a Cropper.
	OCRFallback bool
	OCRDPI      float64
}

// DefaultConfig returns the tuned defaults.
func DefaultConfig() Config {
	return Config{
		Label:   label.Options{BoldMarkers: label.DefaultBoldMarkers},
		Region:  region.DefaultOptions(),
		TOC:     toc.DefaultOptions(),
		Preview: preview.DefaultOptions(),
		OCRDPI:  300,
	}
}

// Progress is reported once per page.
type Progress struct {
	PageIndex int  `json:"page_idx"`
	PageLabel int  `json:"page_label"`
	Pages     int  `json:"pages"`
	Tables    int  `json:"n_tables"`
	Figures   int  `json:"n_figures"`
	Words     int  `json:"n_words"`
	TOC       bool `json:"is_toc"`
	Images    int  `json:"n_images"`
	Vectors   int  `json:"n_vectors"`
}

type ProgressFunc func(Progress)

// Recognizer turns an encoded image into text.
type Recognizer interface {
	RecognizeImage(imageData []byte) (string, error)
}

// Builder is the Chunk Builder. It holds no per-document state.
type Builder struct {
	cfg     Config
	log     *slog.Logger
	ocr     Recognizer
	cropper *crop.Cropper
}

func NewBuilder(cfg Config, log *slog.Logger) *Builder {
	return &Builder{cfg: cfg, log: log}
}

// WithOCR enables the OCR preview fallback.
func (b *Builder) WithOCR(r Recognizer, c *crop.Cropper) *Builder {
	b.ocr = r
	b.cropper = c
	return b
}

// Build opens pdf and extracts its ChunkSet. Open failures wrap
// pdfpage.ErrUnreadable.
func (b *Builder) Build(ctx context.Context, pdf []byte, progress ProgressFunc) (*chunkset.ChunkSet, error) {
	doc, err := pdfpage.Open(pdf, b.cfg.PDF, b.log)
	if err != nil {
		return nil, err
	}
	return b.BuildSource(ctx, doc, pdf, progress)
}

// BuildSource extracts from an already opened source. pdf is only used for
// OCR rendering and may be nil when OCR is off. Cancellation is checked
// between pages; a cancelled build returns no ChunkSet.
func (b *Builder) BuildSource(ctx context.Context, src pdfpage.Source, pdf []byte, progress ProgressFunc) (*chunkset.ChunkSet, error) {
	cs := chunkset.New()
	n := src.NumPages()

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("build cancelled at page %d: %w", i+1, err)
		}
		p := b.buildPage(ctx, src, pdf, i, cs)
		p.Pages = n
		if progress != nil {
			progress(p)
		}
	}

	cs.Finalize()
	b.log.Info("chunkset built",
		"pages", n,
		"tables", len(cs.Tables),
		"figures", len(cs.Figures),
		"toc_pages", len(cs.TOCPages()),
	)
	return cs, nil
}

func (b *Builder) buildPage(ctx context.Context, src pdfpage.Source, pdf []byte, i int, cs *chunkset.ChunkSet) Progress {
	pageNo := i + 1
	prog := Progress{PageIndex: i, PageLabel: pageNo}

	page, err := src.Page(i)
	if err != nil {
		b.log.Warn("page unreadable, skipping", "page", pageNo, "error", err)
		cs.Texts = append(cs.Texts, chunkset.PageText{Page: pageNo, Text: ""})
		return prog
	}

	text := page.Text()
	isTOC := toc.IsTOC(text, b.cfg.TOC)
	cs.Texts = append(cs.Texts, chunkset.PageText{Page: pageNo, Text: text, IsTOC: isTOC})
	prog.Words = page.WordCount()
	prog.TOC = isTOC
	prog.Images = len(page.Images)
	prog.Vectors = len(page.Segments)
	if isTOC {
		return prog
	}

	cands := label.Scan(page, pageNo, b.cfg.Label)
	for _, m := range region.Infer(page, cands, b.cfg.Region) {
		r := chunkset.Region{
			Type:    m.Kind,
			Label:   m.Label,
			Title:   m.Title,
			Caption: m.Caption,
			Page:    pageNo,
			BBox:    m.BBox,
		}
		if m.Kind == chunkset.KindFigure {
			cs.Figures = append(cs.Figures, r)
			prog.Figures++
			continue
		}
		r.Text = page.TextIn(m.BBox)
		b.attachPreview(ctx, pdf, i, &r)
		cs.Tables = append(cs.Tables, r)
		prog.Tables++
	}
	return prog
}

// attachPreview fills PreviewMD from the region text, falling back to OCR.
// Failures leave the preview empty.
func (b *Builder) attachPreview(ctx context.Context, pdf []byte, pageIndex int, r *chunkset.Region) {
	md := preview.RoughMarkdown(r.Text, b.cfg.Preview)
	if md != "" && !preview.Valid(md, b.cfg.Preview.MinLines, b.cfg.Preview.MinColumns) {
		b.log.Debug("discarding malformed preview", "page", r.Page, "label", r.Label)
		md = ""
	}
	if md != "" {
		r.PreviewMD, r.PreviewSource = md, "text"
		return
	}
	if !b.cfg.OCRFallback || b.ocr == nil || b.cropper == nil || pdf == nil {
		return
	}

	log := b.log.With("page", r.Page, "label", r.Label)
	png, err := b.cropper.CropPNG(ctx, pdf, chunkset.KindTable, pageIndex, r.BBox, b.cfg.OCRDPI)
	if err != nil {
		log.Warn("ocr crop failed", "error", err)
		return
	}
	text, err := b.ocr.RecognizeImage(png)
	if err != nil {
		log.Warn("ocr failed", "error", err)
		return
	}
	if md := ocr.TableMarkdown(text); md != "" {
		r.PreviewMD, r.PreviewSource = md, "ocr"
	}
}
