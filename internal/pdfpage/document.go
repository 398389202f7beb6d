package pdfpage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/dgallion1/hilens/internal/geom"
	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// ErrUnreadable marks a document that could not be opened at all.
var ErrUnreadable = errors.New("unreadable pdf")

// Options controls how documents are opened.
type Options struct {
	// FallbackPdftotext reads page text with poppler's pdftotext when the
	// content stream cannot be interpreted.
	FallbackPdftotext bool
	FallbackTimeout   time.Duration
}

// Document is an opened PDF. It is safe for sequential use only.
type Document struct {
	data   []byte
	reader *pdf.Reader
	dims   []types.Dim
	opts   Options
	log    *slog.Logger
}

// Open parses data. Failures here are whole-document failures and wrap
// ErrUnreadable.
func Open(data []byte, opts Options, log *slog.Logger) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrUnreadable)
	}
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	if reader.NumPage() == 0 {
		return nil, fmt.Errorf("%w: no pages", ErrUnreadable)
	}

	d := &Document{data: data, reader: reader, opts: opts, log: log}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	dims, err := api.PageDims(bytes.NewReader(data), conf)
	if err != nil {
		log.Warn("page dimensions unavailable, using MediaBox", "error", err)
	} else {
		d.dims = dims
	}
	return d, nil
}

// PageCount returns the page count as pdfcpu sees it.
func PageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	return n, nil
}

func (d *Document) NumPages() int { return d.reader.NumPage() }

// Page renders page i (0-based). Content that cannot be interpreted is
// recovered; with the text fallback enabled the page is returned with
// PlainText only.
func (d *Document) Page(i int) (*Page, error) {
	pg, err := d.render(i)
	if err == nil {
		return pg, nil
	}
	if !d.opts.FallbackPdftotext {
		return nil, err
	}
	text, ferr := d.pdftotext(i)
	if ferr != nil {
		return nil, fmt.Errorf("%w (fallback: %v)", err, ferr)
	}
	d.log.Warn("page content unreadable, using pdftotext", "page", i+1, "error", err)
	return &Page{Index: i, Box: d.pageSize(i, geom.Rect{}), PlainText: text}, nil
}

func (d *Document) render(i int) (pg *Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			pg, err = nil, fmt.Errorf("page %d: %v", i+1, r)
		}
	}()
	p := d.reader.Page(i + 1)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d: missing page object", i+1)
	}
	media := mediaBox(p.V)
	box := d.pageSize(i, media)
	if media.Empty() {
		media = geom.Rect{X1: box.X1, Y1: box.Y1}
	}

	content := p.Content()
	pg = &Page{
		Index: i,
		Box:   box,
		Spans: buildSpans(content.Text, media, cidWidths(p)),
	}
	segs, imgs, gerr := collectGraphics(p, media)
	if gerr != nil {
		d.log.Warn("graphics interpretation incomplete", "page", i+1, "error", gerr)
	}
	pg.Segments, pg.Images = segs, imgs
	return pg, nil
}

// pageSize is the page rectangle at the origin. pdfcpu dimensions win when
// available; otherwise the MediaBox is used.
func (d *Document) pageSize(i int, media geom.Rect) geom.Rect {
	if i < len(d.dims) && d.dims[i].Width > 0 && d.dims[i].Height > 0 {
		return geom.Rect{X1: d.dims[i].Width, Y1: d.dims[i].Height}
	}
	if !media.Empty() {
		return geom.Rect{X1: media.Width(), Y1: media.Height()}
	}
	return geom.Rect{X1: 595, Y1: 842}
}

// mediaBox resolves the inheritable MediaBox in PDF user space.
func mediaBox(v pdf.Value) geom.Rect {
	for n := 0; n < 32 && !v.IsNull(); n++ {
		mb := v.Key("MediaBox")
		if mb.Kind() == pdf.Array && mb.Len() == 4 {
			return geom.R(mb.Index(0).Float64(), mb.Index(1).Float64(), mb.Index(2).Float64(), mb.Index(3).Float64())
		}
		v = v.Key("Parent")
	}
	return geom.Rect{}
}

func (d *Document) pdftotext(i int) (string, error) {
	tmp, err := os.CreateTemp("", "hilens-page-*.pdf")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(d.data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	timeout := d.opts.FallbackTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	page := strconv.Itoa(i + 1)
	out, err := exec.CommandContext(ctx, "pdftotext", "-layout", "-f", page, "-l", page, tmpPath, "-").Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(bytes.TrimRight(out, "\f\n")), nil
}
