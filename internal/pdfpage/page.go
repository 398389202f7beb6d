// Package pdfpage renders PDF pages into a geometric model: positioned text
// spans with font metadata, stroked/filled vector segments, and image
// placements. Coordinates follow package geom (top-left origin, points).
package pdfpage

import (
	"math"
	"sort"
	"strings"

	"github.com/dgallion1/hilens/internal/geom"
)

// Span is a run of glyphs sharing a font on one baseline.
type Span struct {
	Text string
	Font string
	Size float64
	BBox geom.Rect
}

// Line is a row of spans ordered left to right.
type Line struct {
	BBox  geom.Rect
	Spans []Span
}

// Page is the renderer output for one page.
type Page struct {
	Index    int // 0-based
	Box      geom.Rect
	Spans    []Span
	Segments []geom.Rect // bounding boxes of painted line segments
	Images   []geom.Rect // placements of image XObjects

	// PlainText is set when the page could only be read by the text
	// fallback; it then carries no spans.
	PlainText string

	lines []Line
}

// Source yields pages of an open document.
type Source interface {
	NumPages() int
	Page(i int) (*Page, error)
}

// Span joining thresholds, in multiples of the font size.
const (
	spaceGap  = 0.15
	columnGap = 1.0
)

// Lines groups the page's spans into rows, top to bottom.
func (p *Page) Lines() []Line {
	if p.lines == nil {
		p.lines = groupLines(p.Spans)
	}
	return p.lines
}

// Text is the page text: one line per row, columns separated by tabs.
func (p *Page) Text() string {
	if len(p.Spans) == 0 {
		return p.PlainText
	}
	return joinLines(p.Lines(), nil)
}

// TextIn returns the text of spans whose centre lies inside r.
func (p *Page) TextIn(r geom.Rect) string {
	return joinLines(p.Lines(), func(s Span) bool {
		cx, cy := s.BBox.Center()
		return r.Contains(cx, cy)
	})
}

func joinLines(lines []Line, keep func(Span) bool) string {
	var sb strings.Builder
	for _, ln := range lines {
		var prev *Span
		var row strings.Builder
		for i := range ln.Spans {
			s := &ln.Spans[i]
			if keep != nil && !keep(*s) {
				continue
			}
			if prev != nil {
				row.WriteString(separator(*prev, *s))
			}
			row.WriteString(s.Text)
			prev = s
		}
		if row.Len() == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(row.String())
	}
	return sb.String()
}

func separator(prev, next Span) string {
	size := math.Max(prev.Size, next.Size)
	gap := next.BBox.X0 - prev.BBox.X1
	switch {
	case gap > columnGap*size:
		return "\t"
	case gap > spaceGap*size:
		if strings.HasSuffix(prev.Text, " ") || strings.HasPrefix(next.Text, " ") {
			return ""
		}
		return " "
	}
	return ""
}

func groupLines(spans []Span) []Line {
	if len(spans) == 0 {
		return []Line{}
	}
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].BBox.Y1 < sorted[j].BBox.Y1
	})

	var lines []Line
	var base float64
	for _, s := range sorted {
		tol := math.Max(2, 0.25*s.Size)
		if len(lines) > 0 && math.Abs(s.BBox.Y1-base) <= tol {
			last := &lines[len(lines)-1]
			last.Spans = append(last.Spans, s)
			last.BBox = last.BBox.Union(s.BBox)
			continue
		}
		lines = append(lines, Line{BBox: s.BBox, Spans: []Span{s}})
		base = s.BBox.Y1
	}
	for i := range lines {
		sort.SliceStable(lines[i].Spans, func(a, b int) bool {
			return lines[i].Spans[a].BBox.X0 < lines[i].Spans[b].BBox.X0
		})
	}
	return lines
}

// WordCount counts whitespace-separated words of the page text.
func (p *Page) WordCount() int {
	return len(strings.Fields(p.Text()))
}
