package pdfpage

import (
	"math"
	"strings"

	"github.com/dgallion1/hilens/internal/geom"
	"github.com/ledongthuc/pdf"
	"golang.org/x/text/width"
)

// maxGlyphGap is the widest gap, in font sizes, still joined into one span.
const maxGlyphGap = 0.6

// defaultCIDWidth is the DW a CID font gets when it does not declare one.
const defaultCIDWidth = 1000

// cidWidths maps the base font names used on p (subset prefix removed) to
// the default glyph width of their descendant CID font. The reader reports
// zero advance for those fonts.
func cidWidths(p pdf.Page) map[string]float64 {
	out := make(map[string]float64)
	for _, name := range p.Fonts() {
		f := p.Font(name)
		if f.V.Key("Subtype").Name() != "Type0" {
			continue
		}
		base := f.BaseFont()
		if i := strings.Index(base, "+"); i >= 0 {
			base = base[i+1:]
		}
		dw := float64(defaultCIDWidth)
		if d := f.V.Key("DescendantFonts").Index(0).Key("DW"); d.Kind() == pdf.Integer || d.Kind() == pdf.Real {
			dw = d.Float64()
		}
		out[base] = dw
	}
	return out
}

// fallbackWidth estimates the advance of s when the reader reports none.
// Wide runes take the CID default width, the rest half an em.
func fallbackWidth(s string, size, dw float64) float64 {
	w := 0.0
	for _, r := range s {
		switch width.LookupRune(r).Kind() {
		case width.EastAsianWide, width.EastAsianFullwidth:
			w += dw / 1000 * size
		default:
			w += 0.5 * size
		}
	}
	return w
}

// buildSpans merges positioned glyphs into spans. media is the page's
// MediaBox in PDF user space (bottom-left origin); output boxes are flipped
// to a top-left origin relative to it. widths holds CID default widths by
// font; glyphs with no reported advance that share their predecessor's
// origin are laid out from the pen position instead.
func buildSpans(glyphs []pdf.Text, media geom.Rect, widths map[string]float64) []Span {
	var spans []Span
	var cur *Span
	var sb strings.Builder
	var curBase float64

	var prev pdf.Text
	var pen float64
	prevZero := false

	flush := func() {
		if cur == nil {
			return
		}
		cur.Text = strings.TrimSpace(sb.String())
		if cur.Text != "" {
			spans = append(spans, *cur)
		}
		cur = nil
		sb.Reset()
	}

	for _, g := range glyphs {
		if g.S == "" {
			continue
		}
		size := math.Abs(g.FontSize)
		if size == 0 {
			size = 1
		}
		x := g.X - media.X0
		base := media.Y1 - g.Y
		w := g.W
		zero := w <= 0
		if zero {
			dw, ok := widths[g.Font]
			if !ok {
				dw = defaultCIDWidth
			}
			w = fallbackWidth(g.S, size, dw)
			if prevZero && g.Font == prev.Font && g.X == prev.X && g.Y == prev.Y {
				x = pen
			}
		}
		prev, prevZero, pen = g, zero, x+w

		if cur != nil && g.Font == cur.Font &&
			math.Abs(base-curBase) <= math.Max(1, 0.2*size) &&
			x >= cur.BBox.X1-0.5*size && x-cur.BBox.X1 <= maxGlyphGap*size {
			gap := x - cur.BBox.X1
			if gap > spaceGap*size && g.S != " " && !strings.HasSuffix(sb.String(), " ") {
				sb.WriteByte(' ')
			}
			sb.WriteString(g.S)
			cur.BBox.X1 = math.Max(cur.BBox.X1, x+w)
			cur.Size = math.Max(cur.Size, size)
			continue
		}

		flush()
		cur = &Span{
			Font: g.Font,
			Size: size,
			BBox: geom.Rect{X0: x, Y0: base - size, X1: x + w, Y1: base + 0.2*size},
		}
		curBase = base
		sb.WriteString(g.S)
	}
	flush()
	return spans
}
