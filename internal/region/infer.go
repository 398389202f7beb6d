// Package region turns label candidates into bounding boxes and keeps only
// those backed by visual evidence of a table or figure.
package region

import (
	"math"
	"unicode"

	"github.com/dgallion1/hilens/internal/chunkset"
	"github.com/dgallion1/hilens/internal/geom"
	"github.com/dgallion1/hilens/internal/label"
	"github.com/dgallion1/hilens/internal/pdfpage"
)

type Options struct {
	Padding         float64 // gap kept from the label and the next label
	BottomMargin    float64
	SideMargin      float64
	MinLines        int
	MinDigitDensity float64
	MinSize         float64
	DefaultHeight   float64
	DefaultWidth    float64
}

func DefaultOptions() Options {
	return Options{
		Padding:         4,
		BottomMargin:    6,
		SideMargin:      8,
		MinLines:        3,
		MinDigitDensity: 0.07,
		MinSize:         20,
		DefaultHeight:   160,
		DefaultWidth:    300,
	}
}

// Signals is the visual evidence found inside a region.
type Signals struct {
	Lines        int     `json:"lines"`
	Image        bool    `json:"image"`
	DigitDensity float64 `json:"digit_density"`
}

// Match is an accepted candidate with its inferred box.
type Match struct {
	label.Candidate
	BBox    geom.Rect
	Signals Signals
}

// Infer computes a box for every candidate (which must be sorted top to
// bottom) and returns those that pass validation, in the same order.
func Infer(page *pdfpage.Page, cands []label.Candidate, opts Options) []Match {
	if len(cands) == 0 {
		return nil
	}
	idx := newSpatial(page)
	var out []Match
	for i, c := range cands {
		var next *label.Candidate
		if i+1 < len(cands) {
			next = &cands[i+1]
		}
		box, ok := Box(page.Box, c, next, opts)
		if !ok {
			continue
		}
		sig, accepted := validate(page, idx, c.Kind, box, opts)
		if !accepted {
			continue
		}
		out = append(out, Match{Candidate: c, BBox: box, Signals: sig})
	}
	return out
}

// Box returns the region below cand, ending above next (or the page bottom).
// Degenerate boxes are replaced by a default-sized box under the label and
// re-clipped; ok is false if the result is still too small.
func Box(page geom.Rect, cand label.Candidate, next *label.Candidate, opts Options) (geom.Rect, bool) {
	top := cand.BBox.Y1 + opts.Padding
	bottom := page.Y1 - opts.BottomMargin
	if next != nil {
		bottom = next.BBox.Y0 - opts.Padding
	}
	r := geom.Rect{X0: page.X0 + opts.SideMargin, Y0: top, X1: page.X1 - opts.SideMargin, Y1: bottom}

	if r.Height() < opts.MinSize {
		r.Y1 = r.Y0 + opts.DefaultHeight
	}
	if r.Width() < opts.MinSize {
		cx, _ := cand.BBox.Center()
		r.X0 = cx - opts.DefaultWidth/2
		r.X1 = cx + opts.DefaultWidth/2
	}
	r = r.Intersect(page)
	if r.Width() < opts.MinSize || r.Height() < opts.MinSize {
		return geom.Rect{}, false
	}
	return r, true
}

// validate evaluates signals lazily: tables accept on lines, then an image,
// then digit density; figures need an image.
func validate(page *pdfpage.Page, idx *spatial, kind chunkset.Kind, box geom.Rect, opts Options) (Signals, bool) {
	var sig Signals
	sig.Image = idx.hasImage(box)
	if kind == chunkset.KindFigure {
		return sig, sig.Image
	}
	sig.Lines = idx.countSegments(box)
	if sig.Lines >= opts.MinLines || sig.Image {
		return sig, true
	}
	sig.DigitDensity = DigitDensity(page.TextIn(box))
	return sig, sig.DigitDensity >= opts.MinDigitDensity
}

// DigitDensity is the share of decimal digits among all characters.
func DigitDensity(s string) float64 {
	total, digits := 0, 0
	for _, r := range s {
		total++
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if total == 0 {
		return 0
	}
	return math.Round(float64(digits)/float64(total)*1e4) / 1e4
}
