package pdfpage

import (
	"fmt"

	"github.com/dgallion1/hilens/internal/geom"
	"github.com/ledongthuc/pdf"
)

const maxFormDepth = 4

// matrix is a PDF transformation matrix [a b c d e f].
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns the transform that applies m, then n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

// painter tracks the graphics state needed to locate painted paths and
// image placements. Paths are committed on paint operators and dropped by n.
type painter struct {
	media geom.Rect
	ctm   matrix
	saved []matrix

	cur, start [2]float64
	pending    []geom.Rect

	segments []geom.Rect
	images   []geom.Rect
}

func newPainter(media geom.Rect) *painter {
	return &painter{media: media, ctm: identity}
}

// toPage maps user space to top-left page coordinates.
func (g *painter) toPage(x, y float64) [2]float64 {
	px, py := g.ctm.apply(x, y)
	return [2]float64{px - g.media.X0, g.media.Y1 - py}
}

func (g *painter) segment(a, b [2]float64) {
	g.pending = append(g.pending, geom.R(a[0], a[1], b[0], b[1]))
}

func (g *painter) op(op string, args []float64) {
	switch op {
	case "q":
		g.saved = append(g.saved, g.ctm)
	case "Q":
		if n := len(g.saved); n > 0 {
			g.ctm = g.saved[n-1]
			g.saved = g.saved[:n-1]
		}
	case "cm":
		if len(args) == 6 {
			g.ctm = matrix{args[0], args[1], args[2], args[3], args[4], args[5]}.mul(g.ctm)
		}
	case "m":
		if len(args) == 2 {
			g.cur = g.toPage(args[0], args[1])
			g.start = g.cur
		}
	case "l":
		if len(args) == 2 {
			p := g.toPage(args[0], args[1])
			g.segment(g.cur, p)
			g.cur = p
		}
	case "c":
		if len(args) == 6 {
			g.cur = g.toPage(args[4], args[5])
		}
	case "v", "y":
		if len(args) == 4 {
			g.cur = g.toPage(args[2], args[3])
		}
	case "re":
		if len(args) == 4 {
			x, y, w, h := args[0], args[1], args[2], args[3]
			p0 := g.toPage(x, y)
			p1 := g.toPage(x+w, y)
			p2 := g.toPage(x+w, y+h)
			p3 := g.toPage(x, y+h)
			g.segment(p0, p1)
			g.segment(p1, p2)
			g.segment(p2, p3)
			g.segment(p3, p0)
			g.cur, g.start = p0, p0
		}
	case "h":
		g.closePath()
	case "s", "b", "b*":
		g.closePath()
		g.commit()
	case "S", "f", "F", "f*", "B", "B*":
		g.commit()
	case "n":
		g.pending = g.pending[:0]
	}
}

func (g *painter) closePath() {
	if g.cur != g.start {
		g.segment(g.cur, g.start)
		g.cur = g.start
	}
}

func (g *painter) commit() {
	g.segments = append(g.segments, g.pending...)
	g.pending = g.pending[:0]
}

// placeImage records the unit square under the current CTM.
func (g *painter) placeImage() {
	r := geom.R(0, 0, 0, 0)
	first := true
	for _, c := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		p := g.toPage(c[0], c[1])
		pr := geom.R(p[0], p[1], p[0], p[1])
		if first {
			r, first = pr, false
			continue
		}
		r = r.Union(pr)
	}
	g.images = append(g.images, r)
}

// run interprets every content stream in contents against res.
func (g *painter) run(contents, res pdf.Value, depth int) {
	for _, strm := range contentStreams(contents) {
		pdf.Interpret(strm, func(stk *pdf.Stack, op string) {
			n := stk.Len()
			args := make([]pdf.Value, n)
			for i := n - 1; i >= 0; i-- {
				args[i] = stk.Pop()
			}
			if op == "Do" {
				if n > 0 {
					g.doXObject(res, args[0].Name(), depth)
				}
				return
			}
			g.op(op, numbers(args))
		})
	}
}

func (g *painter) doXObject(res pdf.Value, name string, depth int) {
	xo := res.Key("XObject").Key(name)
	switch xo.Key("Subtype").Name() {
	case "Image":
		g.placeImage()
	case "Form":
		if depth >= maxFormDepth {
			return
		}
		saved := g.ctm
		g.ctm = matrixOf(xo.Key("Matrix")).mul(g.ctm)
		fres := xo.Key("Resources")
		if fres.IsNull() {
			fres = res
		}
		g.run(xo, fres, depth+1)
		g.ctm = saved
	}
}

func contentStreams(v pdf.Value) []pdf.Value {
	if v.Kind() == pdf.Array {
		out := make([]pdf.Value, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			out = append(out, v.Index(i))
		}
		return out
	}
	if v.IsNull() {
		return nil
	}
	return []pdf.Value{v}
}

func matrixOf(v pdf.Value) matrix {
	if v.Kind() != pdf.Array || v.Len() != 6 {
		return identity
	}
	var m matrix
	for i := range m {
		m[i] = v.Index(i).Float64()
	}
	return m
}

func numbers(args []pdf.Value) []float64 {
	out := make([]float64, 0, len(args))
	for _, a := range args {
		switch a.Kind() {
		case pdf.Integer, pdf.Real:
			out = append(out, a.Float64())
		}
	}
	return out
}

// collectGraphics interprets the page content for vector segments and image
// placements. A malformed stream yields whatever was found before it failed.
func collectGraphics(p pdf.Page, media geom.Rect) (segs, imgs []geom.Rect, err error) {
	g := newPainter(media)
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("interpret graphics: %v", r)
		}
		segs, imgs = g.segments, g.images
	}()
	g.run(p.V.Key("Contents"), p.Resources(), 0)
	return g.segments, g.images, nil
}
