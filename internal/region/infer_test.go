package region

import (
	"testing"

	"github.com/dgallion1/hilens/internal/chunkset"
	"github.com/dgallion1/hilens/internal/geom"
	"github.com/dgallion1/hilens/internal/label"
	"github.com/dgallion1/hilens/internal/pdfpage"
)

var a4 = geom.Rect{X1: 595, Y1: 842}

func cand(kind chunkset.Kind, lbl string, y float64) label.Candidate {
	return label.Candidate{Kind: kind, Label: lbl, Page: 1, BBox: geom.Rect{X0: 60, Y0: y, X1: 200, Y1: y + 12}}
}

func textSpan(text string, y float64) pdfpage.Span {
	return pdfpage.Span{Text: text, Font: "R", Size: 10, BBox: geom.Rect{X0: 60, Y0: y, X1: 300, Y1: y + 12}}
}

func TestBox_NextLabelBounds(t *testing.T) {
	opts := DefaultOptions()
	c1 := cand(chunkset.KindTable, "1-1", 100)
	c2 := cand(chunkset.KindTable, "1-2", 400)
	box, ok := Box(a4, c1, &c2, opts)
	if !ok {
		t.Fatal("expected a box")
	}
	want := geom.Rect{X0: 8, Y0: 116, X1: 587, Y1: 396}
	if box != want {
		t.Errorf("expected %v, got %v", want, box)
	}
	last, ok := Box(a4, c2, nil, opts)
	if !ok || last.Y1 != 836 {
		t.Errorf("expected last region to end at page bottom minus margin, got %v", last)
	}
}

func TestBox_InvertedIsReplaced(t *testing.T) {
	opts := DefaultOptions()
	c1 := cand(chunkset.KindTable, "1-1", 100)
	c2 := cand(chunkset.KindTable, "1-2", 105) // overlapping labels
	box, ok := Box(a4, c1, &c2, opts)
	if !ok {
		t.Fatal("expected degenerate box to be replaced by the default box")
	}
	if box.Height() <= 0 || box.Width() <= 0 {
		t.Fatalf("expected positive box, got %v", box)
	}
	if box.Height() != opts.DefaultHeight {
		t.Errorf("expected default height %v, got %v", opts.DefaultHeight, box.Height())
	}
}

func TestBox_RejectedAtPageBottom(t *testing.T) {
	c := cand(chunkset.KindFigure, "1-1", 830)
	if _, ok := Box(a4, c, nil, DefaultOptions()); ok {
		t.Error("expected a label at the very bottom to yield no region")
	}
}

func TestInfer_DigitDensityWithoutLines(t *testing.T) {
	pg := &pdfpage.Page{Box: a4, Spans: []pdfpage.Span{
		{Text: "표 2-1 연료비", Font: "B-Bold", Size: 10, BBox: geom.Rect{X0: 60, Y0: 100, X1: 200, Y1: 112}},
		textSpan("2021 1,234 5,678", 130),
		textSpan("2022 2,345 6,789", 150),
		textSpan("2023 3,456 7,890", 170),
		textSpan("2024 4,567 8,901", 190),
	}}
	cands := []label.Candidate{cand(chunkset.KindTable, "2-1", 100)}
	got := Infer(pg, cands, DefaultOptions())
	if len(got) != 1 {
		t.Fatalf("expected table accepted by digit density, got %d", len(got))
	}
	if got[0].Signals.Lines != 0 || got[0].Signals.DigitDensity < 0.07 {
		t.Errorf("unexpected signals %+v", got[0].Signals)
	}
}

func TestInfer_ProseRejected(t *testing.T) {
	pg := &pdfpage.Page{Box: a4, Spans: []pdfpage.Span{
		textSpan("연료비는 전년 대비 소폭 증가하였으며 그 원인은 다음과 같다", 130),
	}}
	got := Infer(pg, []label.Candidate{cand(chunkset.KindTable, "2-1", 100)}, DefaultOptions())
	if len(got) != 0 {
		t.Errorf("expected prose-only region to be rejected, got %d", len(got))
	}
}

func TestInfer_LinesAcceptTable(t *testing.T) {
	pg := &pdfpage.Page{Box: a4, Segments: []geom.Rect{
		geom.R(50, 200, 500, 200),
		geom.R(50, 250, 500, 250),
		geom.R(50, 300, 500, 300),
		geom.R(50, 700, 500, 700), // below the next label
	}}
	cands := []label.Candidate{cand(chunkset.KindTable, "1-1", 100), cand(chunkset.KindTable, "1-2", 400)}
	got := Infer(pg, cands, DefaultOptions())
	if len(got) != 1 || got[0].Label != "1-1" {
		t.Fatalf("expected only table 1-1 accepted, got %+v", got)
	}
	if got[0].Signals.Lines != 3 {
		t.Errorf("expected 3 lines, got %d", got[0].Signals.Lines)
	}
}

func TestInfer_FigureNeedsImage(t *testing.T) {
	lines := &pdfpage.Page{Box: a4, Segments: []geom.Rect{
		geom.R(50, 200, 500, 200), geom.R(50, 250, 500, 250), geom.R(50, 300, 500, 300),
	}}
	fig := []label.Candidate{cand(chunkset.KindFigure, "1-1", 100)}
	if got := Infer(lines, fig, DefaultOptions()); len(got) != 0 {
		t.Errorf("expected figure without image to be rejected")
	}
	img := &pdfpage.Page{Box: a4, Images: []geom.Rect{{X0: 100, Y0: 150, X1: 400, Y1: 350}}}
	got := Infer(img, fig, DefaultOptions())
	if len(got) != 1 || !got[0].Signals.Image {
		t.Errorf("expected figure with image to be accepted, got %+v", got)
	}
}

func TestInfer_BoxesInsidePage(t *testing.T) {
	pg := &pdfpage.Page{Box: a4, Images: []geom.Rect{{X0: 0, Y0: 0, X1: 595, Y1: 842}}}
	var cands []label.Candidate
	for i, y := range []float64{50, 52, 300, 700, 820} {
		cands = append(cands, cand(chunkset.KindFigure, string(rune('a'+i)), y))
	}
	for _, m := range Infer(pg, cands, DefaultOptions()) {
		b := m.BBox
		if b.X0 < a4.X0 || b.Y0 < a4.Y0 || b.X1 > a4.X1 || b.Y1 > a4.Y1 {
			t.Errorf("box %v escapes the page", b)
		}
		if b.Width() < 20 || b.Height() < 20 {
			t.Errorf("box %v below minimum size", b)
		}
	}
}

func TestDigitDensity(t *testing.T) {
	if got := DigitDensity("ab12"); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
	if got := DigitDensity(""); got != 0 {
		t.Errorf("expected 0 for empty text, got %v", got)
	}
}
