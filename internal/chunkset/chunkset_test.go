package chunkset

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/dgallion1/hilens/internal/geom"
)

func TestParseLabelKey(t *testing.T) {
	tests := []struct {
		in    string
		want  LabelKey
		valid bool
	}{
		{"3-11", LabelKey{3, 11}, true},
		{"3–2", LabelKey{3, 2}, true},
		{" 10 - 1 ", LabelKey{10, 1}, true},
		{"3", sentinelKey, false},
		{"A-1", sentinelKey, false},
		{"", sentinelKey, false},
	}
	for _, tt := range tests {
		got, ok := ParseLabelKey(tt.in)
		if ok != tt.valid || got != tt.want {
			t.Errorf("ParseLabelKey(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.valid)
		}
	}
}

func TestSortRegions_NumericOrder(t *testing.T) {
	rs := []Region{
		{Label: "3-11"}, {Label: "x"}, {Label: "3-2"}, {Label: "1-5"}, {Label: "y"}, {Label: "2-1"},
	}
	SortRegions(rs)
	var got []string
	for _, r := range rs {
		got = append(got, r.Label)
	}
	want := "1-5,2-1,3-2,3-11,x,y"
	if strings.Join(got, ",") != want {
		t.Errorf("expected order %s, got %s", want, strings.Join(got, ","))
	}
}

func TestDedup_NormalizedTitle(t *testing.T) {
	rs := []Region{
		{Label: "2-1", Title: "연료비  현황", Page: 3},
		{Label: "2-1", Title: "연료비 현황", Page: 9},
		{Label: "2–1", Title: "ＡＢＣ", Page: 4},
		{Label: "2-1", Title: "abc", Page: 5},
		{Label: "2-2", Title: "연료비 현황", Page: 6},
	}
	out := Dedup(rs)
	if len(out) != 3 {
		t.Fatalf("expected 3 regions after dedup, got %d", len(out))
	}
	if out[0].Page != 3 {
		t.Errorf("expected first occurrence (page 3) to be kept, got page %d", out[0].Page)
	}
	if out[1].Page != 4 {
		t.Errorf("expected fullwidth title occurrence on page 4 to be kept, got page %d", out[1].Page)
	}
}

func TestChunkSet_Find(t *testing.T) {
	cs := New()
	cs.Tables = []Region{
		{Type: KindTable, Label: "3-1", Title: "A"},
		{Type: KindTable, Label: "3", Title: "bad"},
	}
	cs.Figures = []Region{{Type: KindFigure, Label: "3-1", Title: "F"}}

	r, ok := cs.Find(KindTable, "3–01")
	if !ok || r.Title != "A" {
		t.Errorf("expected table 3-1 to be found, got %v %v", r, ok)
	}
	if r, ok := cs.Find(KindFigure, "3-1"); !ok || r.Title != "F" {
		t.Errorf("expected figure 3-1 to be found")
	}
	if _, ok := cs.Find(KindTable, "3"); ok {
		t.Error("expected unparseable label lookup to miss")
	}
	if _, ok := cs.Find(KindTable, "9-9"); ok {
		t.Error("expected missing label lookup to miss")
	}
}

func TestChunkSet_FinalizeBuildsTOC(t *testing.T) {
	cs := New()
	cs.Tables = []Region{
		{Type: KindTable, Label: "2-1", Title: "B", Page: 5},
		{Type: KindTable, Label: "1-1", Title: "A", Page: 2},
		{Type: KindTable, Label: "1-1", Title: "A", Page: 7},
	}
	cs.Finalize()
	if len(cs.TOC.Tables) != 2 {
		t.Fatalf("expected 2 toc entries, got %d", len(cs.TOC.Tables))
	}
	if cs.TOC.Tables[0].Label != "1-1" || cs.TOC.Tables[0].Page != 2 {
		t.Errorf("unexpected first toc entry %+v", cs.TOC.Tables[0])
	}
}

func TestValidate_RoundTrip(t *testing.T) {
	cs := New()
	cs.Tables = append(cs.Tables, Region{
		Type: KindTable, Label: "1-1", Title: "t", Caption: "표 1-1 t", Page: 1,
		BBox: geom.Rect{X0: 8, Y0: 100, X1: 587, Y1: 300}, PreviewMD: "| a | b |\n| --- | --- |",
		PreviewSource: "text",
	})
	cs.Texts = append(cs.Texts, PageText{Page: 1, Text: "hello"})
	cs.Finalize()

	data, err := json.Marshal(cs)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Tables[0].BBox != cs.Tables[0].BBox {
		t.Errorf("expected bbox %v, got %v", cs.Tables[0].BBox, got.Tables[0].BBox)
	}
}

func TestValidate_RejectsBadBBox(t *testing.T) {
	bad := `{"toc":{"tables":[],"figures":[]},"tables":[{"type":"table","label":"1-1","title":"","caption":"","page":1,"bbox":[1,2,3]}],"figures":[],"texts":[]}`
	if err := Validate([]byte(bad)); err == nil {
		t.Error("expected validation error for 3-element bbox")
	}
}
