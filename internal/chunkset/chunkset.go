// Package chunkset defines the extraction result for one document: labeled
// table and figure regions, per-page text, and a derived table of contents.
package chunkset

import (
	"github.com/dgallion1/hilens/internal/geom"
)

// Kind distinguishes tables from figures.
type Kind string

const (
	KindTable  Kind = "table"
	KindFigure Kind = "figure"
)

// ParseKind accepts the singular or plural form used in URLs and flags.
func ParseKind(s string) (Kind, bool) {
	switch s {
	case "table", "tables", "표":
		return KindTable, true
	case "figure", "figures", "그림":
		return KindFigure, true
	}
	return "", false
}

// Prefix is the caption word that introduces a label of this kind.
func (k Kind) Prefix() string {
	if k == KindFigure {
		return "그림"
	}
	return "표"
}

// Region is an accepted table or figure on a page.
type Region struct {
	Type    Kind      `json:"type"`
	Label   string    `json:"label"`
	Title   string    `json:"title"`
	Caption string    `json:"caption"`
	Page    int       `json:"page"` // 1-based
	BBox    geom.Rect `json:"bbox"`

	PreviewMD     string `json:"preview_md,omitempty"`
	PreviewSource string `json:"preview_source,omitempty"` // "text" or "ocr"

	// Text is everything extracted inside BBox.
	Text string `json:"text,omitempty"`
}

// PageText is the full text of one page. Every page has exactly one.
type PageText struct {
	Page  int    `json:"page"`
	Text  string `json:"text"`
	IsTOC bool   `json:"is_toc"`
}

type TOCEntry struct {
	Label string `json:"label"`
	Title string `json:"title"`
	Page  int    `json:"page"`
}

type TOC struct {
	Tables  []TOCEntry `json:"tables"`
	Figures []TOCEntry `json:"figures"`
}

// ChunkSet is the aggregate extraction result for one PDF.
type ChunkSet struct {
	TOC     TOC        `json:"toc"`
	Tables  []Region   `json:"tables"`
	Figures []Region   `json:"figures"`
	Texts   []PageText `json:"texts"`
}

// New returns an empty ChunkSet whose slices encode as [] rather than null.
func New() *ChunkSet {
	return &ChunkSet{
		TOC:     TOC{Tables: []TOCEntry{}, Figures: []TOCEntry{}},
		Tables:  []Region{},
		Figures: []Region{},
		Texts:   []PageText{},
	}
}

// Finalize sorts both region lists by label, removes duplicates and rebuilds
// the TOC. It is idempotent.
func (cs *ChunkSet) Finalize() {
	cs.Tables = Dedup(SortRegions(cs.Tables))
	cs.Figures = Dedup(SortRegions(cs.Figures))
	cs.TOC = TOC{Tables: tocEntries(cs.Tables), Figures: tocEntries(cs.Figures)}
}

func tocEntries(rs []Region) []TOCEntry {
	out := make([]TOCEntry, 0, len(rs))
	for _, r := range rs {
		out = append(out, TOCEntry{Label: r.Label, Title: r.Title, Page: r.Page})
	}
	return out
}

// Regions returns the list for kind.
func (cs *ChunkSet) Regions(kind Kind) []Region {
	if kind == KindFigure {
		return cs.Figures
	}
	return cs.Tables
}

// Find returns the region of kind whose label has the same numeric key as
// label. Regions with unparseable labels are never matched.
func (cs *ChunkSet) Find(kind Kind, label string) (*Region, bool) {
	want, ok := ParseLabelKey(label)
	if !ok {
		return nil, false
	}
	rs := cs.Regions(kind)
	for i := range rs {
		if k, ok := ParseLabelKey(rs[i].Label); ok && k == want {
			return &rs[i], true
		}
	}
	return nil, false
}

// PageCount is the number of pages the document had.
func (cs *ChunkSet) PageCount() int { return len(cs.Texts) }

// TOCPages lists the 1-based page numbers classified as table-of-contents.
func (cs *ChunkSet) TOCPages() []int {
	var out []int
	for _, t := range cs.Texts {
		if t.IsTOC {
			out = append(out, t.Page)
		}
	}
	return out
}
