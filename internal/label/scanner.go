// Package label finds bold table/figure caption labels such as "표 3-1" and
// "그림 2-4" on a rendered page.
package label

import (
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/hilens/internal/chunkset"
	"github.com/dgallion1/hilens/internal/geom"
	"github.com/dgallion1/hilens/internal/pdfpage"
)

// Class is the classification of a single span.
type Class int

const (
	PlainText Class = iota
	TableLabel
	FigureLabel
)

func (c Class) String() string {
	switch c {
	case TableLabel:
		return "table_label"
	case FigureLabel:
		return "figure_label"
	}
	return "plain_text"
}

// DefaultBoldMarkers are font-name fragments that indicate a bold face.
var DefaultBoldMarkers = []string{"bold", "semibold", "heavy"}

type Options struct {
	BoldMarkers []string
}

func (o Options) markers() []string {
	if len(o.BoldMarkers) == 0 {
		return DefaultBoldMarkers
	}
	return o.BoldMarkers
}

var labelRe = regexp.MustCompile(`(?:^|[\s〈<(\[])\s*(표|그림)\s*([0-9]+(?:[-–][0-9]+)?)`)

// Candidate is a label found on a page, before region inference.
type Candidate struct {
	Kind    chunkset.Kind
	Label   string
	Title   string
	Caption string
	Page    int // 1-based
	BBox    geom.Rect
}

// IsBoldFont reports whether the font name contains any marker,
// case-insensitively.
func IsBoldFont(font string, markers []string) bool {
	f := strings.ToLower(font)
	for _, m := range markers {
		if m != "" && strings.Contains(f, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

// Classify decides whether a span is a table label, a figure label or plain
// text. Only bold spans can be labels. The returned label is normalized.
func Classify(span pdfpage.Span, opts Options) (Class, string) {
	if !IsBoldFont(span.Font, opts.markers()) {
		return PlainText, ""
	}
	m := labelRe.FindStringSubmatch(span.Text)
	if m == nil {
		return PlainText, ""
	}
	label := chunkset.NormalizeLabel(m[2])
	if m[1] == "그림" {
		return FigureLabel, label
	}
	return TableLabel, label
}

// Scan returns the page's label candidates ordered top to bottom.
func Scan(page *pdfpage.Page, pageNo int, opts Options) []Candidate {
	var out []Candidate
	for _, s := range page.Spans {
		class, label := Classify(s, opts)
		if class == PlainText {
			continue
		}
		kind := chunkset.KindTable
		if class == FigureLabel {
			kind = chunkset.KindFigure
		}
		caption := cleanCaption(s.Text)
		out = append(out, Candidate{
			Kind:    kind,
			Label:   label,
			Title:   titleOf(caption),
			Caption: caption,
			Page:    pageNo,
			BBox:    s.BBox,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BBox.Y0 < out[j].BBox.Y0
	})
	return out
}

func cleanCaption(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

var labelPrefixRe = regexp.MustCompile(`^.*?(표|그림)\s*[0-9]+(?:[-–][0-9]+)?[.:)\]〉>]?\s*`)

// titleOf strips the label prefix from a caption.
func titleOf(caption string) string {
	t := labelPrefixRe.ReplaceAllString(caption, "")
	t = strings.TrimSpace(t)
	if t == "" {
		return caption
	}
	return t
}
