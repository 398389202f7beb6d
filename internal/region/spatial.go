package region

import (
	"github.com/dgallion1/hilens/internal/geom"
	"github.com/dgallion1/hilens/internal/pdfpage"
	"github.com/tidwall/rtree"
)

// spatial indexes a page's segments and images for box queries.
type spatial struct {
	segments rtree.RTreeG[int]
	images   rtree.RTreeG[int]
}

func newSpatial(page *pdfpage.Page) *spatial {
	s := &spatial{}
	for i, r := range page.Segments {
		min, max := corners(r)
		s.segments.Insert(min, max, i)
	}
	for i, r := range page.Images {
		min, max := corners(r)
		s.images.Insert(min, max, i)
	}
	return s
}

func corners(r geom.Rect) ([2]float64, [2]float64) {
	return [2]float64{r.X0, r.Y0}, [2]float64{r.X1, r.Y1}
}

func (s *spatial) countSegments(box geom.Rect) int {
	n := 0
	min, max := corners(box)
	s.segments.Search(min, max, func(_, _ [2]float64, _ int) bool {
		n++
		return true
	})
	return n
}

func (s *spatial) hasImage(box geom.Rect) bool {
	found := false
	min, max := corners(box)
	s.images.Search(min, max, func(_, _ [2]float64, _ int) bool {
		found = true
		return false
	})
	return found
}
