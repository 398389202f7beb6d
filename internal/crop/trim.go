// Package crop rasterizes region boxes and trims their blank margins.
package crop

import (
	"image"

	"golang.org/x/image/draw"
)

// TrimOptions tune the row-density trim. Ratios are the share of dark
// pixels in a row.
type TrimOptions struct {
	White          uint8   // luminance below this is ink
	UpperRatio     float64 // first row at or above this starts the content
	BlankRatio     float64 // rows below this are blank
	InkRatio       float64 // fallback bottom: last row above this
	BottomBlankRun int     // consecutive blank rows that end the content
	MinTopGap      int     // rows skipped after the top before looking for the run
	Pad            int
	MinHeight      int // results shorter than this fall back to the input
}

func TableTrim() TrimOptions {
	return TrimOptions{White: 242, UpperRatio: 0.08, BlankRatio: 0.01, InkRatio: 0.02,
		BottomBlankRun: 22, MinTopGap: 10, Pad: 6, MinHeight: 8}
}

func FigureTrim() TrimOptions {
	return TrimOptions{White: 242, UpperRatio: 0.05, BlankRatio: 0.01, InkRatio: 0.02,
		BottomBlankRun: 28, MinTopGap: 10, Pad: 6, MinHeight: 8}
}

// Gray converts img to 8-bit grayscale.
func Gray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(b)
	draw.Draw(g, b, img, b.Min, draw.Src)
	return g
}

// rowDensity returns the dark-pixel share of every row.
func rowDensity(g *image.Gray, white uint8) []float64 {
	b := g.Bounds()
	w := b.Dx()
	out := make([]float64, b.Dy())
	if w == 0 {
		return out
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := g.Pix[(y-b.Min.Y)*g.Stride : (y-b.Min.Y)*g.Stride+w]
		dark := 0
		for _, v := range row {
			if v < white {
				dark++
			}
		}
		out[y-b.Min.Y] = float64(dark) / float64(w)
	}
	return out
}

// TrimRows returns the vertical content range [top, bottom] in row indices
// relative to the image, or ok=false when the image should stay untrimmed.
func TrimRows(img image.Image, o TrimOptions) (top, bottom int, ok bool) {
	dens := rowDensity(Gray(img), o.White)
	h := len(dens)
	if h == 0 {
		return 0, 0, false
	}

	top = 0
	for i, d := range dens {
		if d >= o.UpperRatio {
			top = i
			break
		}
	}

	bottom = -1
	run := 0
	for i := top + o.MinTopGap; i < h; i++ {
		if dens[i] < o.BlankRatio {
			run++
			if run >= o.BottomBlankRun {
				bottom = i - run
				break
			}
		} else {
			run = 0
		}
	}
	if bottom < 0 {
		bottom = h - 1
		for i := h - 1; i >= 0; i-- {
			if dens[i] > o.InkRatio {
				bottom = i
				break
			}
		}
	}

	top = max(0, top-o.Pad)
	bottom = min(h-1, bottom+o.Pad)
	if bottom <= top || bottom-top+1 < o.MinHeight {
		return 0, h - 1, false
	}
	return top, bottom, true
}

// Trim cuts the blank band above and below the content. The result is a
// fresh RGBA image with its origin at (0, 0).
func Trim(img image.Image, o TrimOptions) image.Image {
	b := img.Bounds()
	top, bottom, ok := TrimRows(img, o)
	if !ok {
		return clone(img, b)
	}
	return clone(img, image.Rect(b.Min.X, b.Min.Y+top, b.Max.X, b.Min.Y+bottom+1))
}

func clone(img image.Image, r image.Rectangle) *image.RGBA {
	out := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	draw.Draw(out, out.Bounds(), img, r.Min, draw.Src)
	return out
}

// Thumbnail scales img down to maxWidth, keeping the aspect ratio.
func Thumbnail(img image.Image, maxWidth int) image.Image {
	b := img.Bounds()
	if maxWidth <= 0 || b.Dx() <= maxWidth {
		return img
	}
	h := b.Dy() * maxWidth / b.Dx()
	if h < 1 {
		h = 1
	}
	out := image.NewRGBA(image.Rect(0, 0, maxWidth, h))
	draw.CatmullRom.Scale(out, out.Bounds(), img, b, draw.Over, nil)
	return out
}
