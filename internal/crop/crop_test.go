package crop

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"io"
	"log/slog"
	"testing"

	"github.com/dgallion1/hilens/internal/chunkset"
	"github.com/dgallion1/hilens/internal/geom"
)

// page builds a white w x h image with dark rows in [from, to).
func page(w, h int, bands ...[2]int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.White)
		}
	}
	for _, b := range bands {
		for y := b[0]; y < b[1]; y++ {
			for x := 0; x < w; x++ {
				img.Set(x, y, color.Black)
			}
		}
	}
	return img
}

func TestTrimRows_CutsAtBlankRun(t *testing.T) {
	img := page(100, 200, [2]int{20, 60})
	top, bottom, ok := TrimRows(img, TableTrim())
	if !ok {
		t.Fatal("expected trim to apply")
	}
	if top != 14 || bottom != 65 {
		t.Errorf("expected rows [14, 65], got [%d, %d]", top, bottom)
	}
	out := Trim(img, TableTrim())
	if out.Bounds().Dy() != 52 || out.Bounds().Dx() != 100 {
		t.Errorf("expected 100x52 image, got %v", out.Bounds())
	}
}

func TestTrimRows_FigureToleratesShortGaps(t *testing.T) {
	// A 25-row gap ends a table but not a figure.
	img := page(100, 300, [2]int{20, 60}, [2]int{85, 120})
	_, tb, _ := TrimRows(img, TableTrim())
	_, fb, _ := TrimRows(img, FigureTrim())
	if tb >= 85 {
		t.Errorf("expected table trim to stop before the second band, got %d", tb)
	}
	if fb < 119 {
		t.Errorf("expected figure trim to keep the second band, got %d", fb)
	}
}

func TestTrimRows_FallbackToLastInk(t *testing.T) {
	// Content reaches the bottom edge, so no blank run is found.
	img := page(50, 100, [2]int{5, 100})
	top, bottom, ok := TrimRows(img, TableTrim())
	if !ok || top != 0 || bottom != 99 {
		t.Errorf("expected [0, 99] ok, got [%d, %d] %v", top, bottom, ok)
	}
}

func TestTrim_CollapseKeepsOriginal(t *testing.T) {
	img := page(100, 200, [2]int{20, 60})
	o := TableTrim()
	o.MinHeight = 150
	if _, _, ok := TrimRows(img, o); ok {
		t.Fatal("expected collapse to disable trimming")
	}
	if got := Trim(img, o).Bounds(); got.Dy() != 200 {
		t.Errorf("expected untrimmed height 200, got %d", got.Dy())
	}
}

func TestPixelRect(t *testing.T) {
	r := pixelRect(geom.Rect{X0: 72, Y0: 72, X1: 144, Y1: 10000}, 144, image.Rect(0, 0, 1000, 1000))
	want := image.Rect(144, 144, 288, 1000)
	if r != want {
		t.Errorf("expected %v, got %v", want, r)
	}
}

func TestThumbnail(t *testing.T) {
	img := page(400, 200)
	got := Thumbnail(img, 100).Bounds()
	if got.Dx() != 100 || got.Dy() != 50 {
		t.Errorf("expected 100x50, got %v", got)
	}
	if Thumbnail(img, 1000) != image.Image(img) {
		t.Error("expected small images to be returned unchanged")
	}
}

type fakeRaster struct {
	img   image.Image
	calls int
}

func (f *fakeRaster) Render(_ context.Context, _ []byte, _ int, _ geom.Rect, _ float64) (image.Image, error) {
	f.calls++
	return f.img, nil
}

func newTestCropper(r Rasterizer) *Cropper {
	return NewCropper(r, TableTrim(), FigureTrim(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestCropper_Deterministic(t *testing.T) {
	fr := &fakeRaster{img: page(120, 240, [2]int{30, 90})}
	c := newTestCropper(fr)
	box := geom.Rect{X0: 8, Y0: 100, X1: 587, Y1: 400}
	a, err := c.CropPNG(context.Background(), []byte("%PDF"), chunkset.KindTable, 0, box, 0)
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	b, err := c.CropPNG(context.Background(), []byte("%PDF"), chunkset.KindTable, 0, box, 0)
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Error("expected identical PNG bytes for identical inputs")
	}
	if fr.calls != 2 {
		t.Errorf("expected rasterizer per call, got %d calls", fr.calls)
	}
}

func TestCropper_RejectsBadInput(t *testing.T) {
	c := newTestCropper(&fakeRaster{img: page(10, 10)})
	ctx := context.Background()
	if _, err := c.Crop(ctx, nil, chunkset.KindTable, 0, geom.Rect{X0: 0, Y0: 0, X1: 10, Y1: 10}, 2000); err == nil {
		t.Error("expected error for dpi above range")
	}
	if _, err := c.Crop(ctx, nil, chunkset.KindTable, 0, geom.Rect{X0: 0, Y0: 50, X1: 10, Y1: 40}, 0); err == nil {
		t.Error("expected error for inverted bbox")
	}
}

func TestNewRasterizer(t *testing.T) {
	if _, err := NewRasterizer("pdftoppm"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := NewRasterizer("ghostscript"); err == nil {
		t.Error("expected unknown rasterizer error")
	}
}
