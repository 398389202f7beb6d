package crop

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/dgallion1/hilens/internal/geom"
	"github.com/gen2brain/go-fitz"
)

// Rasterizer renders the clip rectangle of one page at dpi.
type Rasterizer interface {
	Render(ctx context.Context, pdf []byte, pageIndex int, clip geom.Rect, dpi float64) (image.Image, error)
}

// NewRasterizer returns the rasterizer named by kind: "fitz" or "pdftoppm".
func NewRasterizer(kind string) (Rasterizer, error) {
	switch kind {
	case "", "fitz":
		return FitzRasterizer{}, nil
	case "pdftoppm":
		return PdftoppmRasterizer{}, nil
	}
	return nil, fmt.Errorf("unknown rasterizer %q", kind)
}

// pixelRect converts a point rectangle to pixels at dpi, clipped to bounds.
func pixelRect(clip geom.Rect, dpi float64, bounds image.Rectangle) image.Rectangle {
	s := clip.Scale(dpi / 72)
	r := image.Rect(
		int(math.Floor(s.X0)), int(math.Floor(s.Y0)),
		int(math.Ceil(s.X1)), int(math.Ceil(s.Y1)),
	).Add(bounds.Min)
	return r.Intersect(bounds)
}

// FitzRasterizer renders with MuPDF. The document is opened per call.
type FitzRasterizer struct{}

func (FitzRasterizer) Render(ctx context.Context, pdf []byte, pageIndex int, clip geom.Rect, dpi float64) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	if pageIndex < 0 || pageIndex >= doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (%d pages)", pageIndex+1, doc.NumPage())
	}
	full, err := doc.ImageDPI(pageIndex, dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", pageIndex+1, err)
	}
	r := pixelRect(clip, dpi, full.Bounds())
	if r.Empty() {
		return nil, fmt.Errorf("clip %v outside page %d", clip, pageIndex+1)
	}
	return clone(full, r), nil
}

// PdftoppmRasterizer renders with poppler's pdftoppm, cropping in the tool.
type PdftoppmRasterizer struct{}

func (PdftoppmRasterizer) Render(ctx context.Context, pdf []byte, pageIndex int, clip geom.Rect, dpi float64) (image.Image, error) {
	dir, err := os.MkdirTemp("", "hilens-crop-*")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "in.pdf")
	if err := os.WriteFile(in, pdf, 0o600); err != nil {
		return nil, fmt.Errorf("write temp pdf: %w", err)
	}
	s := clip.Scale(dpi / 72)
	page := strconv.Itoa(pageIndex + 1)
	outPrefix := filepath.Join(dir, "out")
	args := []string{
		"-png", "-singlefile",
		"-r", strconv.FormatFloat(dpi, 'f', -1, 64),
		"-f", page, "-l", page,
		"-x", strconv.Itoa(int(math.Floor(s.X0))),
		"-y", strconv.Itoa(int(math.Floor(s.Y0))),
		"-W", strconv.Itoa(int(math.Ceil(s.Width()))),
		"-H", strconv.Itoa(int(math.Ceil(s.Height()))),
		in, outPrefix,
	}
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "pdftoppm", args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, stderr.String())
	}
	f, err := os.Open(outPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("open rendered page: %w", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode rendered page: %w", err)
	}
	return img, nil
}
