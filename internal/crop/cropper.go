package crop

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"

	"github.com/dgallion1/hilens/internal/chunkset"
	"github.com/dgallion1/hilens/internal/geom"
)

const (
	DefaultDPI = 220
	MinDPI     = 36
	MaxDPI     = 600
)

// Cropper renders region boxes and trims them with kind-specific settings.
type Cropper struct {
	raster Rasterizer
	table  TrimOptions
	figure TrimOptions
	log    *slog.Logger
}

func NewCropper(r Rasterizer, table, figure TrimOptions, log *slog.Logger) *Cropper {
	return &Cropper{raster: r, table: table, figure: figure, log: log}
}

// Crop renders bbox on page pageIndex (0-based) and trims it. dpi <= 0 uses
// DefaultDPI.
func (c *Cropper) Crop(ctx context.Context, pdf []byte, kind chunkset.Kind, pageIndex int, bbox geom.Rect, dpi float64) (image.Image, error) {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	if dpi < MinDPI || dpi > MaxDPI {
		return nil, fmt.Errorf("dpi %v outside [%d, %d]", dpi, MinDPI, MaxDPI)
	}
	if bbox.Empty() {
		return nil, fmt.Errorf("empty bbox %v", bbox)
	}
	img, err := c.raster.Render(ctx, pdf, pageIndex, bbox, dpi)
	if err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}
	opts := c.table
	if kind == chunkset.KindFigure {
		opts = c.figure
	}
	if _, _, ok := TrimRows(img, opts); !ok {
		c.log.Debug("trim collapsed, keeping full render", "page", pageIndex+1, "kind", kind)
	}
	return Trim(img, opts), nil
}

// CropPNG is Crop encoded as PNG. Identical inputs give identical bytes.
func (c *Cropper) CropPNG(ctx context.Context, pdf []byte, kind chunkset.Kind, pageIndex int, bbox geom.Rect, dpi float64) ([]byte, error) {
	img, err := c.Crop(ctx, pdf, kind, pageIndex, bbox, dpi)
	if err != nil {
		return nil, err
	}
	return EncodePNG(img)
}

func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
