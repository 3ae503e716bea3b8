package thumbnail

import (
	"bytes"
	"image"
	"image/jpeg"
	"math"

	// decoders for the formats users upload
	_ "image/gif"
	_ "image/png"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/krisalay/sharecache/types"
)

const (
	// DefaultMaxSize bounds both sides of a thumbnail.
	DefaultMaxSize = 300

	// DefaultMaxPixels bounds the source images that are decoded at all.
	DefaultMaxPixels = 50_000_000

	jpegQuality = 85
)

// ErrNotImage is returned for bytes no registered decoder understands.
var ErrNotImage = errors.New("not a decodable image")

// Dimensions reads only the image header.
func Dimensions(data []byte) (width, height int, err error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, errors.Mark(errors.Wrap(err, "decode image config"), ErrNotImage)
	}
	return cfg.Width, cfg.Height, nil
}

/*
Generator scales images down so that they fit in a MaxSize square.

The scale factor is min(MaxSize/width, MaxSize/height), so the aspect ratio is
kept. Images already smaller than the bound are scaled up like any other; the
output is always a JPEG.

Sources whose header declares more than MaxPixels pixels are rejected before
decoding, since a tiny file can declare a huge canvas.
*/
type Generator struct {
	MaxSize   int
	MaxPixels int64
	Scaler    draw.Scaler
}

func NewGenerator(maxSize int, maxPixels int64) *Generator {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if maxPixels <= 0 {
		maxPixels = DefaultMaxPixels
	}
	return &Generator{MaxSize: maxSize, MaxPixels: maxPixels, Scaler: draw.BiLinear}
}

// Generate decodes data and returns its thumbnail.
func (g *Generator) Generate(data []byte) (*types.Thumbnail, error) {
	w, h, err := Dimensions(data)
	if err != nil {
		return nil, err
	}
	if int64(w)*int64(h) > g.MaxPixels {
		return nil, errors.Wrapf(ErrNotImage, "%dx%d exceeds %d pixels", w, h, g.MaxPixels)
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "decode image"), ErrNotImage)
	}
	return g.Scale(src)
}

func (g *Generator) Scale(src image.Image) (*types.Thumbnail, error) {
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, errors.Wrap(ErrNotImage, "empty image")
	}

	w, h := Fit(b.Dx(), b.Dy(), g.MaxSize)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	g.Scaler.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, errors.Wrap(err, "encode thumbnail")
	}
	return &types.Thumbnail{Width: w, Height: h, Data: buf.Bytes()}, nil
}

// Fit returns the size of a width x height image scaled to fit in a maxSize square.
func Fit(width, height, maxSize int) (int, int) {
	scale := math.Min(float64(maxSize)/float64(width), float64(maxSize)/float64(height))
	w := int(math.Round(float64(width) * scale))
	h := int(math.Round(float64(height) * scale))
	return max(w, 1), max(h, 1)
}
