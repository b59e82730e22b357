// Package thumbnail renders the small JPEG shown next to product images.
package thumbnail

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"path"
	"strings"

	// Registered decoders for the formats accepted on upload.
	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

const (
	// Size bounds both sides of a thumbnail.
	Size    = 150
	Quality = 85

	// MaxPixels caps width x height of a source image before it is decoded.
	MaxPixels = 40_000_000

	ImageDir     = "product-images"
	ThumbnailDir = "product-thumbnails"
)

var ErrDecode = errors.New("thumbnail: cannot decode image")

// Fit returns the largest w x h that keeps the aspect ratio of src inside a
// bound x bound box. Images already inside the box keep their size.
func Fit(width, height, bound int) (int, int) {
	if width <= bound && height <= bound {
		return width, height
	}
	if width >= height {
		return bound, clamp(height * bound / width)
	}
	return clamp(width * bound / height), bound
}

func clamp(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// Generate decodes src and returns a JPEG no larger than Size x Size. Alpha is
// flattened onto white so the output is plain RGB. Sources above MaxPixels
// are refused from their header alone.
func Generate(src []byte) ([]byte, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrDecode, cfg.Width, cfg.Height, MaxPixels)
	}

	img, _, err := image.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	b := img.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}
	w, h := Fit(b.Dx(), b.Dy(), Size)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: Quality}); err != nil {
		return nil, fmt.Errorf("thumbnail: encode: %w", err)
	}
	return buf.Bytes(), nil
}

// Paths returns where an upload named filename and its thumbnail are stored.
// Both share the same base name.
func Paths(filename string) (imagePath, thumbPath string) {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	return path.Join(ImageDir, name), path.Join(ThumbnailDir, name)
}

// ThumbnailPath maps a stored image path to its thumbnail path.
func ThumbnailPath(imagePath string) string {
	return path.Join(ThumbnailDir, path.Base(imagePath))
}
