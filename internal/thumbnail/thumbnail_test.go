package thumbnail

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func encodePNG(t *testing.T, w, h int, transparent bool) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.NRGBA{R: 200, G: 10, B: 10, A: 255}
			if transparent {
				c.A = 0
			}
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestFit(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		wantW, wantH int
	}{
		{name: "landscape", w: 600, h: 300, wantW: 150, wantH: 75},
		{name: "portrait", w: 300, h: 600, wantW: 75, wantH: 150},
		{name: "square", w: 1000, h: 1000, wantW: 150, wantH: 150},
		{name: "small is not upscaled", w: 40, h: 20, wantW: 40, wantH: 20},
		{name: "sliver keeps one pixel", w: 3000, h: 1, wantW: 150, wantH: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := Fit(tt.w, tt.h, Size)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestGenerate_BoundedAndAspectPreserved(t *testing.T) {
	out, err := Generate(encodePNG(t, 640, 480, false))
	require.NoError(t, err)

	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", format)
	assert.LessOrEqual(t, cfg.Width, Size)
	assert.LessOrEqual(t, cfg.Height, Size)
	assert.InDelta(t, 640.0/480.0, float64(cfg.Width)/float64(cfg.Height), 0.02)
}

func TestGenerate_SmallImageKeepsSize(t *testing.T) {
	out, err := Generate(encodePNG(t, 32, 16, false))
	require.NoError(t, err)

	cfg, err := jpeg.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)
	assert.Equal(t, 16, cfg.Height)
}

func TestGenerate_AlphaFlattenedToWhite(t *testing.T) {
	out, err := Generate(encodePNG(t, 200, 200, true))
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	r, g, b, _ := img.At(75, 75).RGBA()
	assert.Greater(t, r>>8, uint32(240))
	assert.Greater(t, g>>8, uint32(240))
	assert.Greater(t, b>>8, uint32(240))
}

func TestGenerate_Undecodable(t *testing.T) {
	_, err := Generate([]byte("definitely not an image"))
	assert.ErrorIs(t, err, ErrDecode)
}

func TestPaths_ShareBaseName(t *testing.T) {
	img, thumb := Paths(`C:\uploads\cover.png`)
	assert.Equal(t, "product-images/cover.png", img)
	assert.Equal(t, "product-thumbnails/cover.png", thumb)
	assert.Equal(t, thumb, ThumbnailPath(img))
}

// withPNGSize rewrites the IHDR dimensions of an encoded PNG, leaving the
// pixel data as it was.
func withPNGSize(t *testing.T, src []byte, w, h uint32) []byte {
	t.Helper()
	out := bytes.Clone(src)
	// 8 byte signature, 4 byte length, "IHDR", then width and height.
	require.Equal(t, "IHDR", string(out[12:16]))
	binary.BigEndian.PutUint32(out[16:20], w)
	binary.BigEndian.PutUint32(out[20:24], h)
	binary.BigEndian.PutUint32(out[29:33], crc32.ChecksumIEEE(out[12:29]))
	return out
}

func TestGenerate_RejectsOversizedImage(t *testing.T) {
	src := withPNGSize(t, encodePNG(t, 2, 2, false), 20000, 20000)

	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, 20000, cfg.Width)

	_, err = Generate(src)
	require.ErrorIs(t, err, ErrDecode)
	assert.Contains(t, err.Error(), "exceeds")
}
