package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func checkerboard(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/4+y/4)%2 == 0 {
				img.Set(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
			} else {
				img.Set(x, y, color.RGBA{A: 255})
			}
		}
	}
	return img
}

func TestDownscale(t *testing.T) {
	tests := []struct {
		name             string
		width, height    int
		maxWidth         int
		expectW, expectH int
	}{
		{"fits", 320, 240, 640, 320, 240},
		{"exact", 640, 480, 640, 640, 480},
		{"wide", 1280, 720, 640, 640, 360},
		{"disabled", 1280, 720, 0, 1280, 720},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Downscale(image.NewRGBA(image.Rect(0, 0, tt.width, tt.height)), tt.maxWidth)
			assert.Equal(t, tt.expectW, out.Bounds().Dx())
			assert.Equal(t, tt.expectH, out.Bounds().Dy())
		})
	}
}

func TestEncode(t *testing.T) {
	img := checkerboard(32, 16)

	tests := []struct {
		format ImageFormat
		decode func([]byte) (image.Config, error)
	}{
		{FormatJPEG, func(b []byte) (image.Config, error) { return jpeg.DecodeConfig(bytes.NewReader(b)) }},
		{FormatPNG, func(b []byte) (image.Config, error) { return png.DecodeConfig(bytes.NewReader(b)) }},
		{FormatWebP, func(b []byte) (image.Config, error) { return webp.DecodeConfig(bytes.NewReader(b)) }},
	}

	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			encoded, err := Encode(img, tt.format, 80)
			require.NoError(t, err)
			assert.Equal(t, tt.format, encoded.Format)
			assert.Equal(t, 32, encoded.Width)
			assert.Equal(t, 16, encoded.Height)

			cfg, err := tt.decode(encoded.Data)
			require.NoError(t, err)
			assert.Equal(t, 32, cfg.Width)
			assert.Equal(t, 16, cfg.Height)
		})
	}

	_, err := Encode(img, ImageFormat("bmp"), 80)
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]ImageFormat{"": FormatJPEG, "jpg": FormatJPEG, "jpeg": FormatJPEG, "png": FormatPNG, "webp": FormatWebP} {
		got, ok := ParseFormat(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	_, ok := ParseFormat("gif")
	assert.False(t, ok)

	assert.Equal(t, "image/webp", FormatWebP.ContentType())
	assert.Equal(t, "image/png", FormatPNG.ContentType())
	assert.Equal(t, "image/jpeg", FormatJPEG.ContentType())
}

func TestMatToImage(t *testing.T) {
	mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 255, 0), 50, 100, gocv.MatTypeCV8UC3)
	defer mat.Close()

	img, err := MatToImage(mat, 40)
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())

	empty := gocv.NewMat()
	defer empty.Close()
	_, err = MatToImage(empty, 40)
	assert.Error(t, err)
}
