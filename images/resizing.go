package images

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/chai2010/webp"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Downscale shrinks img to maxWidth, keeping the aspect ratio. Images that
// already fit are returned as is.
//
// Arguments:
//   - img: The source image.
//   - maxWidth: The widest allowed result; <= 0 disables scaling.
//
// Returns:
//   - image.Image: The scaled image or img itself.
func Downscale(img image.Image, maxWidth int) image.Image {
	if maxWidth <= 0 || img.Bounds().Dx() <= maxWidth {
		return img
	}
	// A zero height keeps the aspect ratio.
	return resize.Resize(uint(maxWidth), 0, img, resize.Bilinear)
}

// Encode serializes img in the given format.
//
// Arguments:
//   - img: The image to encode.
//   - format: Target format.
//   - quality: Lossy quality 1-100, ignored for PNG.
//
// Returns:
//   - Image: The encoded image with its dimensions.
//   - error: An error if the format is unknown or encoding fails.
func Encode(img image.Image, format ImageFormat, quality int) (Image, error) {
	buf := new(bytes.Buffer)

	var err error
	switch format {
	case FormatJPEG:
		err = jpeg.Encode(buf, img, &jpeg.Options{Quality: quality})
	case FormatWebP:
		err = webp.Encode(buf, img, &webp.Options{Quality: float32(quality)})
	case FormatPNG:
		err = png.Encode(buf, img)
	default:
		return Image{}, errors.Errorf("unsupported image format: %s", format)
	}
	if err != nil {
		return Image{}, errors.Wrapf(err, "failed to encode %s", format)
	}

	b := img.Bounds()
	return Image{Format: format, Data: buf.Bytes(), Width: b.Dx(), Height: b.Dy()}, nil
}

// MatToImage converts a gocv frame to a Go image bounded by maxWidth.
func MatToImage(mat gocv.Mat, maxWidth int) (image.Image, error) {
	if mat.Empty() {
		return nil, errors.New("empty frame")
	}
	img, err := mat.ToImage()
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert frame")
	}
	return Downscale(img, maxWidth), nil
}
