package motion

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Preprocessor normalizes raw frames into a comparison ready representation.
type Preprocessor struct {
	mode    Mode
	kernel  image.Point
	blurred gocv.Mat
}

// NewPreprocessor creates a preprocessor for the given mode and box blur size.
//
// Arguments:
//   - mode: Comparison mode, fixed for the lifetime of the preprocessor.
//   - kernelSize: Side of the box blur kernel, odd and positive.
//
// Returns:
//   - *Preprocessor: The preprocessor. Call Close to release its scratch buffer.
func NewPreprocessor(mode Mode, kernelSize int) *Preprocessor {
	return &Preprocessor{
		mode:    mode,
		kernel:  image.Pt(kernelSize, kernelSize),
		blurred: gocv.NewMat(),
	}
}

// Mode returns the comparison mode.
func (p *Preprocessor) Mode() Mode {
	return p.mode
}

// Normalize blurs raw to suppress sensor noise and, in grayscale mode, converts
// it to luminance. raw is left untouched; dst is overwritten.
//
// Arguments:
//   - raw: The decoded frame, 1, 3 or 4 channels of 8-bit samples.
//   - dst: Destination of the preprocessed frame.
//
// Returns:
//   - error: An error if raw is empty or has an unsupported channel count.
func (p *Preprocessor) Normalize(raw gocv.Mat, dst *gocv.Mat) error {
	if raw.Empty() {
		return errors.New("cannot normalize an empty frame")
	}

	if p.mode == ModeColor {
		gocv.Blur(raw, dst, p.kernel)
		return nil
	}

	switch raw.Channels() {
	case 1:
		gocv.Blur(raw, dst, p.kernel)
	case 3:
		gocv.Blur(raw, &p.blurred, p.kernel)
		// Channels are weighted as RGB, the same way DiffEngine collapses a color diff.
		gocv.CvtColor(p.blurred, dst, gocv.ColorRGBToGray)
	case 4:
		gocv.Blur(raw, &p.blurred, p.kernel)
		gocv.CvtColor(p.blurred, dst, gocv.ColorRGBAToGray)
	default:
		return errors.Errorf("unsupported channel count %d", raw.Channels())
	}
	return nil
}

// Close releases the scratch buffer.
func (p *Preprocessor) Close() {
	p.blurred.Close()
}
