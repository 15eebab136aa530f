package motion

import (
	"github.com/nvr-ai/go-videodiff/images"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrShapeMismatch is returned when frames of different geometry are compared.
var ErrShapeMismatch = errors.New("shape mismatch")

// DiffEngine measures the share of pixels that changed between two
// preprocessed frames. It is a plain full-frame pixel vote: no region
// weighting and no temporal smoothing.
type DiffEngine struct {
	threshold float32
	delta     gocv.Mat
	collapsed gocv.Mat
}

// NewDiffEngine creates an engine binarizing at the given threshold.
//
// @example
// engine := NewDiffEngine(DefaultThreshold)
// defer engine.Close()
// percent, err := engine.Diff(current, previous, &mask)
func NewDiffEngine(threshold float64) *DiffEngine {
	return &DiffEngine{
		threshold: float32(threshold),
		delta:     gocv.NewMat(),
		collapsed: gocv.NewMat(),
	}
}

// Diff compares current against previous.
//
// Arguments:
//   - current: The preprocessed current frame.
//   - previous: The preprocessed previous frame, same shape as current.
//   - binarized: Destination of the single channel mask, 255 where changed and 0 elsewhere.
//
// Returns:
//   - float64: Changed pixels over all pixels, times 100.
//   - error: An error wrapping ErrShapeMismatch if the frames differ in geometry.
func (d *DiffEngine) Diff(current, previous gocv.Mat, binarized *gocv.Mat) (float64, error) {
	cur, prev := images.ShapeOf(current), images.ShapeOf(previous)
	if cur != prev || cur.Pixels() == 0 {
		return 0, errors.Wrapf(ErrShapeMismatch, "current %s, previous %s", cur, prev)
	}

	gocv.AbsDiff(current, previous, &d.delta)

	// Collapse to a single channel before voting.
	source := d.delta
	switch cur.Channels {
	case 1:
	case 3:
		gocv.CvtColor(d.delta, &d.collapsed, gocv.ColorRGBToGray)
		source = d.collapsed
	case 4:
		gocv.CvtColor(d.delta, &d.collapsed, gocv.ColorRGBAToGray)
		source = d.collapsed
	default:
		return 0, errors.Wrapf(ErrShapeMismatch, "unsupported channel count %d", cur.Channels)
	}

	gocv.Threshold(source, binarized, d.threshold, ChangedValue, gocv.ThresholdBinary)

	changed := gocv.CountNonZero(*binarized)
	return float64(changed) / float64(cur.Pixels()) * 100.0, nil
}

// Close releases the engine's scratch buffers.
func (d *DiffEngine) Close() {
	d.delta.Close()
	d.collapsed.Close()
}
