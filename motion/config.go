// Package motion - Frame differencing pipeline that turns a video stream into a
// time series of per-frame motion intensity.
//
// Pipeline Overview:
//
// ┌──────────────┐
// │ Raw Frame    │
// └──────┬───────┘
// ┌────────────────────────────────────┐
// │ Preprocessor (3x3 blur, grayscale) │
// └──────┬─────────────────────────────┘
// ┌────────────────────────────────────────────┐
// │ DiffEngine (absdiff, collapse, threshold)  │
// └──────┬─────────────────────────────────────┘
// ┌────────────────────────────┐
// │ RegionExtractor (optional) │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ Record Sink                │
// └────────────────────────────┘
package motion

import (
	"github.com/pkg/errors"
)

const (
	// DefaultThreshold is the collapsed difference above which a pixel counts as changed.
	DefaultThreshold = 30.0
	// DefaultBlurKernelSize is the side of the box blur kernel.
	DefaultBlurKernelSize = 3
	// ChangedValue marks a changed sample in a binarized diff.
	ChangedValue = 255.0
)

// Mode selects the representation frames are compared in.
type Mode int

const (
	// ModeColor compares all channels of the blurred frames.
	ModeColor Mode = iota
	// ModeGrayscale compares single channel luminance.
	ModeGrayscale
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case ModeColor:
		return "color"
	case ModeGrayscale:
		return "grayscale"
	default:
		return "unknown"
	}
}

// Config contains configuration parameters for a diff run. It is a value:
// a pipeline copies it at construction and never changes it.
type Config struct {
	// Grayscale compares single channel luminance instead of 3-channel color.
	Grayscale bool
	// Verbose emits human readable progress lines. No effect on the records.
	Verbose bool
	// ShowOriginal forwards the current frame to the viewer.
	ShowOriginal bool
	// ShowDiff forwards the binarized diff to the viewer.
	ShowDiff bool
	// ShowContours enables region extraction for annotating the previews.
	ShowContours bool
	// Threshold is the binarization threshold on a 0-255 scale.
	Threshold float64
	// BlurKernelSize is the box blur kernel side, must be odd.
	BlurKernelSize int
}

// DefaultConfig returns the reference configuration: color comparison,
// headless, threshold 30 and a 3x3 blur.
func DefaultConfig() Config {
	return Config{
		Threshold:      DefaultThreshold,
		BlurKernelSize: DefaultBlurKernelSize,
	}
}

// Mode returns the comparison mode.
func (c Config) Mode() Mode {
	if c.Grayscale {
		return ModeGrayscale
	}
	return ModeColor
}

// Validate reports configuration values the pipeline cannot run with.
func (c Config) Validate() error {
	if c.Threshold < 0 || c.Threshold > 255 {
		return errors.Errorf("threshold %v outside [0, 255]", c.Threshold)
	}
	if c.BlurKernelSize < 1 || c.BlurKernelSize%2 == 0 {
		return errors.Errorf("blur kernel size %d must be odd and positive", c.BlurKernelSize)
	}
	return nil
}

// previewing reports whether any frame is forwarded to a viewer.
func (c Config) previewing() bool {
	return c.ShowOriginal || c.ShowDiff
}
