// Package video - Frame sources: decoded video files, numbered image sequences
// and in-memory streams, all behind a single pull interface.
package video

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ErrSourceUnavailable is returned when an input cannot be opened.
var ErrSourceUnavailable = errors.New("source unavailable")

// DefaultSequenceFPS is the frame rate assumed for image sequences.
const DefaultSequenceFPS = 30.0

// Properties describes a stream. It is read once at open and never changes.
type Properties struct {
	FPS        float64 `json:"fps"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	FrameCount int     `json:"frame_count"`
}

// String implements fmt.Stringer.
func (p Properties) String() string {
	return fmt.Sprintf("fps=%.2f, width=%d, height=%d, totalFrames=%d", p.FPS, p.Width, p.Height, p.FrameCount)
}

// Source produces decoded frames in presentation order.
type Source interface {
	// Properties returns the stream properties.
	Properties() Properties
	// Read decodes the next frame into dst. It returns io.EOF once the
	// stream is exhausted; any other error is a failed read.
	Read(dst *gocv.Mat) error
	// PositionSeconds returns the timestamp of the most recently read frame.
	PositionSeconds() float64
	// Close releases the source.
	Close() error
}

// Options tunes how Open interprets a path.
type Options struct {
	// SequenceFPS is the frame rate of image sequences, which carry no timing of their own.
	SequenceFPS float64
}

// Open opens a video file, or a directory of numbered frame images.
//
// Arguments:
//   - path: A video file or a directory of frame-N images.
//   - opts: Open options.
//
// Returns:
//   - Source: The opened source.
//   - error: An error wrapping ErrSourceUnavailable if the input cannot be opened.
func Open(path string, opts Options) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, unavailable(err, path)
	}
	if info.IsDir() {
		return OpenSequence(path, opts.SequenceFPS)
	}
	return OpenCapture(path)
}

func unavailable(cause error, path string) error {
	return errors.Wrapf(ErrSourceUnavailable, "%s: %v", path, cause)
}
