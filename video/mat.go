package video

import (
	"io"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// MatSource replays a fixed list of in-memory frames. It is useful for
// synthetic streams and tests.
type MatSource struct {
	frames     []gocv.Mat
	timestamps []float64
	props      Properties
	next       int

	// FailAt, when >= 0, makes the read of that frame index return ReadErr.
	FailAt  int
	ReadErr error
}

// NewMatSource builds a source over frames. Timestamps default to index/fps
// when nil. The frames stay owned by the caller.
func NewMatSource(fps float64, frames []gocv.Mat, timestamps []float64) *MatSource {
	props := Properties{FPS: fps, FrameCount: len(frames)}
	if len(frames) > 0 {
		props.Width = frames[0].Cols()
		props.Height = frames[0].Rows()
	}
	if timestamps == nil {
		timestamps = make([]float64, len(frames))
		for i := range timestamps {
			if fps > 0 {
				timestamps[i] = float64(i) / fps
			}
		}
	}
	return &MatSource{
		frames:     frames,
		timestamps: timestamps,
		props:      props,
		FailAt:     -1,
	}
}

// Properties implements Source.
func (s *MatSource) Properties() Properties {
	return s.props
}

// Read implements Source. Each read copies, so the pipeline never aliases the
// caller's frames.
func (s *MatSource) Read(dst *gocv.Mat) error {
	if s.FailAt >= 0 && s.next == s.FailAt {
		if s.ReadErr == nil {
			return errors.New("injected read failure")
		}
		return s.ReadErr
	}
	if s.next >= len(s.frames) {
		return io.EOF
	}
	s.frames[s.next].CopyTo(dst)
	s.next++
	return nil
}

// PositionSeconds implements Source.
func (s *MatSource) PositionSeconds() float64 {
	if s.next == 0 || s.next > len(s.timestamps) {
		return 0
	}
	return s.timestamps[s.next-1]
}

// Close implements Source.
func (s *MatSource) Close() error {
	return nil
}
