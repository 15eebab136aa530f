package video

import (
	"image"
	"image/color"
	"io"

	"gocv.io/x/gocv"
)

// SyntheticSource generates deterministic frames: a mid-gray background with a
// white square moving diagonally. It is useful for benchmarks and demos that
// need motion without a video file.
//
// @example
// src := NewSyntheticSource(SyntheticOptions{Width: 640, Height: 480, Frames: 300})
// defer src.Close()
type SyntheticSource struct {
	opts  SyntheticOptions
	props Properties
	next  int
}

// SyntheticOptions configures a SyntheticSource.
type SyntheticOptions struct {
	// Width and Height of every frame.
	Width, Height int
	// Frames is the stream length.
	Frames int
	// FPS derives timestamps; <= 0 selects DefaultSequenceFPS.
	FPS float64
	// BlockSize is the side of the moving square; <= 0 selects Height/8.
	BlockSize int
	// Step is how far the square moves per frame, in pixels.
	Step int
}

// NewSyntheticSource creates a generator positioned before the first frame.
//
// Arguments:
//   - opts: Frame geometry and motion parameters.
//
// Returns:
//   - *SyntheticSource: The source.
func NewSyntheticSource(opts SyntheticOptions) *SyntheticSource {
	if opts.FPS <= 0 {
		opts.FPS = DefaultSequenceFPS
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = max(opts.Height/8, 1)
	}
	return &SyntheticSource{
		opts: opts,
		props: Properties{
			FPS:        opts.FPS,
			Width:      opts.Width,
			Height:     opts.Height,
			FrameCount: opts.Frames,
		},
	}
}

// Properties implements Source.
func (s *SyntheticSource) Properties() Properties {
	return s.props
}

// Read implements Source.
func (s *SyntheticSource) Read(dst *gocv.Mat) error {
	if s.next >= s.opts.Frames {
		return io.EOF
	}

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(128, 128, 128, 0), s.opts.Height, s.opts.Width, gocv.MatTypeCV8UC3)
	defer frame.Close()
	gocv.Rectangle(&frame, s.Block(s.next), color.RGBA{R: 255, G: 255, B: 255, A: 0}, -1)

	frame.CopyTo(dst)
	s.next++
	return nil
}

// Block returns where the square is drawn in the given frame. It wraps around
// the frame edges.
func (s *SyntheticSource) Block(index int) image.Rectangle {
	size := s.opts.BlockSize
	spanX := max(s.opts.Width-size, 1)
	spanY := max(s.opts.Height-size, 1)
	x := (index * s.opts.Step) % spanX
	y := (index * s.opts.Step) % spanY
	return image.Rect(x, y, x+size, y+size)
}

// PositionSeconds implements Source.
func (s *SyntheticSource) PositionSeconds() float64 {
	if s.next == 0 {
		return 0
	}
	return float64(s.next-1) / s.opts.FPS
}

// Close implements Source.
func (s *SyntheticSource) Close() error {
	s.next = s.opts.Frames
	return nil
}
