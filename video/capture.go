package video

import (
	"io"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// CaptureSource reads frames from a video file through OpenCV.
type CaptureSource struct {
	video *gocv.VideoCapture
	props Properties
}

// OpenCapture opens a video file with gocv.VideoCaptureFile.
func OpenCapture(path string) (*CaptureSource, error) {
	video, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, unavailable(err, path)
	}
	if !video.IsOpened() {
		video.Close()
		return nil, unavailable(errors.New("capture not opened"), path)
	}

	return &CaptureSource{
		video: video,
		props: Properties{
			FPS:        video.Get(gocv.VideoCaptureFPS),
			Width:      int(video.Get(gocv.VideoCaptureFrameWidth)),
			Height:     int(video.Get(gocv.VideoCaptureFrameHeight)),
			FrameCount: int(video.Get(gocv.VideoCaptureFrameCount)),
		},
	}, nil
}

// Properties implements Source.
func (s *CaptureSource) Properties() Properties {
	return s.props
}

// Read implements Source. OpenCV does not distinguish a corrupt frame from
// the end of the file, so both surface as io.EOF.
func (s *CaptureSource) Read(dst *gocv.Mat) error {
	if ok := s.video.Read(dst); !ok || dst.Empty() {
		return io.EOF
	}
	return nil
}

// PositionSeconds implements Source.
func (s *CaptureSource) PositionSeconds() float64 {
	return s.video.Get(gocv.VideoCapturePosMsec) / 1000.0
}

// Close implements Source.
func (s *CaptureSource) Close() error {
	return s.video.Close()
}
