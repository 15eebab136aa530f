package video

import (
	"io"
	"os"

	"github.com/nvr-ai/go-videodiff/util"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// SequenceSource reads a directory of numbered frame images, one file per frame.
type SequenceSource struct {
	files []util.ImageFile
	props Properties
	next  int
}

// OpenSequence lists the frames in dir and decodes the first one to learn the
// frame size.
//
// Arguments:
//   - dir: Directory of frame-N images.
//   - fps: Frame rate used to derive timestamps; <= 0 selects DefaultSequenceFPS.
//
// Returns:
//   - *SequenceSource: The source, positioned before the first frame.
//   - error: An error wrapping ErrSourceUnavailable.
func OpenSequence(dir string, fps float64) (*SequenceSource, error) {
	if fps <= 0 {
		fps = DefaultSequenceFPS
	}

	files, err := util.LoadDirectoryImageFiles(dir)
	if err != nil {
		return nil, unavailable(err, dir)
	}
	if len(files) == 0 {
		return nil, unavailable(errors.New("no frame images"), dir)
	}

	first, err := decodeFile(files[0].Path)
	if err != nil {
		return nil, unavailable(err, dir)
	}
	defer first.Close()

	return &SequenceSource{
		files: files,
		props: Properties{
			FPS:        fps,
			Width:      first.Cols(),
			Height:     first.Rows(),
			FrameCount: len(files),
		},
	}, nil
}

func decodeFile(path string) (gocv.Mat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return gocv.NewMat(), err
	}
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return gocv.NewMat(), errors.Wrapf(err, "failed to decode %s", path)
	}
	if mat.Empty() {
		mat.Close()
		return gocv.NewMat(), errors.Errorf("failed to decode %s", path)
	}
	return mat, nil
}

// Properties implements Source.
func (s *SequenceSource) Properties() Properties {
	return s.props
}

// Read implements Source.
func (s *SequenceSource) Read(dst *gocv.Mat) error {
	if s.next >= len(s.files) {
		return io.EOF
	}
	mat, err := decodeFile(s.files[s.next].Path)
	if err != nil {
		return err
	}
	defer mat.Close()

	mat.CopyTo(dst)
	s.next++
	return nil
}

// PositionSeconds implements Source. The first frame sits at zero.
func (s *SequenceSource) PositionSeconds() float64 {
	if s.next == 0 {
		return 0
	}
	return float64(s.next-1) / s.props.FPS
}

// Close implements Source.
func (s *SequenceSource) Close() error {
	s.next = len(s.files)
	return nil
}
