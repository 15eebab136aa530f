// Package preview - Optional live views of a running diff: local gocv windows
// and an HTTP server streaming MJPEG previews and records.
package preview

import (
	"image/color"

	"github.com/nvr-ai/go-videodiff/motion"
	"gocv.io/x/gocv"
)

// RegionColor is the outline color of changed regions.
var RegionColor = color.RGBA{R: 255, G: 0, B: 0, A: 0}

// RegionThickness is the outline width of changed regions, in pixels.
const RegionThickness = 3

// Frames are display copies of a view. The caller owns them and must Close them.
type Frames struct {
	Original gocv.Mat
	Diff     gocv.Mat
}

// Close releases both frames.
func (f *Frames) Close() {
	f.Original.Close()
	f.Diff.Close()
}

// Annotate builds display copies of the frames in view. The single channel diff
// is expanded to three channels, and when regions are present they are drawn on
// both copies. Frames absent from the view come back empty.
//
// Arguments:
//   - view: The view handed to a viewer.
//
// Returns:
//   - Frames: Copies safe to keep after Show returns.
func Annotate(view motion.View) Frames {
	frames := Frames{Original: gocv.NewMat(), Diff: gocv.NewMat()}

	if view.Original != nil && !view.Original.Empty() {
		switch view.Original.Channels() {
		case 1:
			gocv.CvtColor(*view.Original, &frames.Original, gocv.ColorGrayToBGR)
		default:
			view.Original.CopyTo(&frames.Original)
		}
		drawRegions(&frames.Original, view.Regions)
	}

	if view.Diff != nil && !view.Diff.Empty() {
		gocv.CvtColor(*view.Diff, &frames.Diff, gocv.ColorGrayToBGR)
		drawRegions(&frames.Diff, view.Regions)
	}

	return frames
}

func drawRegions(img *gocv.Mat, regions []motion.Region) {
	for _, r := range regions {
		gocv.Rectangle(img, r.Rect(), RegionColor, RegionThickness)
	}
}

// Multi fans a view out to several viewers. Every viewer is shown the view;
// the first error is returned.
type Multi []motion.Viewer

// Show implements motion.Viewer.
func (m Multi) Show(view motion.View) error {
	var first error
	for _, v := range m {
		if err := v.Show(view); err != nil && first == nil {
			first = err
		}
	}
	return first
}
