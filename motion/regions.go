package motion

import (
	"image"
	"iter"

	"gocv.io/x/gocv"
)

// Region is the axis aligned bounding box of a connected group of changed pixels.
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns the region as an image.Rectangle.
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// RegionExtractor finds the outer boundaries of changed areas in a binarized diff.
type RegionExtractor struct{}

// Regions returns the bounding boxes of the external contours of mask.
// Contours are traced on a private copy, so mask is never modified.
// The sequence is computed when iterated; its order is whatever OpenCV's
// contour discovery yields and must not be relied on.
//
// Arguments:
//   - mask: Single channel binarized diff.
//
// Returns:
//   - iter.Seq[Region]: Zero or more regions.
func (RegionExtractor) Regions(mask gocv.Mat) iter.Seq[Region] {
	return func(yield func(Region) bool) {
		if mask.Empty() {
			return
		}

		work := mask.Clone()
		defer work.Close()

		contours := gocv.FindContours(work, gocv.RetrievalExternal, gocv.ChainApproxSimple)
		defer contours.Close()

		for i := 0; i < contours.Size(); i++ {
			rect := gocv.BoundingRect(contours.At(i))
			region := Region{X: rect.Min.X, Y: rect.Min.Y, Width: rect.Dx(), Height: rect.Dy()}
			if !yield(region) {
				return
			}
		}
	}
}
