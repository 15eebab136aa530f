package motion

import "gocv.io/x/gocv"

// View is what a viewer receives after each compared frame.
//
// The Mats are owned by the pipeline and are reused on the next iteration:
// a viewer must copy anything it wants to keep before Show returns.
type View struct {
	// Index is the zero based index of the frame in the stream.
	Index int
	// Timestamp is the frame position in seconds.
	Timestamp float64
	// ChangedPercent is the motion intensity of the frame.
	ChangedPercent float64
	// Original is the decoded frame, nil unless ShowOriginal is set.
	Original *gocv.Mat
	// Diff is the binarized diff, nil unless ShowDiff is set.
	Diff *gocv.Mat
	// Regions are the changed areas, nil unless ShowContours is set.
	Regions []Region
}

// Viewer is an optional live preview capability. The pipeline behaves the same
// with no viewer at all.
type Viewer interface {
	Show(view View) error
}
