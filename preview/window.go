package preview

import (
	"github.com/nvr-ai/go-videodiff/motion"
	"gocv.io/x/gocv"
)

const (
	// OriginalWindowName is the title of the window showing the decoded frame.
	OriginalWindowName = "Original"
	// DiffWindowName is the title of the window showing the binarized diff.
	DiffWindowName = "Diff"
)

// Window shows views in native gocv windows. Windows are created on first use,
// so only enabled frames actually present in a view open a window.
type Window struct {
	showOriginal bool
	showDiff     bool
	original     *gocv.Window
	diff         *gocv.Window
}

// NewWindow creates a viewer backed by highgui windows.
//
// Arguments:
//   - showOriginal: Open the "Original" window.
//   - showDiff: Open the "Diff" window.
func NewWindow(showOriginal, showDiff bool) *Window {
	return &Window{showOriginal: showOriginal, showDiff: showDiff}
}

// Show implements motion.Viewer.
func (w *Window) Show(view motion.View) error {
	if !w.showOriginal {
		view.Original = nil
	}
	if !w.showDiff {
		view.Diff = nil
	}
	frames := Annotate(view)
	defer frames.Close()

	if !frames.Original.Empty() {
		if w.original == nil {
			w.original = gocv.NewWindow(OriginalWindowName)
		}
		w.original.IMShow(frames.Original)
	}
	if !frames.Diff.Empty() {
		if w.diff == nil {
			w.diff = gocv.NewWindow(DiffWindowName)
		}
		w.diff.IMShow(frames.Diff)
	}

	// Let highgui process its events.
	switch {
	case w.original != nil:
		w.original.WaitKey(1)
	case w.diff != nil:
		w.diff.WaitKey(1)
	}
	return nil
}

// Close destroys any window that was opened.
func (w *Window) Close() error {
	if w.original != nil {
		w.original.Close()
		w.original = nil
	}
	if w.diff != nil {
		w.diff.Close()
		w.diff = nil
	}
	return nil
}
