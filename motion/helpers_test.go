package motion

import (
	"context"
	"sync"
	"testing"

	"github.com/nvr-ai/go-videodiff/record"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func solidGray(rows, cols int, value float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(value, 0, 0, 0), rows, cols, gocv.MatTypeCV8UC1)
}

func solidColor(rows, cols int, c0, c1, c2 float64) gocv.Mat {
	return gocv.NewMatWithSizeFromScalar(gocv.NewScalar(c0, c1, c2, 0), rows, cols, gocv.MatTypeCV8UC3)
}

func grayFromBytes(t *testing.T, rows, cols int, data []byte) gocv.Mat {
	t.Helper()
	mat, err := gocv.NewMatFromBytes(rows, cols, gocv.MatTypeCV8UC1, data)
	require.NoError(t, err)
	return mat
}

func closeAll(mats []gocv.Mat) {
	for i := range mats {
		mats[i].Close()
	}
}

// shownView is the part of a View that survives the pipeline reusing its buffers.
type shownView struct {
	Index          int
	Timestamp      float64
	ChangedPercent float64
	HasOriginal    bool
	HasDiff        bool
	DiffNonZero    int
	Regions        []Region
}

// MockViewer records what it was shown and can fail or cancel on demand.
type MockViewer struct {
	mu          sync.Mutex
	views       []shownView
	shouldError bool
	onShow      func(View)
}

func (m *MockViewer) Show(view View) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	shown := shownView{
		Index:          view.Index,
		Timestamp:      view.Timestamp,
		ChangedPercent: view.ChangedPercent,
		HasOriginal:    view.Original != nil,
		HasDiff:        view.Diff != nil,
		Regions:        view.Regions,
	}
	if view.Diff != nil {
		shown.DiffNonZero = gocv.CountNonZero(*view.Diff)
	}
	m.views = append(m.views, shown)

	if m.onShow != nil {
		m.onShow(view)
	}
	if m.shouldError {
		return errors.New("mock viewer error")
	}
	return nil
}

func (m *MockViewer) Views() []shownView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]shownView(nil), m.views...)
}

// MockSink collects records and fails on demand.
type MockSink struct {
	record.Collector
	failWriteAt int
	failClose   bool
	writes      int
}

func newMockSink() *MockSink {
	return &MockSink{failWriteAt: -1}
}

func (m *MockSink) Write(r record.Result) error {
	defer func() { m.writes++ }()
	if m.failWriteAt >= 0 && m.writes == m.failWriteAt {
		return errors.New("mock write error")
	}
	return m.Collector.Write(r)
}

func (m *MockSink) Close() error {
	_ = m.Collector.Close()
	if m.failClose {
		return errors.New("mock close error")
	}
	return nil
}

func cancelledContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
