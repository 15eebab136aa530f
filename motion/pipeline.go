package motion

import (
	"context"
	"io"
	"math"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/nvr-ai/go-videodiff/images"
	"github.com/nvr-ai/go-videodiff/logger"
	"github.com/nvr-ai/go-videodiff/profiler"
	"github.com/nvr-ai/go-videodiff/record"
	"github.com/nvr-ai/go-videodiff/video"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// State is the lifecycle stage of a run.
type State int

const (
	// StatePriming waits for the first frame, which has nothing to compare against.
	StatePriming State = iota
	// StateStreaming compares every frame with its predecessor.
	StateStreaming
	// StateDone means the source is exhausted and the sink is closed.
	StateDone
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case StatePriming:
		return "priming"
	case StateStreaming:
		return "streaming"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Summary describes a finished run.
type Summary struct {
	RunID       string        `json:"run_id"`
	Frames      int           `json:"frames"`
	Records     int           `json:"records"`
	Interrupted bool          `json:"interrupted"`
	Duration    time.Duration `json:"duration"`
	MeanPercent float64       `json:"mean_percent"`
	PeakPercent float64       `json:"peak_percent"`
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger used for video details, records and progress.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) {
		p.log = l
	}
}

// WithViewer attaches a live preview. Without one the pipeline runs headless.
func WithViewer(v Viewer) Option {
	return func(p *Pipeline) {
		p.viewer = v
	}
}

// Pipeline drives frames from a source through preprocessing and differencing
// and emits one record per frame. Runs are sequential; a Pipeline may be
// reused for several runs but not concurrently.
type Pipeline struct {
	cfg     Config
	viewer  Viewer
	log     zerolog.Logger
	regions RegionExtractor
}

// NewPipeline creates a pipeline from an immutable configuration value.
//
// Arguments:
//   - cfg: Run configuration, copied.
//   - opts: Optional collaborators.
//
// Returns:
//   - *Pipeline: The pipeline.
//   - error: An error if cfg is invalid.
func NewPipeline(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid motion config")
	}
	p := &Pipeline{
		cfg: cfg,
		log: *logger.WithComponent("pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// FileOptions configures RunFile.
type FileOptions struct {
	// Source tunes how the input path is opened.
	Source video.Options
	// Precision is the number of decimals in the output file.
	Precision int
	// Extra sinks receive every record after the output file.
	Extra []record.Sink
}

// RunFile opens input, creates output fresh and runs the pipeline between them.
// If input cannot be opened nothing is written and the error wraps
// video.ErrSourceUnavailable.
func (p *Pipeline) RunFile(ctx context.Context, input, output string, opts FileOptions) (Summary, error) {
	src, err := video.Open(input, opts.Source)
	if err != nil {
		return Summary{}, err
	}
	defer src.Close()

	csv, err := record.Create(output, opts.Precision)
	if err != nil {
		return Summary{}, err
	}

	var sink record.Sink = csv
	if len(opts.Extra) > 0 {
		sink = record.Tee(append([]record.Sink{csv}, opts.Extra...)...)
	}
	return p.Run(ctx, src, sink)
}

// Run processes src until it is exhausted, a read fails, or ctx is cancelled,
// writing one record per frame read to sink. sink is closed exactly once
// before Run returns.
//
// A failed read ends the stream like end-of-file does; records already
// written are kept and no error is returned. Cancellation also ends the run
// cleanly and is reported through Summary.Interrupted.
//
// Arguments:
//   - ctx: Checked between frames.
//   - src: Frame source, not closed by Run.
//   - sink: Record destination, closed by Run.
//
// Returns:
//   - Summary: Counters of the run, also on error.
//   - error: ErrShapeMismatch for inconsistent frames, record.ErrSinkWrite for output failures.
func (p *Pipeline) Run(ctx context.Context, src video.Source, sink record.Sink) (summary Summary, err error) {
	props := src.Properties()
	summary.RunID = uuid.NewString()
	runLog := p.log.With().Str("run_id", summary.RunID).Logger()

	tracker := profiler.New(profiler.Options{
		Total:   props.FrameCount,
		Verbose: p.cfg.Verbose,
		Logger:  runLog,
	})

	if p.cfg.Verbose {
		runLog.Info().
			Float64("fps", props.FPS).
			Int("width", props.Width).
			Int("height", props.Height).
			Int("total_frames", props.FrameCount).
			Str("mode", p.cfg.Mode().String()).
			Msg("video details")
	}

	loop := newLoop(p, runLog, tracker)
	defer loop.close()

	defer func() {
		if closeErr := sink.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(record.AsWriteError(closeErr), "failed to close sink")
		}
		summary.Frames = tracker.Processed()
		summary.Duration = tracker.Elapsed()
		if m := tracker.Metric("changed_percent"); m != nil {
			summary.MeanPercent = m.Mean()
			summary.PeakPercent = m.Max()
		}
		if p.cfg.Verbose {
			tracker.Report()
		}
	}()

	state := StatePriming
	for state != StateDone {
		if ctx.Err() != nil {
			runLog.Info().Int("frames", tracker.Processed()).Msg("run interrupted")
			summary.Interrupted = true
			state = StateDone
			continue
		}

		if readErr := src.Read(&loop.raw); readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				runLog.Warn().Err(readErr).Int("frames", tracker.Processed()).Msg("frame read failed, ending stream")
			}
			state = StateDone
			continue
		}

		if shapeErr := checkFrame(loop.raw, props); shapeErr != nil {
			return summary, errors.Wrapf(shapeErr, "frame %d", tracker.Processed())
		}

		var result record.Result
		switch state {
		case StatePriming:
			if err := loop.prime(); err != nil {
				return summary, errors.Wrap(err, "frame 0")
			}
			state = StateStreaming
		case StateStreaming:
			result, err = loop.step(tracker.Processed(), src.PositionSeconds())
			if err != nil {
				return summary, errors.Wrapf(err, "frame %d", tracker.Processed())
			}
		}

		done := tracker.StartOperation("emit")
		writeErr := sink.Write(result)
		done()
		if writeErr != nil {
			return summary, errors.Wrapf(record.AsWriteError(writeErr), "frame %d", tracker.Processed())
		}
		summary.Records++
		tracker.Advance()
	}

	return summary, nil
}

// checkFrame verifies a decoded frame against the negotiated dimensions.
// Unknown (zero) dimensions are not checked.
func checkFrame(raw gocv.Mat, props video.Properties) error {
	shape := images.ShapeOf(raw)
	if shape.Pixels() == 0 {
		return errors.Wrap(ErrShapeMismatch, "empty frame")
	}
	if (props.Width > 0 && shape.Cols != props.Width) || (props.Height > 0 && shape.Rows != props.Height) {
		return errors.Wrapf(ErrShapeMismatch, "frame %s, stream %dx%d", shape, props.Width, props.Height)
	}
	return nil
}

// loop owns the buffers of one run. previous and current are swapped after
// every comparison so the previous frame is never an alias of the frame
// being written.
type loop struct {
	p        *Pipeline
	log      zerolog.Logger
	tracker  *profiler.Tracker
	pre      *Preprocessor
	engine   *DiffEngine
	raw      gocv.Mat
	previous gocv.Mat
	current  gocv.Mat
	mask     gocv.Mat
	lastTime float64
}

func newLoop(p *Pipeline, l zerolog.Logger, tracker *profiler.Tracker) *loop {
	return &loop{
		p:        p,
		log:      l,
		tracker:  tracker,
		pre:      NewPreprocessor(p.cfg.Mode(), p.cfg.BlurKernelSize),
		engine:   NewDiffEngine(p.cfg.Threshold),
		raw:      gocv.NewMat(),
		previous: gocv.NewMat(),
		current:  gocv.NewMat(),
		mask:     gocv.NewMat(),
	}
}

// prime stores the first frame; the record for it is the zero value.
func (l *loop) prime() error {
	done := l.tracker.StartOperation("preprocess")
	defer done()
	return l.pre.Normalize(l.raw, &l.previous)
}

func (l *loop) step(index int, position float64) (record.Result, error) {
	done := l.tracker.StartOperation("preprocess")
	err := l.pre.Normalize(l.raw, &l.current)
	done()
	if err != nil {
		return record.Result{}, err
	}

	done = l.tracker.StartOperation("diff")
	percent, err := l.engine.Diff(l.current, l.previous, &l.mask)
	done()
	if err != nil {
		return record.Result{}, err
	}

	timestamp := l.timestamp(position)
	l.show(index, timestamp, percent)

	l.log.Debug().Float64("timestamp", timestamp).Float64("changed_percent", percent).Msg("frame")
	l.tracker.RecordMetric("changed_percent", percent)

	l.previous, l.current = l.current, l.previous
	return record.Result{Timestamp: timestamp, ChangedPercent: percent}, nil
}

// timestamp clamps the source position so the output never goes back in time.
func (l *loop) timestamp(position float64) float64 {
	if math.IsNaN(position) || position < l.lastTime {
		position = l.lastTime
	}
	l.lastTime = position
	return position
}

func (l *loop) show(index int, timestamp, percent float64) {
	cfg := l.p.cfg
	if l.p.viewer == nil || !cfg.previewing() {
		return
	}

	view := View{Index: index, Timestamp: timestamp, ChangedPercent: percent}
	if cfg.ShowOriginal {
		view.Original = &l.raw
	}
	if cfg.ShowDiff {
		view.Diff = &l.mask
	}
	if cfg.ShowContours {
		done := l.tracker.StartOperation("regions")
		view.Regions = slices.Collect(l.p.regions.Regions(l.mask))
		done()
	}

	if err := l.p.viewer.Show(view); err != nil {
		l.log.Warn().Err(err).Int("frame", index).Msg("preview failed")
	}
}

func (l *loop) close() {
	l.pre.Close()
	l.engine.Close()
	l.raw.Close()
	l.previous.Close()
	l.current.Close()
	l.mask.Close()
}
