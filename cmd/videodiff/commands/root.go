package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nvr-ai/go-videodiff/config"
	"github.com/nvr-ai/go-videodiff/logger"
	"github.com/nvr-ai/go-videodiff/motion"
	"github.com/nvr-ai/go-videodiff/preview"
	"github.com/nvr-ai/go-videodiff/record"
	"github.com/nvr-ai/go-videodiff/video"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by the root command and its subcommands.
type app struct {
	cfgFile string
	v       *viper.Viper
}

// NewRootCommand builds the videodiff command tree.
func NewRootCommand() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "videodiff [flags] <input> <output>",
		Short: "videodiff - Per-frame motion intensity of a video as CSV",
		Long: `videodiff compares every frame of a video with the previous one and writes
the share of changed pixels, one "<timestamp>,<percent>" line per frame.

The input is a video file or a directory of numbered frame images
(frame-0001.png, ...). The output file is created fresh.`,
		Example: `  # Color comparison
  videodiff input.mp4 motion.csv

  # Grayscale with progress and a diff preview window
  videodiff -g -v -d input.mp4 motion.csv

  # Stream previews to a browser
  videodiff --preview-addr 127.0.0.1:8080 -c input.mp4 motion.csv`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.BindFlags(a.v, cmd.Flags()); err != nil {
				return err
			}
			return config.BindFlags(a.v, cmd.InheritedFlags())
		},
		RunE: a.runDiff,
	}

	pflags := root.PersistentFlags()
	pflags.StringVar(&a.cfgFile, "config", "", "config file (default is $HOME/.config/videodiff/config.yaml)")
	pflags.String("log-level", "", "log level (debug, info, warn, error)")
	pflags.Bool("log-pretty", false, "human readable log output")

	flags := root.Flags()
	flags.BoolP("grayscale", "g", false, "compare the frames in grayscale instead of color")
	flags.BoolP("verbose", "v", false, "log video details, progress and a timing summary")
	flags.BoolP("window", "w", false, "show a window output of the original file")
	flags.BoolP("diff", "d", false, "show a window output of the diffed frame")
	flags.BoolP("contours", "c", false, "show contour analysis rectangles on the output display")
	flags.Float64("threshold", motion.DefaultThreshold, "binarization threshold on a 0-255 scale")
	flags.Int("blur-kernel", motion.DefaultBlurKernelSize, "box blur kernel size (odd)")
	flags.Int("precision", record.DefaultPrecision, "decimals written for timestamps and percentages")
	flags.Float64("fps", video.DefaultSequenceFPS, "frame rate of image sequence inputs")
	flags.String("preview-addr", "", "serve MJPEG previews and a record feed on this address")
	flags.Int("preview-max-width", preview.DefaultMaxWidth, "downscale preview frames wider than this")

	root.AddCommand(newConfigCommand(a))
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (a *app) runDiff(cmd *cobra.Command, args []string) error {
	if len(args) != 2 {
		// A malformed invocation is not a failure: print help and exit cleanly.
		return cmd.Help()
	}
	input, output := args[0], args[1]

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	log := logger.WithComponent("cli")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := motion.FileOptions{
		Source:    video.Options{SequenceFPS: cfg.FPS},
		Precision: cfg.Precision,
	}

	var viewers preview.Multi
	if cfg.Window || cfg.Diff {
		window := preview.NewWindow(cfg.Window, cfg.Diff)
		defer window.Close()
		viewers = append(viewers, window)
	}
	if cfg.PreviewAddr != "" {
		server := preview.NewServer(preview.Options{Addr: cfg.PreviewAddr, MaxWidth: cfg.PreviewMax})
		if err := server.Start(); err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("preview server shutdown failed")
			}
		}()
		viewers = append(viewers, server)
		opts.Extra = append(opts.Extra, server.Records())
	}

	var pipelineOpts []motion.Option
	if len(viewers) > 0 {
		pipelineOpts = append(pipelineOpts, motion.WithViewer(viewers))
	}
	pipeline, err := motion.NewPipeline(cfg.Motion(), pipelineOpts...)
	if err != nil {
		return err
	}

	summary, err := pipeline.RunFile(ctx, input, output, opts)
	if err != nil {
		return errors.Wrapf(err, "diff of %s failed", input)
	}

	event := log.Info()
	if !cfg.Verbose {
		event = log.Debug()
	}
	event.
		Str("run_id", summary.RunID).
		Str("output", output).
		Int("records", summary.Records).
		Bool("interrupted", summary.Interrupted).
		Dur("duration", summary.Duration).
		Msg("diff complete")
	return nil
}
