// Package config - Layered run configuration: defaults, an optional YAML file,
// VIDEODIFF_* environment variables and command line flags, in increasing
// order of precedence.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/nvr-ai/go-videodiff/motion"
	"github.com/nvr-ai/go-videodiff/record"
	"github.com/nvr-ai/go-videodiff/video"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. VIDEODIFF_THRESHOLD.
const EnvPrefix = "VIDEODIFF"

// Config is the effective configuration of a videodiff run.
type Config struct {
	Grayscale   bool    `mapstructure:"grayscale" yaml:"grayscale" json:"grayscale"`
	Verbose     bool    `mapstructure:"verbose" yaml:"verbose" json:"verbose"`
	Window      bool    `mapstructure:"window" yaml:"window" json:"window"`
	Diff        bool    `mapstructure:"diff" yaml:"diff" json:"diff"`
	Contours    bool    `mapstructure:"contours" yaml:"contours" json:"contours"`
	Threshold   float64 `mapstructure:"threshold" yaml:"threshold" json:"threshold"`
	BlurKernel  int     `mapstructure:"blur_kernel" yaml:"blur_kernel" json:"blur_kernel"`
	Precision   int     `mapstructure:"precision" yaml:"precision" json:"precision"`
	FPS         float64 `mapstructure:"fps" yaml:"fps" json:"fps"`
	PreviewAddr string  `mapstructure:"preview_addr" yaml:"preview_addr" json:"preview_addr"`
	PreviewMax  int     `mapstructure:"preview_max_width" yaml:"preview_max_width" json:"preview_max_width"`
	LogLevel    string  `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	LogPretty   bool    `mapstructure:"log_pretty" yaml:"log_pretty" json:"log_pretty"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Threshold:  motion.DefaultThreshold,
		BlurKernel: motion.DefaultBlurKernelSize,
		Precision:  record.DefaultPrecision,
		FPS:        video.DefaultSequenceFPS,
		PreviewMax: 640,
		LogLevel:   "info",
	}
}

// keys maps viper keys to the flag names bound to them. Flags use dashes,
// keys use underscores.
var keys = map[string]string{
	"grayscale":         "grayscale",
	"verbose":           "verbose",
	"window":            "window",
	"diff":              "diff",
	"contours":          "contours",
	"threshold":         "threshold",
	"blur_kernel":       "blur-kernel",
	"precision":         "precision",
	"fps":               "fps",
	"preview_addr":      "preview-addr",
	"preview_max_width": "preview-max-width",
	"log_level":         "log-level",
	"log_pretty":        "log-pretty",
}

// DefaultPath returns $HOME/.config/videodiff/config.yaml, or "" when there is no home.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "videodiff", "config.yaml")
}

// New returns a viper instance carrying the defaults and environment bindings.
func New() *viper.Viper {
	v := viper.New()
	d := Defaults()
	v.SetDefault("grayscale", d.Grayscale)
	v.SetDefault("verbose", d.Verbose)
	v.SetDefault("window", d.Window)
	v.SetDefault("diff", d.Diff)
	v.SetDefault("contours", d.Contours)
	v.SetDefault("threshold", d.Threshold)
	v.SetDefault("blur_kernel", d.BlurKernel)
	v.SetDefault("precision", d.Precision)
	v.SetDefault("fps", d.FPS)
	v.SetDefault("preview_addr", d.PreviewAddr)
	v.SetDefault("preview_max_width", d.PreviewMax)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_pretty", d.LogPretty)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds every flag of fs that has a matching config key.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for key, name := range keys {
		flag := fs.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return errors.Wrapf(err, "failed to bind flag --%s", name)
		}
	}
	return nil
}

// Load reads the layered configuration. An explicit file must exist; the
// default file is optional.
//
// Arguments:
//   - v: Viper instance from New, flags already bound.
//   - file: Explicit config file, or "" for DefaultPath.
//
// Returns:
//   - Config: The validated configuration.
//   - error: An error if the file cannot be read or a value is invalid.
func Load(v *viper.Viper, file string) (Config, error) {
	path := file
	if path == "" {
		path = DefaultPath()
	}

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			missing := errors.Is(err, os.ErrNotExist)
			var notFound viper.ConfigFileNotFoundError
			if errors.As(err, &notFound) {
				missing = true
			}
			if file != "" || !missing {
				return Config{}, errors.Wrapf(err, "failed to read config %s", path)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the values a run cannot start with.
func (c Config) Validate() error {
	if err := c.Motion().Validate(); err != nil {
		return err
	}
	if c.Precision < 0 || c.Precision > 17 {
		return errors.Errorf("precision %d outside [0, 17]", c.Precision)
	}
	if c.FPS < 0 {
		return errors.Errorf("fps %v must not be negative", c.FPS)
	}
	return nil
}

// Motion converts to the immutable pipeline configuration. The window flag
// previews the original frame, the diff flag the binarized diff. A preview
// server needs both.
func (c Config) Motion() motion.Config {
	serving := c.PreviewAddr != ""
	return motion.Config{
		Grayscale:      c.Grayscale,
		Verbose:        c.Verbose,
		ShowOriginal:   c.Window || serving,
		ShowDiff:       c.Diff || serving,
		ShowContours:   c.Contours,
		Threshold:      c.Threshold,
		BlurKernelSize: c.BlurKernel,
	}
}

// Previewing reports whether any preview collaborator is needed.
func (c Config) Previewing() bool {
	return c.Window || c.Diff || c.PreviewAddr != ""
}
