package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-videodiff/config"
	"github.com/nvr-ai/go-videodiff/video"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())

	cmd := NewRootCommand()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFrames(t *testing.T, dir string, values ...float64) {
	t.Helper()
	for i, v := range values {
		mat := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(v, v, v, 0), 6, 8, gocv.MatTypeCV8UC3)
		ok := gocv.IMWrite(filepath.Join(dir, fmt.Sprintf("frame-%04d.png", i+1)), mat)
		mat.Close()
		require.True(t, ok)
	}
}

func TestWrongArgumentCountPrintsUsage(t *testing.T) {
	for _, args := range [][]string{nil, {"only-input.mp4"}, {"a", "b", "c"}} {
		out, err := execute(t, args...)
		require.NoError(t, err, "args %v", args)
		assert.Contains(t, out, "videodiff [flags] <input> <output>")
		assert.Contains(t, out, "--grayscale")
	}
}

func TestRunWritesRecords(t *testing.T) {
	dir := t.TempDir()
	frames := filepath.Join(dir, "frames")
	require.NoError(t, os.Mkdir(frames, 0o755))
	writeFrames(t, frames, 0, 0, 255)
	output := filepath.Join(dir, "motion.csv")

	_, err := execute(t, "-g", "--fps", "10", "--log-level", "error", frames, output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "0.000000,0.000000\r\n0.100000,0.000000\r\n0.200000,100.000000\r\n", string(data))
}

func TestRunPrecisionFlag(t *testing.T) {
	dir := t.TempDir()
	frames := filepath.Join(dir, "frames")
	require.NoError(t, os.Mkdir(frames, 0o755))
	writeFrames(t, frames, 0, 255)
	output := filepath.Join(dir, "motion.csv")

	_, err := execute(t, "--precision", "2", "--fps", "4", "--log-level", "error", frames, output)
	require.NoError(t, err)

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, "0.00,0.00\r\n0.25,100.00\r\n", string(data))
}

func TestRunMissingInput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "motion.csv")

	_, err := execute(t, "--log-level", "error", filepath.Join(dir, "missing.mp4"), output)
	require.Error(t, err)
	assert.True(t, errors.Is(err, video.ErrSourceUnavailable))

	_, statErr := os.Stat(output)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunRejectsInvalidThreshold(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--threshold", "400", filepath.Join(dir, "in.mp4"), filepath.Join(dir, "out.csv"))
	assert.Error(t, err)
}

func TestConfigShow(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		out, err := execute(t, "config", "show")
		require.NoError(t, err)

		var cfg config.Config
		require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
		assert.Equal(t, config.Defaults(), cfg)
	})

	t.Run("json", func(t *testing.T) {
		out, err := execute(t, "config", "show", "--format", "json")
		require.NoError(t, err)

		var cfg config.Config
		require.NoError(t, json.Unmarshal([]byte(out), &cfg))
		assert.Equal(t, config.Defaults(), cfg)
	})

	t.Run("explicit file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "videodiff.yaml")
		require.NoError(t, os.WriteFile(path, []byte("threshold: 45\n"), 0o644))

		out, err := execute(t, "--config", path, "config", "show", "-f", "json")
		require.NoError(t, err)

		var cfg config.Config
		require.NoError(t, json.Unmarshal([]byte(out), &cfg))
		assert.Equal(t, 45.0, cfg.Threshold)
	})

	t.Run("environment", func(t *testing.T) {
		t.Setenv("VIDEODIFF_PRECISION", "3")
		out, err := execute(t, "config", "show", "-f", "json")
		require.NoError(t, err)

		var cfg config.Config
		require.NoError(t, json.Unmarshal([]byte(out), &cfg))
		assert.Equal(t, 3, cfg.Precision)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := execute(t, "config", "show", "--format", "toml")
		assert.Error(t, err)
	})
}

func TestConfigPath(t *testing.T) {
	out, err := execute(t, "config", "path", "--config", "/tmp/custom.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/custom.yaml\n", out)
}
