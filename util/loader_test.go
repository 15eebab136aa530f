package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrameNumber(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"frame-0001.jpg", 1, false},
		{"frame_0042.png", 42, false},
		{"17.bmp", 17, false},
		{"thumbnail.jpg", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFrameNumber(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadDirectoryImageFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"frame-10.jpg", "frame-2.jpg", "frame-1.PNG", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "frame-3.jpg"), 0o755))

	images, err := LoadDirectoryImageFiles(dir)
	require.NoError(t, err)
	require.Len(t, images, 3)

	assert.Equal(t, 1, images[0].Frame)
	assert.Equal(t, 2, images[1].Frame)
	assert.Equal(t, 10, images[2].Frame)
	assert.Equal(t, filepath.Join(dir, "frame-10.jpg"), images[2].Path)
}

func TestLoadDirectoryImageFilesRejectsUnnumbered(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cover.jpg"), []byte("x"), 0o644))

	_, err := LoadDirectoryImageFiles(dir)
	assert.Error(t, err)
}

func TestLoadDirectoryImageFilesMissingDir(t *testing.T) {
	_, err := LoadDirectoryImageFiles(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
