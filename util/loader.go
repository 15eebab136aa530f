package util

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ImageFile represents one numbered frame image on disk.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Frame is the frame number parsed from the file name.
	Frame int
}

// framePrefixes are the naming schemes produced by common extractors
// (frame-0001.jpg, frame_0001.jpg).
var framePrefixes = []string{"frame-", "frame_"}

// ParseFrameNumber extracts the frame number from a file name such as
// "frame-0042.jpg" or "frame_0042.png".
//
// Arguments:
// - name: Base name of the file.
//
// Returns:
// - int: The frame number.
// - error: Error if the name does not follow a known scheme.
func ParseFrameNumber(name string) (int, error) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	for _, prefix := range framePrefixes {
		if strings.HasPrefix(stem, prefix) {
			return strconv.Atoi(strings.TrimPrefix(stem, prefix))
		}
	}
	return strconv.Atoi(stem)
}

// LoadDirectoryImageFiles lists all frame images in a directory in frame order.
//
// Arguments:
// - dir: Directory path containing image files.
//
// Returns:
// - []ImageFile: The frames sorted by frame number.
// - error: Error if the directory cannot be read or a file name has no frame number.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var images []ImageFile
	for _, file := range files {
		if file.IsDir() {
			continue
		}

		switch strings.ToLower(filepath.Ext(file.Name())) {
		case ".jpg", ".jpeg", ".png", ".bmp":
			frame, err := ParseFrameNumber(file.Name())
			if err != nil {
				return nil, fmt.Errorf("file %q has no frame number: %w", file.Name(), err)
			}
			images = append(images, ImageFile{
				Path:  filepath.Join(dir, file.Name()),
				Frame: frame,
			})
		}
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].Frame < images[j].Frame
	})

	return images, nil
}
