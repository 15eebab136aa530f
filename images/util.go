// Package images - Small helpers for inspecting gocv matrices.
package images

import (
	"crypto/md5"
	"fmt"

	"gocv.io/x/gocv"
)

// Shape is the geometry of a Mat: rows, columns and channels per pixel.
type Shape struct {
	Rows     int `json:"rows"`
	Cols     int `json:"cols"`
	Channels int `json:"channels"`
}

// ShapeOf returns the shape of the given Mat. An empty Mat has the zero Shape.
func ShapeOf(mat gocv.Mat) Shape {
	if mat.Empty() {
		return Shape{}
	}
	return Shape{Rows: mat.Rows(), Cols: mat.Cols(), Channels: mat.Channels()}
}

// Pixels returns the number of pixel positions, ignoring channels.
func (s Shape) Pixels() int {
	return s.Rows * s.Cols
}

// String renders the shape as WIDTHxHEIGHTxCHANNELS.
func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Cols, s.Rows, s.Channels)
}

// ComputeMatChecksum generates a deterministic checksum for a Mat to verify idempotency.
//
// Arguments:
// - mat: The Mat to compute checksum for.
//
// Returns:
// - A hex-encoded MD5 checksum string.
//
// Example:
//
// ```go
//
//	before := ComputeMatChecksum(frame)
//	preprocessor.Normalize(frame, &dst)
//	after := ComputeMatChecksum(frame) // equal to before
//
// ```
func ComputeMatChecksum(mat gocv.Mat) string {
	if mat.Empty() {
		return "empty"
	}

	data, err := mat.DataPtrUint8()
	if err != nil {
		// Non-contiguous or non 8-bit data, hash a continuous copy instead.
		clone := mat.Clone()
		defer clone.Close()
		data = clone.ToBytes()
	}
	hash := md5.New()
	hash.Write(data)
	return fmt.Sprintf("%s:%x", ShapeOf(mat), hash.Sum(nil))
}
