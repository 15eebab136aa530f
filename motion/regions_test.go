package motion

import (
	"image"
	"slices"
	"testing"

	"github.com/nvr-ai/go-videodiff/images"
	"github.com/stretchr/testify/assert"
	"gocv.io/x/gocv"
)

// maskWithBlocks returns a rows x cols mask with the given rectangles set to 255.
func maskWithBlocks(rows, cols int, blocks ...image.Rectangle) gocv.Mat {
	mask := solidGray(rows, cols, 0)
	for _, b := range blocks {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				mask.SetUCharAt(y, x, 255)
			}
		}
	}
	return mask
}

func TestRegionExtractor(t *testing.T) {
	tests := []struct {
		name     string
		blocks   []image.Rectangle
		expected []Region
	}{
		{
			name:     "no changes",
			expected: nil,
		},
		{
			name:     "single block",
			blocks:   []image.Rectangle{image.Rect(3, 4, 5, 6)},
			expected: []Region{{X: 3, Y: 4, Width: 2, Height: 2}},
		},
		{
			name:   "two separate blocks",
			blocks: []image.Rectangle{image.Rect(0, 0, 2, 3), image.Rect(6, 6, 10, 8)},
			expected: []Region{
				{X: 0, Y: 0, Width: 2, Height: 3},
				{X: 6, Y: 6, Width: 4, Height: 2},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mask := maskWithBlocks(10, 10, tt.blocks...)
			defer mask.Close()

			regions := slices.Collect(RegionExtractor{}.Regions(mask))
			assert.ElementsMatch(t, tt.expected, regions)
		})
	}
}

func TestRegionExtractorDoesNotModifyMask(t *testing.T) {
	mask := maskWithBlocks(8, 8, image.Rect(1, 1, 4, 4), image.Rect(5, 5, 7, 7))
	defer mask.Close()

	before := images.ComputeMatChecksum(mask)
	_ = slices.Collect(RegionExtractor{}.Regions(mask))
	assert.Equal(t, before, images.ComputeMatChecksum(mask))
}

func TestRegionExtractorStopsEarly(t *testing.T) {
	mask := maskWithBlocks(12, 12, image.Rect(0, 0, 2, 2), image.Rect(5, 5, 7, 7), image.Rect(9, 9, 11, 11))
	defer mask.Close()

	count := 0
	for range (RegionExtractor{}).Regions(mask) {
		count++
		break
	}
	assert.Equal(t, 1, count)
}

func TestRegionExtractorEmptyMask(t *testing.T) {
	mask := gocv.NewMat()
	defer mask.Close()

	assert.Empty(t, slices.Collect(RegionExtractor{}.Regions(mask)))
}

func TestRegionRect(t *testing.T) {
	r := Region{X: 2, Y: 3, Width: 4, Height: 5}
	assert.Equal(t, image.Rect(2, 3, 6, 8), r.Rect())
}
