package images

// Image is an encoded preview frame.
type Image struct {
	// The format of the image.
	Format ImageFormat `json:"format" yaml:"format"`
	// The data of the image.
	Data []byte `json:"data" yaml:"data"`
	// The width of the image.
	Width int `json:"width" yaml:"width"`
	// The height of the image.
	Height int `json:"height" yaml:"height"`
}

// ImageFormat represents supported image formats
type ImageFormat string

// ImageFormat constants
const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
)

// ParseFormat maps a format name or file extension to an ImageFormat.
func ParseFormat(s string) (ImageFormat, bool) {
	switch s {
	case "jpeg", "jpg", "":
		return FormatJPEG, true
	case "webp":
		return FormatWebP, true
	case "png":
		return FormatPNG, true
	default:
		return "", false
	}
}

// ContentType returns the MIME type of the format.
func (f ImageFormat) ContentType() string {
	switch f {
	case FormatWebP:
		return "image/webp"
	case FormatPNG:
		return "image/png"
	default:
		return "image/jpeg"
	}
}
