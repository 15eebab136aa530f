package record

import (
	"bufio"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// DefaultPrecision matches the six decimals of a C "%f" rendering.
const DefaultPrecision = 6

// CSVWriter writes records as "<timestamp>,<percent>\r\n" lines with no header.
type CSVWriter struct {
	w         *bufio.Writer
	closer    io.Closer
	precision int
	line      []byte
	closed    bool
}

// NewCSVWriter wraps w. If w is an io.Closer it is closed by Close.
//
// Arguments:
//   - w: Destination of the record stream.
//   - precision: Decimal places for both fields; negative selects DefaultPrecision.
//
// Returns:
//   - *CSVWriter: The writer.
func NewCSVWriter(w io.Writer, precision int) *CSVWriter {
	if precision < 0 {
		precision = DefaultPrecision
	}
	c := &CSVWriter{
		w:         bufio.NewWriter(w),
		precision: precision,
		line:      make([]byte, 0, 64),
	}
	if closer, ok := w.(io.Closer); ok {
		c.closer = closer
	}
	return c
}

// Create opens path fresh, truncating any existing content.
func Create(path string, precision int) (*CSVWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, AsWriteError(errors.Wrapf(err, "failed to create output %q", path))
	}
	return NewCSVWriter(f, precision), nil
}

// Write appends one record line.
func (c *CSVWriter) Write(r Result) error {
	if c.closed {
		return AsWriteError(errors.New("csv writer closed"))
	}
	c.line = c.line[:0]
	c.line = strconv.AppendFloat(c.line, r.Timestamp, 'f', c.precision, 64)
	c.line = append(c.line, ',')
	c.line = strconv.AppendFloat(c.line, r.ChangedPercent, 'f', c.precision, 64)
	c.line = append(c.line, '\r', '\n')
	if _, err := c.w.Write(c.line); err != nil {
		return AsWriteError(errors.Wrap(err, "failed to write record"))
	}
	return nil
}

// Close flushes buffered lines and closes the destination. Later calls are no-ops.
func (c *CSVWriter) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true

	flushErr := c.w.Flush()
	var closeErr error
	if c.closer != nil {
		closeErr = c.closer.Close()
	}
	if flushErr != nil {
		return AsWriteError(errors.Wrap(flushErr, "failed to flush records"))
	}
	if closeErr != nil {
		return AsWriteError(errors.Wrap(closeErr, "failed to close output"))
	}
	return nil
}
