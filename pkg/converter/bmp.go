package converter

import (
	"fmt"
	"io"
)

const (
	bmpFileHeaderSize = 14
	bmpInfoHeaderSize = 40
	bmpPixelsPerMeter = 2835 // 72 DPI
)

// bmpEncoder writes an indexed grayscale BMP row by row. The height field
// is stored negative so rows go top-down, letting the pipeline emit each
// row as soon as it is complete instead of buffering the image.
type bmpEncoder struct {
	w            io.Writer
	width        int
	height       int
	bitsPerPixel int // 1, 2 or 8
	bytesPerRow  int
	colors       int
	rowBuf       []byte
	rowsWritten  int
	written      int64
}

// rowStride returns the 4-byte-aligned byte width of one pixel row.
func rowStride(width, bitsPerPixel int) int {
	return (width*bitsPerPixel + 31) / 32 * 4
}

// PredictSize returns the exact byte size of the BMP a conversion with
// this output geometry will produce.
func PredictSize(width, height, bitsPerPixel int) int {
	return bmpFileHeaderSize + bmpInfoHeaderSize + 4*(1<<uint(bitsPerPixel)) + rowStride(width, bitsPerPixel)*height
}

func newBMPEncoder(w io.Writer, width, height, bitsPerPixel int) (*bmpEncoder, error) {
	switch bitsPerPixel {
	case 1, 2, 8:
	default:
		return nil, fmt.Errorf("unsupported bit depth %d (1, 2 or 8)", bitsPerPixel)
	}
	e := &bmpEncoder{
		w:            w,
		width:        width,
		height:       height,
		bitsPerPixel: bitsPerPixel,
		bytesPerRow:  rowStride(width, bitsPerPixel),
		colors:       1 << uint(bitsPerPixel),
	}
	e.rowBuf = make([]byte, e.bytesPerRow)
	return e, nil
}

// fileSize returns the total BMP size in bytes, computable before any
// pixel is written.
func (e *bmpEncoder) fileSize() int {
	return bmpFileHeaderSize + bmpInfoHeaderSize + 4*e.colors + e.bytesPerRow*e.height
}

// bytesWritten returns the number of bytes emitted so far.
func (e *bmpEncoder) bytesWritten() int64 {
	return e.written
}

func setU16(b []byte, offset int, v uint32) {
	b[offset] = byte(v)
	b[offset+1] = byte(v >> 8)
}

func setU32(b []byte, offset int, v uint32) {
	b[offset] = byte(v)
	b[offset+1] = byte(v >> 8)
	b[offset+2] = byte(v >> 16)
	b[offset+3] = byte(v >> 24)
}

// writeHeader emits the file header, the info header and the grayscale
// palette. Must be called exactly once, before the first row.
func (e *bmpEncoder) writeHeader() error {
	var h [bmpFileHeaderSize + bmpInfoHeaderSize]byte

	// BITMAPFILEHEADER
	h[0] = 'B'
	h[1] = 'M'
	setU32(h[:], 2, uint32(e.fileSize()))
	setU32(h[:], 10, uint32(bmpFileHeaderSize+bmpInfoHeaderSize+4*e.colors))

	// BITMAPINFOHEADER
	setU32(h[:], 14, bmpInfoHeaderSize)
	setU32(h[:], 18, uint32(e.width))
	setU32(h[:], 22, uint32(-int32(e.height))) // negative height: top-down rows
	setU16(h[:], 26, 1)                        // planes
	setU16(h[:], 28, uint32(e.bitsPerPixel))
	setU32(h[:], 30, 0) // BI_RGB, no compression
	setU32(h[:], 34, uint32(e.bytesPerRow*e.height))
	setU32(h[:], 38, bmpPixelsPerMeter)
	setU32(h[:], 42, bmpPixelsPerMeter)
	setU32(h[:], 46, uint32(e.colors))
	setU32(h[:], 50, 0) // all colors important

	if err := e.writeAll(h[:]); err != nil {
		return fmt.Errorf("failed to write BMP header: %w", err)
	}

	// evenly spaced grayscale palette, black first
	palette := make([]byte, 4*e.colors)
	for i := 0; i < e.colors; i++ {
		gray := byte(i * 255 / (e.colors - 1))
		palette[i*4] = gray   // blue
		palette[i*4+1] = gray // green
		palette[i*4+2] = gray // red
	}
	if err := e.writeAll(palette); err != nil {
		return fmt.Errorf("failed to write BMP palette: %w", err)
	}
	return nil
}

// writeRow packs one row of palette indices and writes it with padding.
// levels must hold exactly width entries, each below the palette size.
func (e *bmpEncoder) writeRow(levels []uint8) error {
	if len(levels) != e.width {
		return fmt.Errorf("row has %d pixels, want %d", len(levels), e.width)
	}
	if e.rowsWritten >= e.height {
		return fmt.Errorf("row %d past image height %d", e.rowsWritten, e.height)
	}

	if e.bitsPerPixel == 8 {
		copy(e.rowBuf, levels)
		for i := e.width; i < e.bytesPerRow; i++ {
			e.rowBuf[i] = 0
		}
	} else {
		for i := range e.rowBuf {
			e.rowBuf[i] = 0
		}
		for x, level := range levels {
			bitPos := x * e.bitsPerPixel
			shift := uint(8 - e.bitsPerPixel - bitPos&7)
			e.rowBuf[bitPos>>3] |= level << shift
		}
	}

	if err := e.writeAll(e.rowBuf); err != nil {
		return fmt.Errorf("failed to write BMP row %d: %w", e.rowsWritten, err)
	}
	e.rowsWritten++
	return nil
}

// finish verifies that the number of rows and bytes written match the
// header's promise.
func (e *bmpEncoder) finish() error {
	if e.rowsWritten != e.height {
		return fmt.Errorf("wrote %d rows, header declares %d", e.rowsWritten, e.height)
	}
	if e.written != int64(e.fileSize()) {
		return fmt.Errorf("wrote %d bytes, header declares %d", e.written, e.fileSize())
	}
	return nil
}

func (e *bmpEncoder) writeAll(b []byte) error {
	n, err := e.w.Write(b)
	e.written += int64(n)
	if err != nil {
		return err
	}
	if n != len(b) {
		return io.ErrShortWrite
	}
	return nil
}
