package pjpeg

import "io"

// chunkSize is how many compressed bytes are pulled from the source at a
// time. Keeping it small bounds the decoder's input-side memory the same
// way the firmware's read callback did.
const chunkSize = 512

// chunkReader refills a fixed buffer from the underlying reader and hands
// out one byte at a time. It never reads ahead more than one chunk.
type chunkReader struct {
	src    io.Reader
	buf    [chunkSize]byte
	pos    int
	filled int
}

func newChunkReader(src io.Reader) *chunkReader {
	return &chunkReader{src: src}
}

// readByte returns the next compressed byte, refilling from the source as
// needed. io.EOF is returned once the source is exhausted; callers decide
// whether that is a premature end.
func (c *chunkReader) readByte() (byte, error) {
	if c.pos >= c.filled {
		for {
			n, err := c.src.Read(c.buf[:])
			if n > 0 {
				c.pos = 0
				c.filled = n
				break
			}
			if err != nil {
				if err == io.ErrUnexpectedEOF {
					err = io.EOF
				}
				return 0, err
			}
		}
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

// readUint16 reads a big-endian 16-bit value, the byte order of every
// JPEG segment field.
func (c *chunkReader) readUint16() (int, error) {
	hi, err := c.readByte()
	if err != nil {
		return 0, err
	}
	lo, err := c.readByte()
	if err != nil {
		return 0, err
	}
	return int(hi)<<8 | int(lo), nil
}

// skip discards n bytes from the stream.
func (c *chunkReader) skip(n int) error {
	for i := 0; i < n; i++ {
		if _, err := c.readByte(); err != nil {
			return err
		}
	}
	return nil
}
