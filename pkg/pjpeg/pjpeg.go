// Package pjpeg decodes baseline JPEG streams one MCU at a time.
//
// Unlike image/jpeg it never materializes the whole image: the caller pulls
// MCUs in raster order and reads the decoded samples from small per-MCU
// planes. Input is consumed through a fixed 512-byte window, so peak memory
// is bounded by the MCU geometry regardless of image size. That is the
// contract a cover-thumbnail pipeline on a constrained device needs.
package pjpeg

import (
	"errors"
	"fmt"
	"io"
)

// Sentinel errors returned by the decoder.
var (
	// ErrNotJPEG means the stream does not start with an SOI marker.
	ErrNotJPEG = errors.New("pjpeg: not a JPEG stream")
	// ErrSyntax means the stream violates the JPEG syntax.
	ErrSyntax = errors.New("pjpeg: syntax error")
	// ErrUnsupported means the stream uses a feature outside baseline
	// sequential DCT (progressive, arithmetic coding, 12-bit, CMYK).
	ErrUnsupported = errors.New("pjpeg: unsupported JPEG feature")
	// ErrNoMoreBlocks means the entropy-coded data ended, either normally
	// at EOI or prematurely, before the requested MCU could be decoded.
	ErrNoMoreBlocks = errors.New("pjpeg: no more MCU blocks")
)

// zigzag maps scan order to natural (row-major) coefficient order.
var zigzag = [64]uint8{
	0, 1, 8, 16, 9, 2, 3, 10,
	17, 24, 32, 25, 18, 11, 4, 5,
	12, 19, 26, 33, 40, 48, 41, 34,
	27, 20, 13, 6, 7, 14, 21, 28,
	35, 42, 49, 56, 57, 50, 43, 36,
	29, 22, 15, 23, 30, 37, 44, 51,
	58, 59, 52, 45, 38, 31, 39, 46,
	53, 60, 61, 54, 47, 55, 62, 63,
}

// ImageInfo describes the frame and its MCU geometry.
type ImageInfo struct {
	Width      int
	Height     int
	Components int // 1 (grayscale) or 3 (YCbCr)
	MCUWidth   int // 8, 16
	MCUHeight  int // 8, 16
	MCUsPerRow int
	MCUsPerCol int
}

type component struct {
	id     uint8
	ssX    int // horizontal sampling factor
	ssY    int // vertical sampling factor
	qtSel  uint8
	dcTab  uint8
	acTab  uint8
	dcPred int32
	pix    []byte // ssX*ssY blocks of 64 samples
}

// Decoder is a streaming baseline JPEG decoder. It is not safe for
// concurrent use.
type Decoder struct {
	cr     *chunkReader
	info   ImageInfo
	comps  [3]component
	ncomp  int
	qt     [4][64]int32
	qtDef  [4]bool
	huff   [2][4]huffTable // indexed by class (0=DC, 1=AC) and table id
	ssxMax int
	ssyMax int

	restartInterval int
	restartsToGo    int
	nextRST         int

	bitBuf   byte
	bitCount int

	mcuIndex int
	mcuTotal int

	block  [64]int32
	planeR []byte
	planeG []byte
	planeB []byte
}

// NewDecoder reads the stream headers through the first SOS marker and
// returns a decoder positioned at the first MCU. The reader is consumed
// incrementally; nothing beyond the current 512-byte chunk is buffered.
func NewDecoder(r io.Reader) (*Decoder, error) {
	d := &Decoder{cr: newChunkReader(r)}
	if err := d.parseHeaders(); err != nil {
		return nil, err
	}
	return d, nil
}

// Info returns the frame dimensions and MCU geometry.
func (d *Decoder) Info() ImageInfo {
	return d.info
}

// PlaneR returns the red (or gray) samples of the most recently decoded
// MCU in block-interleaved layout: blockIndex*64 + localY*8 + localX,
// where blockIndex walks the MCU's 8x8 blocks in raster order. The slice
// is reused by the next DecodeMCU call.
func (d *Decoder) PlaneR() []byte { return d.planeR }

// PlaneG returns the green samples of the most recently decoded MCU.
// For grayscale streams it aliases PlaneR.
func (d *Decoder) PlaneG() []byte { return d.planeG }

// PlaneB returns the blue samples of the most recently decoded MCU.
// For grayscale streams it aliases PlaneR.
func (d *Decoder) PlaneB() []byte { return d.planeB }

// headerErr maps a read failure during header parsing.
func headerErr(err error) error {
	if err == io.EOF {
		return fmt.Errorf("truncated header: %w", ErrSyntax)
	}
	return err
}

func (d *Decoder) parseHeaders() error {
	b0, err := d.cr.readByte()
	if err != nil {
		return ErrNotJPEG
	}
	b1, err := d.cr.readByte()
	if err != nil {
		return ErrNotJPEG
	}
	if b0 != 0xff || b1 != 0xd8 {
		return ErrNotJPEG
	}

	for {
		b, err := d.cr.readByte()
		if err != nil {
			return headerErr(err)
		}
		if b != 0xff {
			return fmt.Errorf("expected marker, got 0x%02x: %w", b, ErrSyntax)
		}
		marker := byte(0xff)
		for marker == 0xff { // skip fill bytes
			marker, err = d.cr.readByte()
			if err != nil {
				return headerErr(err)
			}
		}

		switch {
		case marker == 0xc0 || marker == 0xc1: // baseline / extended sequential
			if err := d.parseSOF(); err != nil {
				return err
			}
		case marker == 0xc4:
			if err := d.parseDHT(); err != nil {
				return err
			}
		case marker == 0xc8 || marker == 0xcc:
			// JPG extension / DAC
			return fmt.Errorf("marker 0x%02x: %w", marker, ErrUnsupported)
		case marker >= 0xc2 && marker <= 0xcf:
			// progressive, lossless, arithmetic-coded frames
			return fmt.Errorf("marker 0x%02x: %w", marker, ErrUnsupported)
		case marker == 0xdb:
			if err := d.parseDQT(); err != nil {
				return err
			}
		case marker == 0xdd:
			if err := d.parseDRI(); err != nil {
				return err
			}
		case marker == 0xda:
			return d.parseSOS()
		case marker == 0xd9: // EOI before any scan
			return fmt.Errorf("EOI before SOS: %w", ErrSyntax)
		case marker >= 0xd0 && marker <= 0xd7: // stray RST, no payload
			return fmt.Errorf("restart marker outside scan: %w", ErrSyntax)
		case marker == 0x01:
			// TEM, no payload
		default:
			// APPn, COM and anything else with a length field
			if err := d.skipSegment(); err != nil {
				return err
			}
		}
	}
}

func (d *Decoder) skipSegment() error {
	length, err := d.cr.readUint16()
	if err != nil {
		return headerErr(err)
	}
	if length < 2 {
		return fmt.Errorf("segment length %d: %w", length, ErrSyntax)
	}
	if err := d.cr.skip(length - 2); err != nil {
		return headerErr(err)
	}
	return nil
}

func (d *Decoder) parseSOF() error {
	length, err := d.cr.readUint16()
	if err != nil {
		return headerErr(err)
	}
	precision, err := d.cr.readByte()
	if err != nil {
		return headerErr(err)
	}
	if precision != 8 {
		return fmt.Errorf("%d-bit samples: %w", precision, ErrUnsupported)
	}
	height, err := d.cr.readUint16()
	if err != nil {
		return headerErr(err)
	}
	width, err := d.cr.readUint16()
	if err != nil {
		return headerErr(err)
	}
	if width == 0 || height == 0 {
		return fmt.Errorf("zero frame dimension: %w", ErrSyntax)
	}
	ncomp, err := d.cr.readByte()
	if err != nil {
		return headerErr(err)
	}
	if ncomp != 1 && ncomp != 3 {
		return fmt.Errorf("%d components: %w", ncomp, ErrUnsupported)
	}
	if length != 8+3*int(ncomp) {
		return fmt.Errorf("SOF length %d: %w", length, ErrSyntax)
	}
	d.ncomp = int(ncomp)

	d.ssxMax, d.ssyMax = 0, 0
	for i := 0; i < d.ncomp; i++ {
		c := &d.comps[i]
		if c.id, err = d.cr.readByte(); err != nil {
			return headerErr(err)
		}
		ss, err := d.cr.readByte()
		if err != nil {
			return headerErr(err)
		}
		c.ssX = int(ss >> 4)
		c.ssY = int(ss & 0x0f)
		if c.ssX < 1 || c.ssX > 2 || c.ssY < 1 || c.ssY > 2 {
			return fmt.Errorf("sampling factor %dx%d: %w", c.ssX, c.ssY, ErrUnsupported)
		}
		if c.qtSel, err = d.cr.readByte(); err != nil {
			return headerErr(err)
		}
		if c.qtSel > 3 {
			return fmt.Errorf("quantization table %d: %w", c.qtSel, ErrSyntax)
		}
		if c.ssX > d.ssxMax {
			d.ssxMax = c.ssX
		}
		if c.ssY > d.ssyMax {
			d.ssyMax = c.ssY
		}
	}
	if d.ncomp == 1 {
		// a grayscale frame is always decoded as 8x8 MCUs
		d.comps[0].ssX, d.comps[0].ssY = 1, 1
		d.ssxMax, d.ssyMax = 1, 1
	} else if d.comps[0].ssX != d.ssxMax || d.comps[0].ssY != d.ssyMax {
		// chroma sampled denser than luma
		return fmt.Errorf("luma is not the densest component: %w", ErrUnsupported)
	}

	mcuW := d.ssxMax << 3
	mcuH := d.ssyMax << 3
	d.info = ImageInfo{
		Width:      width,
		Height:     height,
		Components: d.ncomp,
		MCUWidth:   mcuW,
		MCUHeight:  mcuH,
		MCUsPerRow: (width + mcuW - 1) / mcuW,
		MCUsPerCol: (height + mcuH - 1) / mcuH,
	}

	for i := 0; i < d.ncomp; i++ {
		c := &d.comps[i]
		c.pix = make([]byte, c.ssX*c.ssY*64)
	}
	if d.ncomp == 3 {
		d.planeR = make([]byte, mcuW*mcuH)
		d.planeG = make([]byte, mcuW*mcuH)
		d.planeB = make([]byte, mcuW*mcuH)
	} else {
		d.planeR = d.comps[0].pix
		d.planeG = d.planeR
		d.planeB = d.planeR
	}
	return nil
}

func (d *Decoder) parseDQT() error {
	length, err := d.cr.readUint16()
	if err != nil {
		return headerErr(err)
	}
	length -= 2
	for length > 0 {
		pq, err := d.cr.readByte()
		if err != nil {
			return headerErr(err)
		}
		if pq>>4 != 0 {
			return fmt.Errorf("16-bit quantization table: %w", ErrUnsupported)
		}
		id := pq & 0x0f
		if id > 3 {
			return fmt.Errorf("quantization table %d: %w", id, ErrSyntax)
		}
		for i := 0; i < 64; i++ {
			v, err := d.cr.readByte()
			if err != nil {
				return headerErr(err)
			}
			d.qt[id][zigzag[i]] = int32(v)
		}
		d.qtDef[id] = true
		length -= 65
	}
	if length != 0 {
		return fmt.Errorf("DQT length mismatch: %w", ErrSyntax)
	}
	return nil
}

func (d *Decoder) parseDHT() error {
	length, err := d.cr.readUint16()
	if err != nil {
		return headerErr(err)
	}
	length -= 2
	for length >= 17 {
		tc, err := d.cr.readByte()
		if err != nil {
			return headerErr(err)
		}
		class := int(tc >> 4)
		id := int(tc & 0x0f)
		if class > 1 || id > 3 {
			return fmt.Errorf("huffman table class %d id %d: %w", class, id, ErrSyntax)
		}
		h := &d.huff[class][id]
		total := 0
		for i := 0; i < 16; i++ {
			if h.counts[i], err = d.cr.readByte(); err != nil {
				return headerErr(err)
			}
			total += int(h.counts[i])
		}
		if total > 256 {
			return fmt.Errorf("huffman table with %d codes: %w", total, ErrSyntax)
		}
		for i := 0; i < total; i++ {
			if h.values[i], err = d.cr.readByte(); err != nil {
				return headerErr(err)
			}
		}
		if err := h.build(); err != nil {
			return err
		}
		length -= 17 + total
	}
	if length != 0 {
		return fmt.Errorf("DHT length mismatch: %w", ErrSyntax)
	}
	return nil
}

func (d *Decoder) parseDRI() error {
	length, err := d.cr.readUint16()
	if err != nil {
		return headerErr(err)
	}
	if length != 4 {
		return fmt.Errorf("DRI length %d: %w", length, ErrSyntax)
	}
	if d.restartInterval, err = d.cr.readUint16(); err != nil {
		return headerErr(err)
	}
	return nil
}

func (d *Decoder) parseSOS() error {
	if d.ncomp == 0 {
		return fmt.Errorf("SOS before SOF: %w", ErrSyntax)
	}
	length, err := d.cr.readUint16()
	if err != nil {
		return headerErr(err)
	}
	ns, err := d.cr.readByte()
	if err != nil {
		return headerErr(err)
	}
	if int(ns) != d.ncomp {
		return fmt.Errorf("non-interleaved scan: %w", ErrUnsupported)
	}
	if length != 6+2*d.ncomp {
		return fmt.Errorf("SOS length %d: %w", length, ErrSyntax)
	}
	for i := 0; i < d.ncomp; i++ {
		cs, err := d.cr.readByte()
		if err != nil {
			return headerErr(err)
		}
		var c *component
		for j := 0; j < d.ncomp; j++ {
			if d.comps[j].id == cs {
				c = &d.comps[j]
				break
			}
		}
		if c == nil {
			return fmt.Errorf("scan component %d not in frame: %w", cs, ErrSyntax)
		}
		sel, err := d.cr.readByte()
		if err != nil {
			return headerErr(err)
		}
		c.dcTab = sel >> 4
		c.acTab = sel & 0x0f
		if c.dcTab > 3 || c.acTab > 3 {
			return fmt.Errorf("huffman selector 0x%02x: %w", sel, ErrSyntax)
		}
	}
	// spectral selection and successive approximation must be the
	// baseline fixed values
	ss, err := d.cr.readByte()
	if err != nil {
		return headerErr(err)
	}
	se, err := d.cr.readByte()
	if err != nil {
		return headerErr(err)
	}
	ah, err := d.cr.readByte()
	if err != nil {
		return headerErr(err)
	}
	if ss != 0 || se != 63 || ah != 0 {
		return fmt.Errorf("spectral selection %d..%d: %w", ss, se, ErrUnsupported)
	}

	for i := 0; i < d.ncomp; i++ {
		c := &d.comps[i]
		if !d.qtDef[c.qtSel] {
			return fmt.Errorf("undefined quantization table %d: %w", c.qtSel, ErrSyntax)
		}
		which := 0
		if i > 0 {
			which = 1
		}
		if !d.huff[0][c.dcTab].defined {
			if err := d.huff[0][c.dcTab].loadDefault(0, which); err != nil {
				return err
			}
		}
		if !d.huff[1][c.acTab].defined {
			if err := d.huff[1][c.acTab].loadDefault(1, which); err != nil {
				return err
			}
		}
	}

	d.mcuTotal = d.info.MCUsPerRow * d.info.MCUsPerCol
	d.restartsToGo = d.restartInterval
	d.nextRST = 0
	return nil
}

// entropyErr maps a read failure inside the entropy-coded segment.
func entropyErr(err error) error {
	if err == io.EOF {
		return ErrNoMoreBlocks
	}
	return err
}

// entropyByte returns the next byte of entropy-coded data, unstuffing
// 0xFF00 pairs. Any real marker terminates the segment.
func (d *Decoder) entropyByte() (byte, error) {
	b, err := d.cr.readByte()
	if err != nil {
		return 0, entropyErr(err)
	}
	if b != 0xff {
		return b, nil
	}
	m, err := d.cr.readByte()
	if err != nil {
		return 0, entropyErr(err)
	}
	switch m {
	case 0x00:
		return 0xff, nil
	case 0xd9: // EOI
		return 0, ErrNoMoreBlocks
	default:
		return 0, fmt.Errorf("marker 0x%02x inside entropy data: %w", m, ErrSyntax)
	}
}

func (d *Decoder) readBit() (int32, error) {
	if d.bitCount == 0 {
		b, err := d.entropyByte()
		if err != nil {
			return 0, err
		}
		d.bitBuf = b
		d.bitCount = 8
	}
	d.bitCount--
	return int32(d.bitBuf>>uint(d.bitCount)) & 1, nil
}

// receive reads n raw bits MSB first.
func (d *Decoder) receive(n int) (int32, error) {
	v := int32(0)
	for i := 0; i < n; i++ {
		bit, err := d.readBit()
		if err != nil {
			return 0, err
		}
		v = v<<1 | bit
	}
	return v, nil
}

// extend sign-extends an n-bit magnitude per F.2.2.1.
func extend(v int32, n int) int32 {
	if v < 1<<uint(n-1) {
		return v - (1 << uint(n)) + 1
	}
	return v
}

// huffDecode reads one symbol bit by bit using the canonical tables.
func (d *Decoder) huffDecode(h *huffTable) (uint8, error) {
	code := int32(0)
	for l := 1; l <= 16; l++ {
		bit, err := d.readBit()
		if err != nil {
			return 0, err
		}
		code = code<<1 | bit
		if code <= h.maxcode[l] {
			return h.values[h.valptr[l]+code-h.mincode[l]], nil
		}
	}
	return 0, fmt.Errorf("invalid huffman code: %w", ErrSyntax)
}

// DecodeMCU decodes the next MCU in raster order into the sample planes.
// It returns ErrNoMoreBlocks once all MCUs have been decoded, or when the
// entropy-coded data ends prematurely.
func (d *Decoder) DecodeMCU() error {
	if d.mcuIndex >= d.mcuTotal {
		return ErrNoMoreBlocks
	}
	if d.restartInterval > 0 && d.restartsToGo == 0 {
		if err := d.processRestart(); err != nil {
			return err
		}
	}
	for i := 0; i < d.ncomp; i++ {
		c := &d.comps[i]
		for by := 0; by < c.ssY; by++ {
			for bx := 0; bx < c.ssX; bx++ {
				dst := c.pix[(by*c.ssX+bx)*64:]
				if err := d.decodeBlock(c, dst); err != nil {
					return err
				}
			}
		}
	}
	if d.ncomp == 3 {
		d.convertMCU()
	}
	d.mcuIndex++
	if d.restartInterval > 0 {
		d.restartsToGo--
	}
	return nil
}

// processRestart consumes an RSTn marker, resets the bit buffer and the
// DC predictors.
func (d *Decoder) processRestart() error {
	d.bitCount = 0
	b0, err := d.cr.readByte()
	if err != nil {
		return entropyErr(err)
	}
	b1, err := d.cr.readByte()
	if err != nil {
		return entropyErr(err)
	}
	if b0 != 0xff || b1 != byte(0xd0+d.nextRST) {
		return fmt.Errorf("expected RST%d, got 0x%02x%02x: %w", d.nextRST, b0, b1, ErrSyntax)
	}
	d.nextRST = (d.nextRST + 1) & 7
	d.restartsToGo = d.restartInterval
	for i := 0; i < d.ncomp; i++ {
		d.comps[i].dcPred = 0
	}
	return nil
}

// decodeBlock entropy-decodes, dequantizes and inverse-transforms one
// 8x8 block into 64 bytes of dst.
func (d *Decoder) decodeBlock(c *component, dst []byte) error {
	blk := &d.block
	for i := range blk {
		blk[i] = 0
	}
	qt := &d.qt[c.qtSel]

	sym, err := d.huffDecode(&d.huff[0][c.dcTab])
	if err != nil {
		return err
	}
	if sym > 11 {
		return fmt.Errorf("DC category %d: %w", sym, ErrSyntax)
	}
	if sym > 0 {
		bits, err := d.receive(int(sym))
		if err != nil {
			return err
		}
		c.dcPred += extend(bits, int(sym))
	}
	blk[0] = c.dcPred * qt[0]

	for k := 1; k < 64; {
		sym, err := d.huffDecode(&d.huff[1][c.acTab])
		if err != nil {
			return err
		}
		size := int(sym & 0x0f)
		run := int(sym >> 4)
		if size == 0 {
			if run != 15 {
				break // EOB
			}
			k += 16 // ZRL
			continue
		}
		k += run
		if k > 63 {
			return fmt.Errorf("coefficient index %d: %w", k, ErrSyntax)
		}
		bits, err := d.receive(size)
		if err != nil {
			return err
		}
		nat := zigzag[k]
		blk[nat] = extend(bits, size) * qt[nat]
		k++
	}

	for i := 0; i < 64; i += 8 {
		idctRow(blk[i : i+8])
	}
	for i := 0; i < 8; i++ {
		idctCol(blk[i:], dst[i:], 8)
	}
	return nil
}

// sample fetches a component sample at MCU-local coordinates, scaling
// down by the sampling ratio (nearest neighbor upsampling).
func (d *Decoder) sample(c *component, x, y int) byte {
	cx := x * c.ssX / d.ssxMax
	cy := y * c.ssY / d.ssyMax
	return c.pix[((cy>>3)*c.ssX+(cx>>3))*64+(cy&7)*8+(cx&7)]
}

// convertMCU upsamples chroma and converts the MCU to RGB, filling the
// block-interleaved planes.
func (d *Decoder) convertMCU() {
	mcuW := d.info.MCUWidth
	mcuH := d.info.MCUHeight
	bpr := mcuW >> 3
	for y := 0; y < mcuH; y++ {
		for x := 0; x < mcuW; x++ {
			off := ((y>>3)*bpr+(x>>3))*64 + (y&7)*8 + (x&7)
			yy := int32(d.comps[0].pix[off]) << 16
			cb := int32(d.sample(&d.comps[1], x, y)) - 128
			cr := int32(d.sample(&d.comps[2], x, y)) - 128
			d.planeR[off] = clamp8((yy + 91881*cr + 32768) >> 16)
			d.planeG[off] = clamp8((yy - 22554*cb - 46802*cr + 32768) >> 16)
			d.planeB[off] = clamp8((yy + 116130*cb + 32768) >> 16)
		}
	}
}
