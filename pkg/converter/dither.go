package converter

import (
	"github.com/juicecultus/crosspoint-reader-x4/pkg/display"
)

// quantizer maps a tone-adjusted grayscale pixel to a palette level.
// Implementations are chosen once per conversion and fed pixels strictly
// left to right, top to bottom; advanceRow is called after each row.
type quantizer interface {
	pixel(gray, x, y int) uint8
	advanceRow()
}

// newQuantizer builds the quantizer for a dither mode. levelCount is the
// palette size (2 or 4); width is the output row width in pixels.
func newQuantizer(mode display.DitherMode, levelCount, width int, tone ToneCurve) quantizer {
	switch mode {
	case display.DitherNoise:
		return &noiseQuantizer{tone: tone, levels: levelCount}
	case display.DitherAtkinson:
		a := &atkinsonDitherer{tone: tone, levels: levelCount}
		for i := range a.rows {
			a.rows[i] = make([]int16, width+4)
		}
		return a
	case display.DitherFloydSteinberg:
		return &fsDitherer{
			tone:   tone,
			levels: levelCount,
			cur:    make([]int16, width+2),
			next:   make([]int16, width+2),
		}
	default:
		return &plainQuantizer{tone: tone, levels: levelCount}
	}
}

// quantizeLevel maps an adjusted gray value to a palette index.
func quantizeLevel(adjusted, levelCount int) uint8 {
	level := (adjusted * levelCount) >> 8
	if level >= levelCount {
		level = levelCount - 1
	}
	return uint8(level)
}

// reconstruct returns the gray value the panel will actually show for a
// palette index. Error diffusion works against this, not the bin center.
func reconstruct(level uint8, levelCount int) int {
	return int(level) * 255 / (levelCount - 1)
}

// plainQuantizer rounds every pixel independently.
type plainQuantizer struct {
	tone   ToneCurve
	levels int
}

func (q *plainQuantizer) pixel(gray, x, y int) uint8 {
	return quantizeLevel(q.tone.Apply(gray), q.levels)
}

func (q *plainQuantizer) advanceRow() {}

// noiseQuantizer perturbs the rounding threshold with a hash of the pixel
// position. No state between pixels, so output is stable under partial
// redraws and identical across runs.
type noiseQuantizer struct {
	tone   ToneCurve
	levels int
}

func (q *noiseQuantizer) pixel(gray, x, y int) uint8 {
	adjusted := q.tone.Apply(gray)
	hash := uint32(x)*374761393 + uint32(y)*668265263
	hash = (hash ^ (hash >> 13)) * 1274126177
	threshold := int(hash >> 24)

	scaled := adjusted * q.levels
	level := scaled >> 8
	if level < q.levels-1 && (scaled&0xff)+threshold >= 256 {
		level++
	}
	if level >= q.levels {
		level = q.levels - 1
	}
	return uint8(level)
}

func (q *noiseQuantizer) advanceRow() {}

// atkinsonDitherer diffuses 6/8 of the quantization error across three
// rows; the remaining quarter is dropped, which keeps highlights clean on
// e-ink. Error rows carry 2 pixels of slack on each side so distribution
// never needs bounds checks.
type atkinsonDitherer struct {
	tone   ToneCurve
	levels int
	rows   [3][]int16 // rows[0] is the current output row
}

func (a *atkinsonDitherer) pixel(gray, x, y int) uint8 {
	adjusted := clampGray(a.tone.Apply(gray) + int(a.rows[0][x+2]))
	level := quantizeLevel(adjusted, a.levels)
	err := int16(adjusted-reconstruct(level, a.levels)) >> 3

	a.rows[0][x+3] += err
	a.rows[0][x+4] += err
	a.rows[1][x+1] += err
	a.rows[1][x+2] += err
	a.rows[1][x+3] += err
	a.rows[2][x+2] += err
	return level
}

func (a *atkinsonDitherer) advanceRow() {
	spent := a.rows[0]
	a.rows[0] = a.rows[1]
	a.rows[1] = a.rows[2]
	a.rows[2] = spent
	for i := range a.rows[2] {
		a.rows[2][i] = 0
	}
}

// fsDitherer is serpentine Floyd-Steinberg: pixels always arrive left to
// right, but on odd rows the error weights are mirrored, which breaks up
// the diagonal worm artifacts of the plain scan order.
type fsDitherer struct {
	tone   ToneCurve
	levels int
	cur    []int16
	next   []int16
	row    int
}

func (f *fsDitherer) pixel(gray, x, y int) uint8 {
	adjusted := clampGray(f.tone.Apply(gray) + int(f.cur[x+1]))
	level := quantizeLevel(adjusted, f.levels)
	err := int16(adjusted - reconstruct(level, f.levels))

	if f.row&1 == 0 {
		f.cur[x+2] += err * 7 / 16
		f.next[x] += err * 3 / 16
		f.next[x+1] += err * 5 / 16
		f.next[x+2] += err / 16
	} else {
		f.cur[x] += err * 7 / 16
		f.next[x+2] += err * 3 / 16
		f.next[x+1] += err * 5 / 16
		f.next[x] += err / 16
	}
	return level
}

func (f *fsDitherer) advanceRow() {
	f.cur, f.next = f.next, f.cur
	for i := range f.next {
		f.next[i] = 0
	}
	f.row++
}
