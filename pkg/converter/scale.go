package converter

// FitTarget computes the output size for aspect-preserving downscale into
// a bounding box, in pure integer math. At least one axis exactly fills
// its bound. Images already inside the box pass through unscaled.
func FitTarget(srcW, srcH, maxW, maxH int) (outW, outH int, scaled bool) {
	if srcW <= maxW && srcH <= maxH {
		return srcW, srcH, false
	}
	// compare srcW/maxW vs srcH/maxH without division
	if srcH*maxW <= srcW*maxH {
		outW = maxW
		outH = srcH * maxW / srcW
	} else {
		outH = maxH
		outW = srcW * maxH / srcH
	}
	if outW < 1 {
		outW = 1
	}
	if outH < 1 {
		outH = 1
	}
	return outW, outH, true
}

// rowScaler reduces source rows to output rows by area averaging with
// 16.16 fixed-point coordinate mapping. Products use uint64 so the
// arithmetic holds for sources up to the policy ceiling and beyond.
//
// Source rows are fed top to bottom; whenever the accumulated span
// crosses an output row boundary the caller flushes one averaged row.
type rowScaler struct {
	srcW, outW int
	outH       int
	scaleX     uint64 // 16.16 source pixels per output pixel
	scaleY     uint64
	sum        []uint32
	count      []uint32
	outY       int
	boundary   uint64 // 16.16 source Y where the current output row ends
}

func newRowScaler(srcW, srcH, outW, outH int) *rowScaler {
	s := &rowScaler{
		srcW:   srcW,
		outW:   outW,
		outH:   outH,
		scaleX: (uint64(srcW) << 16) / uint64(outW),
		scaleY: (uint64(srcH) << 16) / uint64(outH),
		sum:    make([]uint32, outW),
		count:  make([]uint32, outW),
	}
	s.boundary = s.scaleY
	return s
}

// accumulate folds one source row into the per-column accumulators.
func (s *rowScaler) accumulate(src []uint8) {
	for outX := 0; outX < s.outW; outX++ {
		start := int((uint64(outX) * s.scaleX) >> 16)
		end := int((uint64(outX+1) * s.scaleX) >> 16)
		if start >= s.srcW {
			continue
		}
		var sum, n uint32
		for sx := start; sx < end && sx < s.srcW; sx++ {
			sum += uint32(src[sx])
			n++
		}
		if n == 0 {
			// degenerate mapping, fall back to nearest sample
			sum = uint32(src[start])
			n = 1
		}
		s.sum[outX] += sum
		s.count[outX] += n
	}
}

// rowComplete reports whether feeding source row srcY finished the
// current output row.
func (s *rowScaler) rowComplete(srcY int) bool {
	return s.outY < s.outH && uint64(srcY+1)<<16 >= s.boundary
}

// flush writes the averaged output row into dst and resets the
// accumulators for the next one.
func (s *rowScaler) flush(dst []uint8) {
	for x := 0; x < s.outW; x++ {
		if s.count[x] > 0 {
			dst[x] = uint8(s.sum[x] / s.count[x])
		} else {
			dst[x] = 0
		}
		s.sum[x] = 0
		s.count[x] = 0
	}
	s.outY++
	s.boundary = uint64(s.outY+1) * s.scaleY
}
