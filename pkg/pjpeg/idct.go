package pjpeg

// Fixed-point AAN-style inverse DCT, same constants as the NanoJPEG
// family of decoders. Operates on a 64-coefficient block in natural
// order and writes clamped 8-bit samples.

const (
	idctW1 = 2841 // 2048*sqrt(2)*cos(1*pi/16)
	idctW2 = 2676 // 2048*sqrt(2)*cos(2*pi/16)
	idctW3 = 2408 // 2048*sqrt(2)*cos(3*pi/16)
	idctW5 = 1609 // 2048*sqrt(2)*cos(5*pi/16)
	idctW6 = 1108 // 2048*sqrt(2)*cos(6*pi/16)
	idctW7 = 565  // 2048*sqrt(2)*cos(7*pi/16)
)

func clamp8(v int32) byte {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

// idctRow transforms one row of 8 coefficients in place.
func idctRow(blk []int32) {
	x1 := blk[4] << 11
	x2 := blk[6]
	x3 := blk[2]
	x4 := blk[1]
	x5 := blk[7]
	x6 := blk[5]
	x7 := blk[3]
	if x1|x2|x3|x4|x5|x6|x7 == 0 {
		dc := blk[0] << 3
		for i := 0; i < 8; i++ {
			blk[i] = dc
		}
		return
	}
	x0 := (blk[0] << 11) + 128

	x8 := idctW7 * (x4 + x5)
	x4 = x8 + (idctW1-idctW7)*x4
	x5 = x8 - (idctW1+idctW7)*x5
	x8 = idctW3 * (x6 + x7)
	x6 = x8 - (idctW3-idctW5)*x6
	x7 = x8 - (idctW3+idctW5)*x7

	x8 = x0 + x1
	x0 -= x1
	x1 = idctW6 * (x3 + x2)
	x2 = x1 - (idctW2+idctW6)*x2
	x3 = x1 + (idctW2-idctW6)*x3
	x1 = x4 + x6
	x4 -= x6
	x6 = x5 + x7
	x5 -= x7
	x7 = x8 + x3
	x8 -= x3
	x3 = x0 + x2
	x0 -= x2
	x2 = (181*(x4+x5) + 128) >> 8
	x4 = (181*(x4-x5) + 128) >> 8

	blk[0] = (x7 + x1) >> 8
	blk[1] = (x3 + x2) >> 8
	blk[2] = (x0 + x4) >> 8
	blk[3] = (x8 + x6) >> 8
	blk[4] = (x8 - x6) >> 8
	blk[5] = (x0 - x4) >> 8
	blk[6] = (x3 - x2) >> 8
	blk[7] = (x7 - x1) >> 8
}

// idctCol transforms one column (stride 8 within the block) and writes
// the level-shifted samples into out at the given stride.
func idctCol(blk []int32, out []byte, stride int) {
	x1 := blk[8*4] << 8
	x2 := blk[8*6]
	x3 := blk[8*2]
	x4 := blk[8*1]
	x5 := blk[8*7]
	x6 := blk[8*5]
	x7 := blk[8*3]
	if x1|x2|x3|x4|x5|x6|x7 == 0 {
		dc := clamp8(((blk[0] + 32) >> 6) + 128)
		for i := 0; i < 8; i++ {
			out[i*stride] = dc
		}
		return
	}
	x0 := (blk[0] << 8) + 8192

	x8 := idctW7*(x4+x5) + 4
	x4 = (x8 + (idctW1-idctW7)*x4) >> 3
	x5 = (x8 - (idctW1+idctW7)*x5) >> 3
	x8 = idctW3*(x6+x7) + 4
	x6 = (x8 - (idctW3-idctW5)*x6) >> 3
	x7 = (x8 - (idctW3+idctW5)*x7) >> 3

	x8 = x0 + x1
	x0 -= x1
	x1 = idctW6*(x3+x2) + 4
	x2 = (x1 - (idctW2+idctW6)*x2) >> 3
	x3 = (x1 + (idctW2-idctW6)*x3) >> 3
	x1 = x4 + x6
	x4 -= x6
	x6 = x5 + x7
	x5 -= x7
	x7 = x8 + x3
	x8 -= x3
	x3 = x0 + x2
	x0 -= x2
	x2 = (181*(x4+x5) + 128) >> 8
	x4 = (181*(x4-x5) + 128) >> 8

	out[0*stride] = clamp8(((x7 + x1) >> 14) + 128)
	out[1*stride] = clamp8(((x3 + x2) >> 14) + 128)
	out[2*stride] = clamp8(((x0 + x4) >> 14) + 128)
	out[3*stride] = clamp8(((x8 + x6) >> 14) + 128)
	out[4*stride] = clamp8(((x8 - x6) >> 14) + 128)
	out[5*stride] = clamp8(((x0 - x4) >> 14) + 128)
	out[6*stride] = clamp8(((x3 - x2) >> 14) + 128)
	out[7*stride] = clamp8(((x7 - x1) >> 14) + 128)
}
