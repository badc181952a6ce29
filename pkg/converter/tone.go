package converter

// ToneCurve adjusts grayscale values before quantization. The steps run
// in a fixed order: contrast stretch around mid-gray, brightness offset,
// then gamma correction. Each step clamps to [0,255] before the next.
type ToneCurve struct {
	ContrastPercent int  // 100 = identity; 0 disables the stretch
	Brightness      int  // signed offset
	Gamma           bool // sqrt response curve
}

// IdentityTone leaves pixels untouched.
var IdentityTone = ToneCurve{ContrastPercent: 100}

// DefaultTone is the firmware tuning for reflective panels.
var DefaultTone = ToneCurve{ContrastPercent: 115, Brightness: 10, Gamma: true}

func clampGray(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// Apply maps one grayscale value through the curve.
func (t ToneCurve) Apply(gray int) int {
	if t.ContrastPercent > 0 && t.ContrastPercent != 100 {
		gray = clampGray((gray-128)*t.ContrastPercent/100 + 128)
	}
	if t.Brightness != 0 {
		gray = clampGray(gray + t.Brightness)
	}
	if t.Gamma {
		gray = gammaSqrt(gray)
	}
	return gray
}

// gammaSqrt approximates sqrt(gray*255) with two Newton-Raphson rounds
// seeded from the input value. Integer-only, monotonic, and exact enough
// for 8-bit output.
func gammaSqrt(gray int) int {
	if gray <= 0 {
		return 0
	}
	product := gray * 255
	x := gray
	x = (x + product/x) >> 1
	x = (x + product/x) >> 1
	return clampGray(x)
}
