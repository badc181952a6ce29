package converter

import "testing"

func TestIdentityTone(t *testing.T) {
	for _, v := range []int{0, 1, 84, 128, 200, 255} {
		if got := IdentityTone.Apply(v); got != v {
			t.Errorf("IdentityTone.Apply(%d) = %d", v, got)
		}
	}
}

func TestContrastStretch(t *testing.T) {
	tone := ToneCurve{ContrastPercent: 115}
	tests := []struct{ in, want int }{
		{128, 128},              // pivot unchanged
		{0, 0},                  // (0-128)*115/100+128 = -19, clamped
		{200, 210},              // (72*115)/100 = 82 -> 210
		{255, 255},              // clamped high
	}
	for _, tt := range tests {
		if got := tone.Apply(tt.in); got != tt.want {
			t.Errorf("contrast 115 Apply(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestBrightnessOffset(t *testing.T) {
	tone := ToneCurve{ContrastPercent: 100, Brightness: 10}
	if got := tone.Apply(100); got != 110 {
		t.Errorf("Apply(100) = %d, want 110", got)
	}
	if got := tone.Apply(250); got != 255 {
		t.Errorf("Apply(250) = %d, want 255 (clamped)", got)
	}
	dark := ToneCurve{ContrastPercent: 100, Brightness: -20}
	if got := dark.Apply(5); got != 0 {
		t.Errorf("Apply(5) with -20 = %d, want 0 (clamped)", got)
	}
}

func TestGammaEndpoints(t *testing.T) {
	tone := ToneCurve{ContrastPercent: 100, Gamma: true}
	if got := tone.Apply(0); got != 0 {
		t.Errorf("gamma(0) = %d, want 0", got)
	}
	if got := tone.Apply(255); got != 255 {
		t.Errorf("gamma(255) = %d, want 255", got)
	}
}

func TestGammaBrightensMidtones(t *testing.T) {
	tone := ToneCurve{ContrastPercent: 100, Gamma: true}
	prev := 0
	for v := 0; v <= 255; v += 5 {
		got := tone.Apply(v)
		if got < 0 || got > 255 {
			t.Fatalf("gamma(%d) = %d out of range", v, got)
		}
		if v > 0 && got < v {
			t.Errorf("gamma(%d) = %d, want >= input for sqrt curve", v, got)
		}
		if got < prev {
			t.Errorf("gamma not monotonic at %d: %d < %d", v, got, prev)
		}
		prev = got
	}
	// two Newton rounds from the input seed land near sqrt(128*255)
	if got := tone.Apply(128); got != 180 {
		t.Errorf("gamma(128) = %d, want 180", got)
	}
}

func TestToneOrderContrastThenBrightnessThenGamma(t *testing.T) {
	tone := ToneCurve{ContrastPercent: 115, Brightness: 10, Gamma: true}
	// 100 -> contrast: (100-128)*115/100+128 = 96 -> brightness: 106
	// -> gamma: x=106; x=(106+255)/2=180; x=(180+106*255/180)/2=165
	if got := tone.Apply(100); got != 165 {
		t.Errorf("DefaultTone pipeline Apply(100) = %d, want 165", got)
	}
}
