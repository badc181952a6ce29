package converter

import "testing"

func TestFitTarget(t *testing.T) {
	tests := []struct {
		name         string
		srcW, srcH   int
		maxW, maxH   int
		wantW, wantH int
		wantScaled   bool
	}{
		{"already within bounds", 300, 450, 480, 800, 300, 450, false},
		{"exact fit", 480, 800, 480, 800, 480, 800, false},
		{"portrait cover", 1000, 1500, 480, 800, 480, 720, true},
		{"width limited", 2000, 800, 480, 800, 480, 192, true},
		{"height limited", 600, 3000, 480, 800, 160, 800, true},
		{"tall sliver", 10, 3000, 480, 800, 2, 800, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h, scaled := FitTarget(tt.srcW, tt.srcH, tt.maxW, tt.maxH)
			if w != tt.wantW || h != tt.wantH || scaled != tt.wantScaled {
				t.Errorf("FitTarget(%dx%d into %dx%d) = %dx%d scaled=%v, want %dx%d scaled=%v",
					tt.srcW, tt.srcH, tt.maxW, tt.maxH, w, h, scaled, tt.wantW, tt.wantH, tt.wantScaled)
			}
		})
	}
}

func TestFitTargetFillsOneAxis(t *testing.T) {
	// at least one axis must exactly fill its bound for every downscale
	sizes := []struct{ w, h int }{
		{481, 100}, {100, 801}, {999, 1501}, {2048, 3072}, {700, 700},
	}
	for _, s := range sizes {
		w, h, scaled := FitTarget(s.w, s.h, 480, 800)
		if !scaled {
			t.Fatalf("FitTarget(%dx%d) reported no scaling", s.w, s.h)
		}
		if w != 480 && h != 800 {
			t.Errorf("FitTarget(%dx%d) = %dx%d, neither axis fills its bound", s.w, s.h, w, h)
		}
		if w > 480 || h > 800 {
			t.Errorf("FitTarget(%dx%d) = %dx%d exceeds the box", s.w, s.h, w, h)
		}
	}
}

func TestRowScalerAveragesBlocks(t *testing.T) {
	// 4x4 source, 2x2 output: each output pixel averages a 2x2 block
	s := newRowScaler(4, 4, 2, 2)
	rows := [][]uint8{
		{0, 0, 100, 100},
		{0, 0, 100, 100},
		{200, 200, 40, 40},
		{200, 200, 40, 40},
	}
	var out [][]uint8
	dst := make([]uint8, 2)
	for y, row := range rows {
		s.accumulate(row)
		if s.rowComplete(y) {
			s.flush(dst)
			out = append(out, append([]uint8(nil), dst...))
		}
	}
	if len(out) != 2 {
		t.Fatalf("flushed %d rows, want 2", len(out))
	}
	if out[0][0] != 0 || out[0][1] != 100 {
		t.Errorf("row 0 = %v, want [0 100]", out[0])
	}
	if out[1][0] != 200 || out[1][1] != 40 {
		t.Errorf("row 1 = %v, want [200 40]", out[1])
	}
}

func TestRowScalerFlushesExactlyOutH(t *testing.T) {
	// non-integer ratio: 7 source rows into 3 output rows
	s := newRowScaler(7, 7, 3, 3)
	row := make([]uint8, 7)
	for i := range row {
		row[i] = 128
	}
	flushed := 0
	dst := make([]uint8, 3)
	for y := 0; y < 7; y++ {
		s.accumulate(row)
		if s.rowComplete(y) {
			s.flush(dst)
			flushed++
		}
	}
	if flushed != 3 {
		t.Errorf("flushed %d rows, want 3", flushed)
	}
	for i, v := range dst {
		if v != 128 {
			t.Errorf("dst[%d] = %d, want 128", i, v)
		}
	}
}

func TestRowScalerUniformValuePreserved(t *testing.T) {
	// area averaging of a constant image must stay constant at any ratio
	s := newRowScaler(1000, 1500, 480, 720)
	row := make([]uint8, 1000)
	for i := range row {
		row[i] = 77
	}
	dst := make([]uint8, 480)
	flushed := 0
	for y := 0; y < 1500; y++ {
		s.accumulate(row)
		if s.rowComplete(y) {
			s.flush(dst)
			flushed++
			for x, v := range dst {
				if v != 77 {
					t.Fatalf("output row %d col %d = %d, want 77", flushed-1, x, v)
				}
			}
		}
	}
	if flushed != 720 {
		t.Errorf("flushed %d rows, want 720", flushed)
	}
}
