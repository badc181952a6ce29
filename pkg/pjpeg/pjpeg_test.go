package pjpeg

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

// encodeGray builds a JPEG fixture from a grayscale image.
func encodeGray(t *testing.T, w, h int, fill func(x, y int) uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: fill(x, y)})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}

// decodeAll drains every MCU, assembling a full grayscale image from the
// R plane for comparison against the fixture.
func decodeAll(t *testing.T, d *Decoder) []uint8 {
	t.Helper()
	info := d.Info()
	out := make([]uint8, info.Width*info.Height)
	bpr := info.MCUWidth >> 3
	for my := 0; my < info.MCUsPerCol; my++ {
		for mx := 0; mx < info.MCUsPerRow; mx++ {
			if err := d.DecodeMCU(); err != nil {
				t.Fatalf("DecodeMCU(%d,%d): %v", mx, my, err)
			}
			plane := d.PlaneR()
			for by := 0; by < info.MCUHeight; by++ {
				y := my*info.MCUHeight + by
				if y >= info.Height {
					break
				}
				for bx := 0; bx < info.MCUWidth; bx++ {
					x := mx*info.MCUWidth + bx
					if x >= info.Width {
						continue
					}
					off := ((by>>3)*bpr+(bx>>3))*64 + (by&7)*8 + (bx&7)
					out[y*info.Width+x] = plane[off]
				}
			}
		}
	}
	return out
}

func TestDecodeGrayUniform(t *testing.T) {
	data := encodeGray(t, 64, 48, func(x, y int) uint8 { return 200 })

	d, err := NewDecoder(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}

	info := d.Info()
	if info.Width != 64 || info.Height != 48 {
		t.Errorf("dimensions = %dx%d, want 64x48", info.Width, info.Height)
	}
	if info.Components != 1 {
		t.Errorf("components = %d, want 1", info.Components)
	}
	if info.MCUWidth != 8 || info.MCUHeight != 8 {
		t.Errorf("MCU geometry = %dx%d, want 8x8", info.MCUWidth, info.MCUHeight)
	}
	if info.MCUsPerRow != 8 || info.MCUsPerCol != 6 {
		t.Errorf("MCU grid = %dx%d, want 8x6", info.MCUsPerRow, info.MCUsPerCol)
	}

	pix := decodeAll(t, d)
	for i, v := range pix {
		if diff(int(v), 200) > 4 {
			t.Fatalf("pixel %d = %d, want ~200", i, v)
		}
	}
}

func TestDecodeGrayMatchesStdlib(t *testing.T) {
	data := encodeGray(t, 40, 40, func(x, y int) uint8 {
		return uint8(x*3 + y*2) // smooth ramp, no hard edges
	})

	ref, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reference decode: %v", err)
	}

	d, err := NewDecoder(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	pix := decodeAll(t, d)

	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			want := color.GrayModel.Convert(ref.At(x, y)).(color.Gray).Y
			got := pix[y*40+x]
			if diff(int(got), int(want)) > 6 {
				t.Fatalf("pixel (%d,%d) = %d, reference %d", x, y, got, want)
			}
		}
	}
}

func TestDecodeColorUniform(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{R: 100, G: 150, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}

	d, err := NewDecoder(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	info := d.Info()
	if info.Components != 3 {
		t.Fatalf("components = %d, want 3", info.Components)
	}
	// stdlib encodes RGBA as 4:2:0
	if info.MCUWidth != 16 || info.MCUHeight != 16 {
		t.Errorf("MCU geometry = %dx%d, want 16x16", info.MCUWidth, info.MCUHeight)
	}

	for my := 0; my < info.MCUsPerCol; my++ {
		for mx := 0; mx < info.MCUsPerRow; mx++ {
			if err := d.DecodeMCU(); err != nil {
				t.Fatalf("DecodeMCU: %v", err)
			}
			r, g, b := d.PlaneR(), d.PlaneG(), d.PlaneB()
			for i := 0; i < info.MCUWidth*info.MCUHeight; i++ {
				if diff(int(r[i]), 100) > 8 || diff(int(g[i]), 150) > 8 || diff(int(b[i]), 200) > 8 {
					t.Fatalf("sample %d = (%d,%d,%d), want ~(100,150,200)", i, r[i], g[i], b[i])
				}
			}
		}
	}
}

func TestDecodeMCUPastEnd(t *testing.T) {
	data := encodeGray(t, 16, 16, func(x, y int) uint8 { return 128 })
	d, err := NewDecoder(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	decodeAll(t, d)
	if err := d.DecodeMCU(); !errors.Is(err, ErrNoMoreBlocks) {
		t.Errorf("DecodeMCU past end = %v, want ErrNoMoreBlocks", err)
	}
}

func TestNotJPEG(t *testing.T) {
	_, err := NewDecoder(bytes.NewReader([]byte("BM not a jpeg at all, honestly")))
	if !errors.Is(err, ErrNotJPEG) {
		t.Errorf("NewDecoder = %v, want ErrNotJPEG", err)
	}
}

func TestTruncatedHeader(t *testing.T) {
	data := encodeGray(t, 32, 32, func(x, y int) uint8 { return 90 })
	_, err := NewDecoder(bytes.NewReader(data[:20]))
	if err == nil {
		t.Fatal("NewDecoder on truncated header succeeded")
	}
	if !errors.Is(err, ErrSyntax) {
		t.Errorf("NewDecoder = %v, want ErrSyntax", err)
	}
}

func TestPrematureEntropyEnd(t *testing.T) {
	data := encodeGray(t, 64, 64, func(x, y int) uint8 {
		return uint8((x ^ y) * 4)
	})
	d, err := NewDecoder(bytes.NewReader(data[:len(data)-16]))
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	info := d.Info()
	var decodeErr error
	for i := 0; i < info.MCUsPerRow*info.MCUsPerCol; i++ {
		if decodeErr = d.DecodeMCU(); decodeErr != nil {
			break
		}
	}
	if decodeErr == nil {
		t.Fatal("decoding a truncated scan succeeded for every MCU")
	}
	if !errors.Is(decodeErr, ErrNoMoreBlocks) && !errors.Is(decodeErr, ErrSyntax) {
		t.Errorf("DecodeMCU = %v, want ErrNoMoreBlocks or ErrSyntax", decodeErr)
	}
}

func diff(a, b int) int {
	if a < b {
		return b - a
	}
	return a - b
}
