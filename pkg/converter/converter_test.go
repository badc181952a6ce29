package converter

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"

	"github.com/juicecultus/crosspoint-reader-x4/pkg/display"
)

// grayJPEG encodes a uniform grayscale cover fixture.
func grayJPEG(t *testing.T, w, h int, gray uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = gray
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}

// colorJPEG encodes a uniform color cover fixture.
func colorJPEG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := imaging.New(w, h, c)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}

func x4Config(t *testing.T) RenderConfig {
	t.Helper()
	profile, err := display.GetProfile("x4")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	return ConfigFromSettings(profile.RenderSettings())
}

func TestConvertStreamNoScaling(t *testing.T) {
	// 300x450 fits inside 480x800, so geometry passes through untouched
	data := grayJPEG(t, 300, 450, 140)
	cfg := x4Config(t)

	var out bytes.Buffer
	res, err := ConvertStream(bytes.NewReader(data), &out, cfg)
	if err != nil {
		t.Fatalf("ConvertStream: %v", err)
	}
	if res.Scaled {
		t.Error("Scaled = true, want false")
	}
	if res.OutputWidth != 300 || res.OutputHeight != 450 {
		t.Errorf("output = %dx%d, want 300x450", res.OutputWidth, res.OutputHeight)
	}

	b := out.Bytes()
	if got := binary.LittleEndian.Uint32(b[18:]); got != 300 {
		t.Errorf("BMP width = %d, want 300", got)
	}
	if got := int32(binary.LittleEndian.Uint32(b[22:])); got != -450 {
		t.Errorf("BMP height = %d, want -450", got)
	}
	if got := binary.LittleEndian.Uint16(b[28:]); got != 2 {
		t.Errorf("BMP depth = %d, want 2", got)
	}
	wantSize := 54 + 16 + rowStride(300, 2)*450
	if out.Len() != wantSize {
		t.Errorf("wrote %d bytes, want %d", out.Len(), wantSize)
	}
	if res.BytesWritten != int64(wantSize) {
		t.Errorf("BytesWritten = %d, want %d", res.BytesWritten, wantSize)
	}
	for i, gray := range []byte{0, 85, 170, 255} {
		if b[54+i*4] != gray {
			t.Errorf("palette[%d] = %d, want %d", i, b[54+i*4], gray)
		}
	}
}

func TestConvertStreamScalesToFit(t *testing.T) {
	data := colorJPEG(t, 1000, 1500, color.NRGBA{R: 120, G: 130, B: 140, A: 255})
	cfg := x4Config(t)

	var out bytes.Buffer
	res, err := ConvertStream(bytes.NewReader(data), &out, cfg)
	if err != nil {
		t.Fatalf("ConvertStream: %v", err)
	}
	if !res.Scaled {
		t.Error("Scaled = false, want true")
	}
	if res.OutputWidth != 480 || res.OutputHeight != 720 {
		t.Errorf("output = %dx%d, want 480x720", res.OutputWidth, res.OutputHeight)
	}
	wantSize := 54 + 16 + 120*720
	if out.Len() != wantSize {
		t.Errorf("wrote %d bytes, want %d", out.Len(), wantSize)
	}
}

func TestConvertStreamEightBitGrayValues(t *testing.T) {
	// uniform (120,130,140) reduces to (120*25+130*50+140*25)/100 = 130
	data := colorJPEG(t, 64, 64, color.NRGBA{R: 120, G: 130, B: 140, A: 255})
	cfg := x4Config(t)
	cfg.BitsPerPixel = 8
	cfg.Tone = IdentityTone

	var out bytes.Buffer
	if _, err := ConvertStream(bytes.NewReader(data), &out, cfg); err != nil {
		t.Fatalf("ConvertStream: %v", err)
	}
	img, err := bmp.Decode(bytes.NewReader(out.Bytes()))
	if err != nil {
		t.Fatalf("bmp.Decode: %v", err)
	}
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			got := int(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
			if got < 130-8 || got > 130+8 {
				t.Fatalf("pixel (%d,%d) = %d, want ~130", x, y, got)
			}
		}
	}
}

func TestConvertStreamTruncatedHeaderWritesNothing(t *testing.T) {
	data := grayJPEG(t, 300, 450, 90)
	var out bytes.Buffer
	_, err := ConvertStream(bytes.NewReader(data[:60]), &out, x4Config(t))
	if err == nil {
		t.Fatal("ConvertStream on truncated header succeeded")
	}
	if out.Len() != 0 {
		t.Errorf("wrote %d bytes for a failed conversion, want 0", out.Len())
	}
}

func TestConvertStreamRejectsOversized(t *testing.T) {
	data := grayJPEG(t, 2100, 32, 128)
	var out bytes.Buffer
	_, err := ConvertStream(bytes.NewReader(data), &out, x4Config(t))
	if err == nil {
		t.Fatal("oversized source accepted")
	}
	if out.Len() != 0 {
		t.Errorf("wrote %d bytes before rejecting, want 0", out.Len())
	}
}

func TestConvertStreamRejectsBadDepth(t *testing.T) {
	data := grayJPEG(t, 32, 32, 128)
	cfg := x4Config(t)
	cfg.BitsPerPixel = 4
	var out bytes.Buffer
	if _, err := ConvertStream(bytes.NewReader(data), &out, cfg); err == nil {
		t.Fatal("depth 4 accepted")
	}
	if out.Len() != 0 {
		t.Errorf("wrote %d bytes, want 0", out.Len())
	}
}

func TestConvertStreamAllDitherModes(t *testing.T) {
	data := grayJPEG(t, 96, 128, 100)
	for _, mode := range []display.DitherMode{
		display.DitherNone, display.DitherNoise, display.DitherAtkinson, display.DitherFloydSteinberg,
	} {
		t.Run(mode.String(), func(t *testing.T) {
			cfg := x4Config(t)
			cfg.Dither = mode
			var out bytes.Buffer
			res, err := ConvertStream(bytes.NewReader(data), &out, cfg)
			if err != nil {
				t.Fatalf("ConvertStream: %v", err)
			}
			want := 54 + 16 + rowStride(96, 2)*128
			if out.Len() != want || res.BytesWritten != int64(want) {
				t.Errorf("wrote %d bytes (reported %d), want %d", out.Len(), res.BytesWritten, want)
			}
		})
	}
}

func TestConverterConvert(t *testing.T) {
	tempDir := t.TempDir()
	inputFile := filepath.Join(tempDir, "cover.jpg")
	outputFile := filepath.Join(tempDir, "cover.bmp")
	if err := os.WriteFile(inputFile, grayJPEG(t, 300, 450, 160), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	profile, err := display.GetProfile("x4")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	conv := New(Options{
		InputPath:  inputFile,
		OutputPath: outputFile,
		Profile:    profile,
	})
	if err := conv.Convert(); err != nil {
		t.Fatalf("Convert: %v", err)
	}

	stat, err := os.Stat(outputFile)
	if err != nil {
		t.Fatalf("output not created: %v", err)
	}
	wantSize := int64(54 + 16 + rowStride(300, 2)*450)
	if stat.Size() != wantSize {
		t.Errorf("output size = %d, want %d", stat.Size(), wantSize)
	}

	stats := conv.GetStats()
	if stats.SourceWidth != 300 || stats.SourceHeight != 450 {
		t.Errorf("stats source = %dx%d, want 300x450", stats.SourceWidth, stats.SourceHeight)
	}
	if stats.OutputFileSize != uint64(wantSize) {
		t.Errorf("stats output size = %d, want %d", stats.OutputFileSize, wantSize)
	}
	if stats.InputFileSize == 0 {
		t.Error("stats input size = 0")
	}
}

func TestConverterRemovesPartialOutput(t *testing.T) {
	tempDir := t.TempDir()
	inputFile := filepath.Join(tempDir, "broken.jpg")
	outputFile := filepath.Join(tempDir, "broken.bmp")

	// cut deep into the entropy data so the failure happens mid-stream
	data := grayJPEG(t, 300, 450, 77)
	if err := os.WriteFile(inputFile, data[:len(data)/2], 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	profile, err := display.GetProfile("x4")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	conv := New(Options{InputPath: inputFile, OutputPath: outputFile, Profile: profile})
	if err := conv.Convert(); err == nil {
		t.Fatal("Convert on a truncated stream succeeded")
	}
	if _, err := os.Stat(outputFile); !os.IsNotExist(err) {
		t.Error("partial output file left behind")
	}
}

func TestPreflight(t *testing.T) {
	tempDir := t.TempDir()

	goodFile := filepath.Join(tempDir, "ok.jpg")
	if err := os.WriteFile(goodFile, grayJPEG(t, 300, 450, 128), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	w, h, err := Preflight(goodFile)
	if err != nil {
		t.Fatalf("Preflight: %v", err)
	}
	if w != 300 || h != 450 {
		t.Errorf("Preflight size = %dx%d, want 300x450", w, h)
	}

	textFile := filepath.Join(tempDir, "notes.txt")
	if err := os.WriteFile(textFile, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, _, err := Preflight(textFile); err == nil {
		t.Error("Preflight accepted a text file")
	}

	bigFile := filepath.Join(tempDir, "big.jpg")
	if err := os.WriteFile(bigFile, grayJPEG(t, 2100, 32, 128), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, _, err := Preflight(bigFile); err == nil {
		t.Error("Preflight accepted an oversized source")
	}
}

func TestConverterOverrides(t *testing.T) {
	profile, err := display.GetProfile("x4")
	if err != nil {
		t.Fatalf("GetProfile: %v", err)
	}
	conv := New(Options{
		Profile:      profile,
		BitsPerPixel: 1,
		Dither:       display.DitherNone,
		DitherSet:    true,
		NoTone:       true,
		MaxWidth:     200,
		MaxHeight:    300,
	})
	cfg := conv.renderConfig()
	if cfg.BitsPerPixel != 1 {
		t.Errorf("BitsPerPixel = %d, want 1", cfg.BitsPerPixel)
	}
	if cfg.Dither != display.DitherNone {
		t.Errorf("Dither = %v, want none", cfg.Dither)
	}
	if cfg.Tone != IdentityTone {
		t.Errorf("Tone = %+v, want identity", cfg.Tone)
	}
	if cfg.MaxWidth != 200 || cfg.MaxHeight != 300 {
		t.Errorf("bounds = %dx%d, want 200x300", cfg.MaxWidth, cfg.MaxHeight)
	}
}
