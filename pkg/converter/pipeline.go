package converter

import (
	"fmt"
	"io"

	"github.com/juicecultus/crosspoint-reader-x4/pkg/display"
	"github.com/juicecultus/crosspoint-reader-x4/pkg/pjpeg"
)

// Safety ceilings. Sources beyond these are rejected before any pixel is
// decoded; they bound the single MCU row buffer the pipeline holds.
const (
	MaxImageWidth  = 2048
	MaxImageHeight = 3072
	maxMCURowBytes = 64 * 1024
)

// RenderConfig parameterizes one streaming conversion.
type RenderConfig struct {
	BitsPerPixel int // 1, 2 or 8
	Dither       display.DitherMode
	Tone         ToneCurve
	Prescale     bool // fit into MaxWidth x MaxHeight before quantizing
	MaxWidth     int
	MaxHeight    int
}

// ConfigFromSettings derives a RenderConfig from a display profile's
// render settings.
func ConfigFromSettings(s display.RenderSettings) RenderConfig {
	return RenderConfig{
		BitsPerPixel: s.BitsPerPixel,
		Dither:       s.Dither,
		Tone: ToneCurve{
			ContrastPercent: s.ContrastPercent,
			Brightness:      s.BrightnessBoost,
			Gamma:           s.Gamma,
		},
		Prescale:  s.Prescale,
		MaxWidth:  s.MaxWidth,
		MaxHeight: s.MaxHeight,
	}
}

// RenderResult describes a finished conversion.
type RenderResult struct {
	SourceWidth  int
	SourceHeight int
	OutputWidth  int
	OutputHeight int
	Scaled       bool
	BytesWritten int64
}

// ConvertStream decodes a baseline JPEG from r and writes an indexed BMP
// to w. The whole conversion is row-streamed: at any moment only one MCU
// row of grayscale, the dither error rows and one packed output row are
// alive. On error the sink may hold a partial file; the caller owns
// discarding it.
func ConvertStream(r io.Reader, w io.Writer, cfg RenderConfig) (RenderResult, error) {
	var res RenderResult

	dec, err := pjpeg.NewDecoder(r)
	if err != nil {
		return res, fmt.Errorf("failed to parse JPEG: %w", err)
	}
	info := dec.Info()
	res.SourceWidth = info.Width
	res.SourceHeight = info.Height

	if info.Width > MaxImageWidth || info.Height > MaxImageHeight {
		return res, fmt.Errorf("source %dx%d exceeds limit %dx%d",
			info.Width, info.Height, MaxImageWidth, MaxImageHeight)
	}
	mcuRowBytes := info.Width * info.MCUHeight
	if mcuRowBytes > maxMCURowBytes {
		return res, fmt.Errorf("MCU row of %d bytes exceeds %d byte budget", mcuRowBytes, maxMCURowBytes)
	}

	outW, outH := info.Width, info.Height
	scaled := false
	if cfg.Prescale {
		outW, outH, scaled = FitTarget(info.Width, info.Height, cfg.MaxWidth, cfg.MaxHeight)
	}
	res.OutputWidth = outW
	res.OutputHeight = outH
	res.Scaled = scaled

	enc, err := newBMPEncoder(w, outW, outH, cfg.BitsPerPixel)
	if err != nil {
		return res, err
	}

	// All working buffers live for exactly this conversion.
	mcuRow := make([]byte, mcuRowBytes)
	levels := make([]uint8, outW)
	var quant quantizer
	if cfg.BitsPerPixel != 8 {
		quant = newQuantizer(cfg.Dither, 1<<uint(cfg.BitsPerPixel), outW, cfg.Tone)
	}
	var scaler *rowScaler
	var scaledRow []uint8
	if scaled {
		scaler = newRowScaler(info.Width, info.Height, outW, outH)
		scaledRow = make([]uint8, outW)
	}

	if err := enc.writeHeader(); err != nil {
		return res, err
	}
	res.BytesWritten = enc.bytesWritten()

	outY := 0
	emitRow := func(gray []uint8) error {
		if quant == nil {
			for x, g := range gray {
				levels[x] = uint8(cfg.Tone.Apply(int(g)))
			}
		} else {
			for x, g := range gray {
				levels[x] = quant.pixel(int(g), x, outY)
			}
			quant.advanceRow()
		}
		outY++
		err := enc.writeRow(levels)
		res.BytesWritten = enc.bytesWritten()
		return err
	}

	for mcuY := 0; mcuY < info.MCUsPerCol; mcuY++ {
		for mcuX := 0; mcuX < info.MCUsPerRow; mcuX++ {
			if err := dec.DecodeMCU(); err != nil {
				res.BytesWritten = enc.bytesWritten()
				return res, fmt.Errorf("failed to decode MCU (%d,%d): %w", mcuX, mcuY, err)
			}
			grayReduce(dec, info, mcuX, mcuRow)
		}
		for ry := 0; ry < info.MCUHeight; ry++ {
			srcY := mcuY*info.MCUHeight + ry
			if srcY >= info.Height {
				break
			}
			row := mcuRow[ry*info.Width : (ry+1)*info.Width]
			if scaler == nil {
				if err := emitRow(row); err != nil {
					return res, err
				}
				continue
			}
			scaler.accumulate(row)
			if scaler.rowComplete(srcY) {
				scaler.flush(scaledRow)
				if err := emitRow(scaledRow); err != nil {
					return res, err
				}
			}
		}
	}

	if err := enc.finish(); err != nil {
		return res, err
	}
	res.BytesWritten = enc.bytesWritten()
	return res, nil
}

// grayReduce converts the current MCU's samples to grayscale and writes
// them into the MCU row buffer at the MCU's horizontal position. The
// 25/50/25 luminance weights are the firmware's, kept so output matches
// the device byte for byte.
func grayReduce(dec *pjpeg.Decoder, info pjpeg.ImageInfo, mcuX int, mcuRow []byte) {
	pr, pg, pb := dec.PlaneR(), dec.PlaneG(), dec.PlaneB()
	bpr := info.MCUWidth >> 3
	for by := 0; by < info.MCUHeight; by++ {
		rowBase := by * info.Width
		for bx := 0; bx < info.MCUWidth; bx++ {
			x := mcuX*info.MCUWidth + bx
			if x >= info.Width {
				break
			}
			off := ((by>>3)*bpr+(bx>>3))*64 + (by&7)*8 + (bx&7)
			if info.Components == 1 {
				mcuRow[rowBase+x] = pr[off]
			} else {
				mcuRow[rowBase+x] = uint8((int(pr[off])*25 + int(pg[off])*50 + int(pb[off])*25) / 100)
			}
		}
	}
}
