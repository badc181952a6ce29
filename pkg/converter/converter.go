package converter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fumiama/imgsz"

	"github.com/juicecultus/crosspoint-reader-x4/pkg/display"
)

// Options contains conversion settings.
type Options struct {
	InputPath  string
	OutputPath string
	Profile    display.Profile

	// Overrides; zero values defer to the profile
	BitsPerPixel int
	Dither       display.DitherMode
	DitherSet    bool // distinguishes explicit DitherNone from "use profile"
	NoTone       bool
	MaxWidth     int
	MaxHeight    int

	Verbose bool
}

// Converter handles the JPEG cover to indexed BMP conversion process.
type Converter struct {
	options   Options
	stats     ConversionStats
	startTime time.Time
}

// ConversionStats tracks conversion metrics.
type ConversionStats struct {
	InputFileSize  uint64
	OutputFileSize uint64
	SourceWidth    int
	SourceHeight   int
	OutputWidth    int
	OutputHeight   int
	Scaled         bool
	ProcessingTime time.Duration
}

// New creates a new converter instance.
func New(opts Options) *Converter {
	return &Converter{
		options:   opts,
		startTime: time.Now(),
	}
}

// renderConfig resolves the profile settings and per-call overrides.
func (c *Converter) renderConfig() RenderConfig {
	cfg := ConfigFromSettings(c.options.Profile.RenderSettings())
	if c.options.BitsPerPixel != 0 {
		cfg.BitsPerPixel = c.options.BitsPerPixel
	}
	if c.options.DitherSet {
		cfg.Dither = c.options.Dither
	}
	if c.options.NoTone {
		cfg.Tone = IdentityTone
	}
	if c.options.MaxWidth != 0 {
		cfg.MaxWidth = c.options.MaxWidth
	}
	if c.options.MaxHeight != 0 {
		cfg.MaxHeight = c.options.MaxHeight
	}
	return cfg
}

// Preflight sniffs the image header without decoding and rejects inputs
// the pipeline would refuse anyway: wrong formats and sources past the
// safety ceilings. Cheap enough to run on every file during a batch walk.
func Preflight(path string) (width, height int, err error) {
	in, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	sz, format, err := imgsz.DecodeSize(in)
	if err != nil {
		return 0, 0, fmt.Errorf("unrecognized image format: %w", err)
	}
	if format != "jpeg" {
		return 0, 0, fmt.Errorf("unsupported input format %q (only JPEG covers)", format)
	}
	if sz.Width > MaxImageWidth || sz.Height > MaxImageHeight {
		return 0, 0, fmt.Errorf("source %dx%d exceeds limit %dx%d",
			sz.Width, sz.Height, MaxImageWidth, MaxImageHeight)
	}
	return sz.Width, sz.Height, nil
}

// Convert performs the JPEG to BMP conversion. A failed conversion never
// leaves a partial output file behind.
func (c *Converter) Convert() error {
	inputStat, err := os.Stat(c.options.InputPath)
	if err != nil {
		return fmt.Errorf("failed to stat input: %w", err)
	}
	c.stats.InputFileSize = uint64(inputStat.Size())

	if _, _, err := Preflight(c.options.InputPath); err != nil {
		return err
	}

	cfg := c.renderConfig()
	if c.options.Verbose {
		fmt.Printf("Converting %s to %s\n", c.options.InputPath, c.options.OutputPath)
		fmt.Printf("Target display: %s (%s)\n", c.options.Profile.Name, c.options.Profile.Manufacturer)
		fmt.Printf("Depth %d-bit, dither %s\n", cfg.BitsPerPixel, cfg.Dither)
	}

	in, err := os.Open(c.options.InputPath)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(c.options.OutputPath)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}

	res, err := ConvertStream(in, out, cfg)
	if err != nil {
		out.Close()
		os.Remove(c.options.OutputPath)
		return fmt.Errorf("conversion failed: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(c.options.OutputPath)
		return fmt.Errorf("failed to finalize output: %w", err)
	}

	c.stats.SourceWidth = res.SourceWidth
	c.stats.SourceHeight = res.SourceHeight
	c.stats.OutputWidth = res.OutputWidth
	c.stats.OutputHeight = res.OutputHeight
	c.stats.Scaled = res.Scaled
	c.stats.OutputFileSize = uint64(res.BytesWritten)
	c.stats.ProcessingTime = time.Since(c.startTime)

	if c.options.Verbose {
		c.displayResults()
	}
	return nil
}

// ConvertTo streams the conversion to an arbitrary sink instead of a
// file. The caller owns discarding partial output on error.
func (c *Converter) ConvertTo(w io.Writer) (RenderResult, error) {
	in, err := os.Open(c.options.InputPath)
	if err != nil {
		return RenderResult{}, fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()
	return ConvertStream(in, w, c.renderConfig())
}

// displayResults shows the conversion results.
func (c *Converter) displayResults() {
	fmt.Printf("\nConversion completed successfully\n")
	fmt.Printf("================================================================\n")
	fmt.Printf("Cover Conversion Summary\n")
	fmt.Printf("================================================================\n")

	fmt.Printf("Input:          %s (%s)\n", filepath.Base(c.options.InputPath), humanize.Bytes(c.stats.InputFileSize))
	fmt.Printf("Output:         %s (%s)\n", filepath.Base(c.options.OutputPath), humanize.Bytes(c.stats.OutputFileSize))

	if c.stats.Scaled {
		fmt.Printf("Geometry:       %dx%d scaled to %dx%d\n",
			c.stats.SourceWidth, c.stats.SourceHeight, c.stats.OutputWidth, c.stats.OutputHeight)
	} else {
		fmt.Printf("Geometry:       %dx%d (no scaling needed)\n", c.stats.SourceWidth, c.stats.SourceHeight)
	}
	fmt.Printf("Target display: %s\n", c.options.Profile.Name)
	fmt.Printf("Processing:     %v\n", c.stats.ProcessingTime.Round(time.Millisecond))
	fmt.Printf("================================================================\n")
}

// GetStats returns the current conversion statistics.
func (c *Converter) GetStats() ConversionStats {
	return c.stats
}
