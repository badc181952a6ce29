package display

import "fmt"

// DitherMode selects how grayscale values are reduced to the panel's
// palette. Exactly one mode is active per conversion.
type DitherMode int

const (
	// DitherNone rounds each pixel to the nearest palette level.
	DitherNone DitherMode = iota
	// DitherNoise perturbs the rounding threshold with a position hash.
	// Stateless, so partial redraws stay stable.
	DitherNoise
	// DitherAtkinson diffuses 6/8 of the quantization error forward.
	// The default for e-ink: lighter output, less ghosting.
	DitherAtkinson
	// DitherFloydSteinberg diffuses the full error, alternating the
	// distribution pattern between rows.
	DitherFloydSteinberg
)

// String returns the flag-friendly name of the mode.
func (m DitherMode) String() string {
	switch m {
	case DitherNone:
		return "none"
	case DitherNoise:
		return "noise"
	case DitherAtkinson:
		return "atkinson"
	case DitherFloydSteinberg:
		return "floyd-steinberg"
	}
	return fmt.Sprintf("DitherMode(%d)", int(m))
}

// ParseDitherMode converts a flag value to a DitherMode.
func ParseDitherMode(s string) (DitherMode, error) {
	switch s {
	case "none", "plain":
		return DitherNone, nil
	case "noise":
		return DitherNoise, nil
	case "atkinson":
		return DitherAtkinson, nil
	case "floyd-steinberg", "fs":
		return DitherFloydSteinberg, nil
	}
	return DitherNone, fmt.Errorf("unknown dither mode %q (none, noise, atkinson, floyd-steinberg)", s)
}

// PanelCapabilities defines what an e-ink panel can show and how cover
// thumbnails should be prepared for it.
type PanelCapabilities struct {
	// Display specifications
	ScreenWidth  int // Width in pixels, portrait orientation
	ScreenHeight int // Height in pixels
	DPI          int

	// Panel depth: 1, 2 or 8 bits per pixel, always grayscale
	BitsPerPixel int

	// Rendering defaults tuned for the panel
	DefaultDither   DitherMode
	BrightnessBoost int  // added after contrast, before gamma
	GammaCorrection bool // sqrt response curve for e-ink reflectance
	ContrastPercent int  // 100 = identity, 115 = firmware default

	// Prescale covers down to the screen bounds before quantizing
	Prescale bool
}

// Profile represents a complete target device profile.
type Profile struct {
	Name         string
	Manufacturer string
	Model        string
	Capabilities PanelCapabilities
}

// RenderSettings contains the pipeline parameters derived from a profile.
type RenderSettings struct {
	MaxWidth        int
	MaxHeight       int
	BitsPerPixel    int
	Dither          DitherMode
	BrightnessBoost int
	Gamma           bool
	ContrastPercent int
	Prescale        bool
}

// RenderSettings returns the cover rendering parameters for this profile.
func (p *Profile) RenderSettings() RenderSettings {
	return RenderSettings{
		MaxWidth:        p.Capabilities.ScreenWidth,
		MaxHeight:       p.Capabilities.ScreenHeight,
		BitsPerPixel:    p.Capabilities.BitsPerPixel,
		Dither:          p.Capabilities.DefaultDither,
		BrightnessBoost: p.Capabilities.BrightnessBoost,
		Gamma:           p.Capabilities.GammaCorrection,
		ContrastPercent: p.Capabilities.ContrastPercent,
		Prescale:        p.Capabilities.Prescale,
	}
}
