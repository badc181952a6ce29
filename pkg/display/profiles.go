package display

import (
	"fmt"
	"sort"
	"strings"
)

// Available device profiles
var profiles = map[string]Profile{
	"x4": {
		Name:         "CrossPoint X4",
		Manufacturer: "CrossPoint",
		Model:        "X4",
		Capabilities: PanelCapabilities{
			ScreenWidth:  480,
			ScreenHeight: 800,
			DPI:          212,

			BitsPerPixel: 2, // 4-level panel

			DefaultDither:   DitherAtkinson,
			BrightnessBoost: 10, // covers run dark on reflective panels
			GammaCorrection: true,
			ContrastPercent: 115,

			Prescale: true,
		},
	},
	"x4-mono": {
		Name:         "CrossPoint X4 (mono refresh)",
		Manufacturer: "CrossPoint",
		Model:        "X4",
		Capabilities: PanelCapabilities{
			ScreenWidth:  480,
			ScreenHeight: 800,
			DPI:          212,

			BitsPerPixel: 1, // fast-refresh waveform is black and white only

			DefaultDither:   DitherFloydSteinberg,
			BrightnessBoost: 10,
			GammaCorrection: true,
			ContrastPercent: 115,

			Prescale: true,
		},
	},
	"x4-gray": {
		Name:         "CrossPoint X4 (full grayscale)",
		Manufacturer: "CrossPoint",
		Model:        "X4",
		Capabilities: PanelCapabilities{
			ScreenWidth:  480,
			ScreenHeight: 800,
			DPI:          212,

			BitsPerPixel: 8, // staging output for desktop preview

			DefaultDither:   DitherNone,
			BrightnessBoost: 10,
			GammaCorrection: true,
			ContrastPercent: 115,

			Prescale: true,
		},
	},
	"generic": {
		Name:         "Generic E-Ink Panel",
		Manufacturer: "Generic",
		Model:        "Standard",
		Capabilities: PanelCapabilities{
			ScreenWidth:  600,
			ScreenHeight: 800,
			DPI:          167,

			BitsPerPixel: 2,

			DefaultDither:   DitherAtkinson,
			BrightnessBoost: 0, // no tuning data for unknown panels
			GammaCorrection: false,
			ContrastPercent: 100,

			Prescale: true,
		},
	},
}

// GetProfile returns a device profile by name.
func GetProfile(name string) (Profile, error) {
	normalizedName := strings.ToLower(strings.TrimSpace(name))

	if profile, exists := profiles[normalizedName]; exists {
		return profile, nil
	}

	var available []string
	for key := range profiles {
		available = append(available, key)
	}
	sort.Strings(available)

	return Profile{}, fmt.Errorf("unknown display profile '%s'. Available profiles: %v", name, available)
}

// ListProfiles returns all available device profiles.
func ListProfiles() map[string]Profile {
	return profiles
}
