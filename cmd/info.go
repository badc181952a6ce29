package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/juicecultus/crosspoint-reader-x4/pkg/converter"
	"github.com/juicecultus/crosspoint-reader-x4/pkg/display"
	"github.com/juicecultus/crosspoint-reader-x4/pkg/pjpeg"
)

var infoCmd = &cobra.Command{
	Use:   "info [input file]",
	Short: "Inspect a JPEG cover without converting it",
	Long: `Print the cover's dimensions, component layout and MCU geometry, plus
the output geometry the selected profile would produce.

Example:
  coverconv info cover.jpg --profile x4`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().StringVar(&profileName, "profile", "x4", "Target display profile")
}

func runInfo(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	stat, err := os.Stat(inputPath)
	if err != nil {
		return fmt.Errorf("failed to stat input: %w", err)
	}

	// header sniff first: cheap, and rejects non-JPEG with a clear error
	if _, _, err := converter.Preflight(inputPath); err != nil {
		return err
	}

	in, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	dec, err := pjpeg.NewDecoder(in)
	if err != nil {
		return fmt.Errorf("failed to parse JPEG: %w", err)
	}
	info := dec.Info()

	profile, err := display.GetProfile(profileName)
	if err != nil {
		return fmt.Errorf("display profile error: %w", err)
	}
	settings := profile.RenderSettings()
	cfg := converter.ConfigFromSettings(settings)

	fmt.Printf("File:        %s (%s)\n", inputPath, humanize.Bytes(uint64(stat.Size())))
	fmt.Printf("Dimensions:  %dx%d\n", info.Width, info.Height)
	if info.Components == 1 {
		fmt.Printf("Color:       grayscale\n")
	} else {
		fmt.Printf("Color:       YCbCr, %d components\n", info.Components)
	}
	fmt.Printf("MCU:         %dx%d pixels, %dx%d grid\n",
		info.MCUWidth, info.MCUHeight, info.MCUsPerRow, info.MCUsPerCol)

	fmt.Printf("\nProfile:     %s\n", profile.Name)
	fmt.Printf("Depth:       %d-bit, dither %s\n", settings.BitsPerPixel, settings.Dither)
	outW, outH := info.Width, info.Height
	scaled := false
	if cfg.Prescale {
		outW, outH, scaled = converter.FitTarget(info.Width, info.Height, cfg.MaxWidth, cfg.MaxHeight)
	}
	if scaled {
		fmt.Printf("Output:      %dx%d (scaled to fit %dx%d)\n", outW, outH, cfg.MaxWidth, cfg.MaxHeight)
	} else {
		fmt.Printf("Output:      %dx%d (no scaling)\n", outW, outH)
	}
	fmt.Printf("BMP size:    %s\n", humanize.Bytes(uint64(converter.PredictSize(outW, outH, settings.BitsPerPixel))))

	return nil
}
