package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/juicecultus/crosspoint-reader-x4/pkg/converter"
	"github.com/juicecultus/crosspoint-reader-x4/pkg/display"
)

var (
	outputPath  string
	profileName string
	bitDepth    int
	ditherName  string
	noTone      bool
	fitBox      string
)

var convertCmd = &cobra.Command{
	Use:   "convert [input file]",
	Short: "Convert one JPEG cover to an indexed BMP",
	Long: `Convert a JPEG cover into an indexed BMP thumbnail for a target panel.

Examples:
  coverconv convert cover.jpg -o cover.bmp
  coverconv convert cover.jpg -o cover.bmp --profile x4-mono
  coverconv convert cover.jpg -o cover.bmp --depth 8 --dither none --no-tone
  coverconv convert cover.jpg -o cover.bmp --fit 600x800`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (required)")
	convertCmd.Flags().StringVar(&profileName, "profile", "x4", "Target display profile (x4, x4-mono, x4-gray, generic)")
	convertCmd.Flags().IntVar(&bitDepth, "depth", 0, "Output bit depth: 1, 2 or 8 (0 = profile default)")
	convertCmd.Flags().StringVar(&ditherName, "dither", "", "Dither mode: none, noise, atkinson, floyd-steinberg (default from profile)")
	convertCmd.Flags().BoolVar(&noTone, "no-tone", false, "Skip contrast/brightness/gamma adjustment")
	convertCmd.Flags().StringVar(&fitBox, "fit", "", "Override the target bounding box, e.g. 480x800")

	convertCmd.MarkFlagRequired("output")
}

func runConvert(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	if err := validateInputFile(inputPath); err != nil {
		return fmt.Errorf("input validation failed: %w", err)
	}
	if err := validateOutputPath(outputPath); err != nil {
		return fmt.Errorf("output validation failed: %w", err)
	}

	opts, err := buildOptions(inputPath, outputPath)
	if err != nil {
		return err
	}

	conv := converter.New(opts)
	return conv.Convert()
}

// buildOptions resolves the shared conversion flags into converter
// options. Used by both convert and batch.
func buildOptions(inputPath, outputPath string) (converter.Options, error) {
	profile, err := display.GetProfile(profileName)
	if err != nil {
		return converter.Options{}, fmt.Errorf("display profile error: %w", err)
	}

	opts := converter.Options{
		InputPath:  inputPath,
		OutputPath: outputPath,
		Profile:    profile,
		NoTone:     noTone,
		Verbose:    verbose,
	}

	if bitDepth != 0 {
		if bitDepth != 1 && bitDepth != 2 && bitDepth != 8 {
			return converter.Options{}, fmt.Errorf("invalid depth %d (1, 2 or 8)", bitDepth)
		}
		opts.BitsPerPixel = bitDepth
	}

	if ditherName != "" {
		mode, err := display.ParseDitherMode(ditherName)
		if err != nil {
			return converter.Options{}, err
		}
		opts.Dither = mode
		opts.DitherSet = true
	}

	if fitBox != "" {
		w, h, err := parseFitBox(fitBox)
		if err != nil {
			return converter.Options{}, err
		}
		opts.MaxWidth = w
		opts.MaxHeight = h
	}

	return opts, nil
}

// parseFitBox parses a WxH bounding box flag value.
func parseFitBox(s string) (int, int, error) {
	parts := strings.SplitN(strings.ToLower(s), "x", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid fit box %q (expected WxH, e.g. 480x800)", s)
	}
	w, err := parsePositiveInt(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid fit box width %q", parts[0])
	}
	h, err := parsePositiveInt(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid fit box height %q", parts[1])
	}
	return w, h, nil
}

func parsePositiveInt(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty")
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("not a number")
		}
		n = n*10 + int(r-'0')
		if n > 1<<20 {
			return 0, fmt.Errorf("out of range")
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("must be positive")
	}
	return n, nil
}

func validateInputFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", path)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".jpg" && ext != ".jpeg" {
		return fmt.Errorf("unsupported input format: %s (only .jpg/.jpeg is supported)", ext)
	}

	return nil
}

func validateOutputPath(path string) error {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return fmt.Errorf("output directory does not exist: %s", dir)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".bmp" {
		return fmt.Errorf("unsupported output format: %s (only .bmp is supported)", ext)
	}

	return nil
}
