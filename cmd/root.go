package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "coverconv",
	Short: "Convert book covers into e-ink ready BMP thumbnails",
	Long: `Coverconv prepares JPEG cover art for the CrossPoint family of e-ink
readers: streaming decode, downscale to the panel, tone mapping tuned for
reflective displays, and dithered reduction to an indexed BMP the firmware
can blit directly.

Currently supports:
- Single cover conversion with per-panel profiles
- Batch conversion of cover directories into a thumbnail cache
- Inspecting covers without converting them`,
	Version: "0.1.0",
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
}
