package cmd

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/juicecultus/crosspoint-reader-x4/internal/worker"
	"github.com/juicecultus/crosspoint-reader-x4/pkg/cache"
	"github.com/juicecultus/crosspoint-reader-x4/pkg/converter"
)

var (
	cacheDir    string
	workerCount int
)

var batchCmd = &cobra.Command{
	Use:   "batch [cover directory]",
	Short: "Convert every JPEG cover under a directory into a thumbnail cache",
	Long: `Walk a directory tree, convert every .jpg/.jpeg cover found and place
the thumbnails in a cache directory under content-addressed names. Files
are converted in parallel; each individual conversion stays streamed and
single-threaded.

Examples:
  coverconv batch ~/books/covers --cache ~/.covercache
  coverconv batch ./covers --cache ./cache --profile x4-mono --workers 2`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().StringVar(&cacheDir, "cache", "", "Thumbnail cache directory (required)")
	batchCmd.Flags().IntVar(&workerCount, "workers", 0, "Number of worker goroutines (0 = one per CPU)")
	batchCmd.Flags().StringVar(&profileName, "profile", "x4", "Target display profile")
	batchCmd.Flags().IntVar(&bitDepth, "depth", 0, "Output bit depth: 1, 2 or 8 (0 = profile default)")
	batchCmd.Flags().StringVar(&ditherName, "dither", "", "Dither mode (default from profile)")
	batchCmd.Flags().BoolVar(&noTone, "no-tone", false, "Skip tone adjustment")

	batchCmd.MarkFlagRequired("cache")
}

// coverJob converts one cover inside the worker pool.
type coverJob struct {
	opts converter.Options
}

func (j *coverJob) Process(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return converter.New(j.opts).Convert()
}

func (j *coverJob) ID() string {
	return filepath.Base(j.opts.InputPath)
}

func runBatch(cmd *cobra.Command, args []string) error {
	root := args[0]

	covers, err := findCovers(root)
	if err != nil {
		return fmt.Errorf("failed to scan %s: %w", root, err)
	}
	if len(covers) == 0 {
		return fmt.Errorf("no JPEG covers found under %s", root)
	}

	if err := cache.EnsureDir(cacheDir); err != nil {
		return err
	}

	startTime := time.Now()
	pool := worker.NewPoolWithProgress(workerCount, len(covers))
	pool.Start()

	if verbose {
		fmt.Printf("Converting %d covers with %d workers\n", len(covers), pool.WorkerCount())
	}

	go func() {
		for _, cover := range covers {
			opts, err := buildOptions(cover, cache.ThumbnailPath(cacheDir, cover))
			if err != nil {
				// flag validation failed; the first result will carry it
				opts = converter.Options{InputPath: cover}
			}
			opts.Verbose = false // the progress line owns the terminal
			pool.Submit(&coverJob{opts: opts})
		}
		pool.Stop()
	}()

	converted := 0
	var failures []worker.Result
	for res := range pool.Results() {
		if res.Error != nil {
			failures = append(failures, res)
		} else {
			converted++
		}
	}

	var totalBytes uint64
	for _, cover := range covers {
		if stat, err := os.Stat(cache.ThumbnailPath(cacheDir, cover)); err == nil {
			totalBytes += uint64(stat.Size())
		}
	}

	fmt.Printf("\nBatch conversion finished\n")
	fmt.Printf("Converted:  %d/%d covers\n", converted, len(covers))
	fmt.Printf("Cache size: %s\n", humanize.Bytes(totalBytes))
	fmt.Printf("Elapsed:    %v\n", time.Since(startTime).Round(time.Millisecond))

	for _, f := range failures {
		fmt.Printf("  failed: %s: %v\n", f.JobID, f.Error)
	}
	if len(failures) > 0 {
		return fmt.Errorf("%d of %d covers failed", len(failures), len(covers))
	}
	return nil
}

// findCovers collects all JPEG files under root.
func findCovers(root string) ([]string, error) {
	var covers []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".jpg" || ext == ".jpeg" {
			covers = append(covers, path)
		}
		return nil
	})
	return covers, err
}
