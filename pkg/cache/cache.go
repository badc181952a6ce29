// Package cache derives stable on-disk locations for generated cover
// thumbnails, mirroring the reader firmware's cover cache layout.
package cache

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
)

// ThumbnailPath returns the cache file for a source document. The name is
// an FNV-1a hash of the cleaned source path, so the same book always maps
// to the same thumbnail and renames elsewhere in the tree don't collide.
func ThumbnailPath(cacheDir, sourcePath string) string {
	h := fnv.New64a()
	h.Write([]byte(filepath.Clean(sourcePath)))
	return filepath.Join(cacheDir, fmt.Sprintf("%016x.bmp", h.Sum64()))
}

// EnsureDir creates the cache directory if it does not exist yet.
func EnsureDir(cacheDir string) error {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}
	return nil
}
