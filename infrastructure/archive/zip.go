// Package archive bundles output files into zip archives.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/milordsutrix/tool-tubecutter/domain/media"
)

// ZipBundler implements media.Archiver using archive/zip. Each entry is
// stored flat under its given name, independent of where the input lives
// on disk.
type ZipBundler struct{}

// NewZipBundler creates a new zip bundler
func NewZipBundler() *ZipBundler {
	return &ZipBundler{}
}

// Bundle implements media.Archiver
func (b *ZipBundler) Bundle(ctx context.Context, entries []media.ArchiveEntry, destPath string) error {
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			zw.Close()
			return err
		}
		if err := addFile(zw, entry); err != nil {
			zw.Close()
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finalize archive: %w", err)
	}
	return nil
}

func addFile(zw *zip.Writer, entry media.ArchiveEntry) error {
	f, err := os.Open(entry.Path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", entry.Path, err)
	}
	defer f.Close()

	w, err := zw.Create(entry.Name)
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", entry.Name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write %s to archive: %w", entry.Name, err)
	}
	return nil
}

// Ensure ZipBundler implements media.Archiver
var _ media.Archiver = (*ZipBundler)(nil)
