package gtfs

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ArchiveError reports a corrupt archive or a failure while unpacking it
type ArchiveError struct {
	Archive string
	Entry   string
	Err     error
}

func (e *ArchiveError) Error() string {
	if e.Entry == "" {
		return fmt.Sprintf("archive %s: %v", e.Archive, e.Err)
	}
	return fmt.Sprintf("archive %s: entry %s: %v", e.Archive, e.Entry, e.Err)
}

func (e *ArchiveError) Unwrap() error { return e.Err }

// Extract unpacks every file entry of the archive into destDir, one entry at
// a time, and returns the paths written. Directory entries are skipped.
func Extract(ctx context.Context, archivePath, destDir string) ([]string, error) {
	// insecure names are rejected per entry below
	zr, err := zip.OpenReader(archivePath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return nil, &ArchiveError{Archive: archivePath, Err: err}
	}
	defer zr.Close()

	root, err := filepath.Abs(destDir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, file := range zr.File {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		if strings.HasSuffix(file.Name, "/") || file.FileInfo().IsDir() {
			continue
		}

		target := filepath.Join(root, filepath.FromSlash(file.Name))
		if !strings.HasPrefix(target, root+string(os.PathSeparator)) {
			return paths, &ArchiveError{Archive: archivePath, Entry: file.Name, Err: fmt.Errorf("entry escapes %s", destDir)}
		}

		if err := extractFile(file, target); err != nil {
			return paths, &ArchiveError{Archive: archivePath, Entry: file.Name, Err: err}
		}
		paths = append(paths, target)
	}

	return paths, nil
}

func extractFile(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}

	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
