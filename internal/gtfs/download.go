package gtfs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// ArchiveName is the file name the downloaded archive is staged under.
const ArchiveName = "archive.zip"

// StatusError is returned when the archive endpoint answers with a non-2xx status
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}

// Acquirer downloads GTFS archives
type Acquirer struct {
	client *http.Client
	logger logrus.FieldLogger
}

// NewAcquirer creates a new archive acquirer. A nil client gets a default
// one with a generous timeout, since national archives run to hundreds of MB.
func NewAcquirer(client *http.Client, logger logrus.FieldLogger) *Acquirer {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Acquirer{client: client, logger: logger}
}

// Fetch downloads url into stagingDir and returns the archive path and the
// number of bytes written. The body is streamed to disk.
func (a *Acquirer) Fetch(ctx context.Context, url, stagingDir string) (string, int64, error) {
	log := a.logger.WithField("url", url)

	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		// the create below reports the real problem if the directory is unusable
		log.WithError(err).Warn("Failed to create staging directory")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("failed to build request: %w", err)
	}

	log.Info("Downloading GTFS archive")
	resp, err := a.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to download GTFS data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	path := filepath.Join(stagingDir, ArchiveName)
	f, err := os.Create(path)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create archive file: %w", err)
	}

	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", n, fmt.Errorf("failed to write GTFS data to %s: %w", path, err)
	}

	log.WithField("bytes", n).Info("GTFS archive downloaded")
	return path, n, nil
}
