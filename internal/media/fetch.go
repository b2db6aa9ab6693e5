package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// fetchWindowSize is the copy buffer for remote downloads. Sources are
// unbounded in size, so the download never holds more than one window in
// memory.
const fetchWindowSize = 4 * 1024 * 1024

var fetchClient = &http.Client{
	Timeout: 10 * time.Minute, // bulk transfer class
}

// IsRemote reports whether source is an HTTP(S) URL rather than a local path.
func IsRemote(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

// FetchRemote streams a remote source into a local temp file in fixed-size
// windows and returns its path. The caller owns the file; on error the temp
// file is removed.
func FetchRemote(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return "", err
	}

	resp, err := fetchClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch source: unexpected status %d", resp.StatusCode)
	}

	tmpFile, err := os.CreateTemp("", "media-src-*")
	if err != nil {
		return "", err
	}

	buf := make([]byte, fetchWindowSize)
	if _, err := io.CopyBuffer(tmpFile, resp.Body, buf); err != nil {
		tmpFile.Close()
		os.Remove(tmpFile.Name())
		return "", fmt.Errorf("copy source: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpFile.Name())
		return "", err
	}

	return tmpFile.Name(), nil
}
