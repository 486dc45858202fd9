// Package fetch downloads diagnostic script bundles over HTTPS.
package fetch

import (
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/navtools/mfddiag/pkg/log"
)

// Fetcher downloads script bundles with retry and checksum verification.
type Fetcher struct {
	client *retryablehttp.Client
}

// NewFetcher creates a new fetcher instance
func NewFetcher() *Fetcher {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 1 * time.Second
	client.RetryWaitMax = 30 * time.Second
	client.HTTPClient.Timeout = 10 * time.Minute
	// Retry logging goes through pkg/log instead of the default logger
	client.Logger = nil
	client.RequestLogHook = func(_ retryablehttp.Logger, req *http.Request, attempt int) {
		if attempt > 0 {
			log.Infof("Retrying download of %s (attempt %d)", req.URL, attempt+1)
		}
	}

	return &Fetcher{client: client}
}

// Download fetches the file at url to destPath, creating the destination
// directory if needed. Partial files are removed on failure.
func (f *Fetcher) Download(ctx context.Context, url, destPath string) error {
	log.Infof("Downloading %s to %s", url, destPath)

	destDir := filepath.Dir(destPath)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory %s: %w", destDir, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", "mfddiag/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to download from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download failed with status %d: %s", resp.StatusCode, resp.Status)
	}

	destFile, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file %s: %w", destPath, err)
	}
	defer destFile.Close()

	written, err := io.Copy(destFile, resp.Body)
	if err != nil {
		// Clean up the partial file on error
		os.Remove(destPath)
		return fmt.Errorf("failed to write to destination file: %w", err)
	}

	log.Infof("Successfully downloaded %s (%d bytes) to %s", url, written, destPath)
	return nil
}

// DownloadVerified downloads the file and verifies its SHA256 checksum,
// removing the file when the checksum does not match.
func (f *Fetcher) DownloadVerified(ctx context.Context, url, destPath, sha256sum string) error {
	if err := f.Download(ctx, url, destPath); err != nil {
		return err
	}
	if sha256sum == "" {
		return nil
	}

	actual, err := CalculateChecksum(destPath)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, sha256sum) {
		os.Remove(destPath)
		return fmt.Errorf("checksum mismatch for %s: expected %s, got %s", destPath, sha256sum, actual)
	}

	log.Infof("Checksum verified for %s", destPath)
	return nil
}

// CalculateChecksum calculates the SHA256 checksum of a file
func CalculateChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s: %w", filePath, err)
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to calculate checksum: %w", err)
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
