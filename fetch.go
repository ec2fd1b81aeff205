package citystate

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SourceMarker identifies the raw CSV inside the downloaded archive.
const SourceMarker = "GeoLite2-City-Locations-en"

// Fetcher places a fresh copy of the raw CSV at dest.
type Fetcher interface {
	Fetch(ctx context.Context, dest string) error
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, dest string) error

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, dest string) error { return f(ctx, dest) }

// LicenseURL returns the GeoLite2 City CSV download URL for a MaxMind license key.
func LicenseURL(key string) string {
	q := url.Values{}
	q.Set("edition_id", "GeoLite2-City-CSV")
	q.Set("license_key", key)
	q.Set("suffix", "zip")
	return "https://download.maxmind.com/app/geoip_download?" + q.Encode()
}

// httpClient is a shared HTTP client with a generous timeout; the archive is
// tens of megabytes.
var httpClient = &http.Client{
	Timeout: 5 * time.Minute,
}

// HTTPFetcher downloads a zip archive and extracts the entry whose name
// contains Marker (default SourceMarker).
type HTTPFetcher struct {
	URL    string
	Client *http.Client
	Marker string
}

// Fetch implements Fetcher. dest is only replaced once extraction succeeded.
func (f *HTTPFetcher) Fetch(ctx context.Context, dest string) error {
	if f.URL == "" {
		return fmt.Errorf("%w: no source URL configured", ErrFetch)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("%w: creating data directory: %v", ErrFetch, err)
	}

	archive, err := os.CreateTemp(filepath.Dir(dest), ".archive-*.zip")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	archivePath := archive.Name()
	archive.Close()
	defer os.Remove(archivePath)

	if err := f.download(ctx, archivePath); err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	marker := f.Marker
	if marker == "" {
		marker = SourceMarker
	}
	if err := extractEntry(archivePath, marker, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrFetch, err)
	}
	return nil
}

func (f *HTTPFetcher) download(ctx context.Context, path string) error {
	client := f.Client
	if client == nil {
		client = httpClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.URL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		// The URL carries the license key; report the host only.
		return fmt.Errorf("HTTP GET %s: request failed", redactURL(f.URL))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP GET %s: status %d", redactURL(f.URL), resp.StatusCode)
	}
	return writeFile(path, resp.Body)
}

// extractEntry copies the first archive entry whose name contains marker to dest.
func extractEntry(archivePath, marker, dest string) error {
	rz, err := zip.OpenReader(archivePath)
	if err != nil {
		return fmt.Errorf("opening zip file: %w", err)
	}
	defer rz.Close()

	for _, entry := range rz.File {
		if entry.FileInfo().IsDir() || !strings.Contains(entry.Name, marker) {
			continue
		}
		return extractZipEntry(entry, dest)
	}
	return fmt.Errorf("no entry matching %q in archive", marker)
}

// extractZipEntry is split out so the entry reader is closed per call.
// Only dest is written; the entry's own path is never used.
func extractZipEntry(entry *zip.File, dest string) error {
	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("opening %s in zip: %w", entry.Name, err)
	}
	defer rc.Close()

	tmp := dest + ".part"
	if err := writeFile(tmp, rc); err != nil {
		return err
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming into %s: %w", dest, err)
	}
	return nil
}

// writeFile copies r to path, removing the partial file on error.
func writeFile(path string, r io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}

	success := false
	defer func() {
		out.Close()
		if !success {
			os.Remove(path)
		}
	}()

	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("writing file %s: %w", path, err)
	}
	// Close explicitly to catch flush errors (e.g., on NFS).
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing file %s: %w", path, err)
	}
	success = true
	return nil
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	return u.Scheme + "://" + u.Host + u.Path
}
