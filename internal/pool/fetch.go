package pool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// Fetcher retrieves the raw bytes of a tabular source.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (data []byte, contentType string, err error)
}

// DefaultMaxSourceBytes bounds a single source.
const DefaultMaxSourceBytes = 64 << 20

// SourceFetcher reads local files and http(s) URLs.
type SourceFetcher struct {
	// BaseDir resolves relative file paths. Empty means the working directory.
	BaseDir string
	Client  *http.Client
	// MaxBytes rejects larger sources instead of truncating them.
	MaxBytes int64
}

// NewSourceFetcher returns a fetcher rooted at baseDir.
func NewSourceFetcher(baseDir string, client *http.Client) *SourceFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &SourceFetcher{BaseDir: baseDir, Client: client, MaxBytes: DefaultMaxSourceBytes}
}

// Fetch implements Fetcher.
func (f *SourceFetcher) Fetch(ctx context.Context, location string) ([]byte, string, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return f.fetchURL(ctx, location)
	}

	p := strings.TrimPrefix(location, "file://")
	if !filepath.IsAbs(p) && f.BaseDir != "" {
		p = filepath.Join(f.BaseDir, p)
	}
	file, err := os.Open(p)
	if err != nil {
		return nil, "", fmt.Errorf("read source: %w", err)
	}
	defer file.Close()

	data, err := f.readAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read source: %w", err)
	}
	return data, "", nil
}

func (f *SourceFetcher) fetchURL(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch source: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("fetch source: unexpected status %s", resp.Status)
	}
	data, err := f.readAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read source body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

// readAll reads r up to MaxBytes and fails if there is more.
func (f *SourceFetcher) readAll(r io.Reader) ([]byte, error) {
	limit := f.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxSourceBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("source exceeds %d bytes", limit)
	}
	return data, nil
}
