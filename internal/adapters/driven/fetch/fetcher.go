// Package fetch retrieves uploaded file bytes from their storage
// location. Local paths (file://) and HTTP URLs are supported.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/corpus-ai/corpus/internal/core/domain"
	"github.com/corpus-ai/corpus/internal/core/ports/driven"
)

// Ensure Fetcher implements the interface.
var _ driven.FileFetcher = (*Fetcher)(nil)

// Default limits for remote fetches.
const (
	DefaultTimeout = 60 * time.Second
	MaxFetchSize   = 100 * 1024 * 1024 // 100MB, matches the extraction cap
)

// Fetcher reads file bytes from file:// paths and http(s):// URLs.
type Fetcher struct {
	client  *http.Client
	maxSize int64
}

// New creates a fetcher with the default timeout and size cap.
func New() *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: DefaultTimeout},
		maxSize: MaxFetchSize,
	}
}

// Fetch returns the raw bytes at the location.
func (f *Fetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	switch {
	case strings.HasPrefix(location, "file://"):
		return f.fetchFile(strings.TrimPrefix(location, "file://"))
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		return f.fetchHTTP(ctx, location)
	default:
		// Bare paths are treated as local files.
		if _, err := url.Parse(location); err == nil && !strings.Contains(location, "://") {
			return f.fetchFile(location)
		}
		return nil, fmt.Errorf("%w: unsupported location %q", domain.ErrInvalidInput, location)
	}
}

func (f *Fetcher) fetchFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: file %s", domain.ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > f.maxSize {
		return nil, fmt.Errorf("%w: file is %d bytes, maximum is %d", domain.ErrInvalidInput, info.Size(), f.maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", location, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, location)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: status %d", location, resp.StatusCode)
	}

	// LimitReader with one extra byte detects oversize bodies without
	// buffering them whole.
	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", location, err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, fmt.Errorf("%w: response exceeds %d bytes", domain.ErrInvalidInput, f.maxSize)
	}
	return data, nil
}
