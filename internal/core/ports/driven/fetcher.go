package driven

import "context"

// FileFetcher downloads uploaded file bytes by location URI.
// Implementations must enforce a timeout; a hung download is treated
// like any other stage failure, never an indefinitely blocked worker.
type FileFetcher interface {
	// Fetch returns the raw bytes at the location (file:// path or
	// http(s):// URL).
	Fetch(ctx context.Context, location string) ([]byte, error)
}
