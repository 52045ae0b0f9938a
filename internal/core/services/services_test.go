package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corpus-ai/corpus/internal/adapters/driven/storage/sqlite"
	"github.com/corpus-ai/corpus/internal/core/domain"
)

// newTestStore opens a fresh SQLite store in a temp dir.
func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "corpus.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// fakeEmbedder produces deterministic 4-dim vectors. Each distinct text
// gets a distinct unit-ish vector; identical text always embeds the same.
type fakeEmbedder struct {
	mu    sync.Mutex
	calls int

	// fail, when set, makes embedding calls return it. failures bounds
	// how many calls fail; zero means every call.
	fail     error
	failures int

	// fixed, when set, overrides the derived vector for a text.
	fixed map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.maybeFail(); err != nil {
		return nil, err
	}
	return f.vectorFor(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.maybeFail(); err != nil {
		return nil, err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		out = append(out, f.vectorFor(t))
	}
	return out, nil
}

func (f *fakeEmbedder) vectorFor(text string) []float32 {
	if v, ok := f.fixed[text]; ok {
		return append([]float32(nil), v...)
	}
	var sum uint32
	for _, b := range []byte(text) {
		sum = sum*31 + uint32(b)
	}
	return []float32{
		float32(sum%97) + 1,
		float32(sum%89) + 1,
		float32(sum%83) + 1,
		float32(sum%79) + 1,
	}
}

// maybeFail consumes one configured failure. Callers hold the mutex.
func (f *fakeEmbedder) maybeFail() error {
	err := f.fail
	if err != nil && f.failures > 0 {
		f.failures--
		if f.failures == 0 {
			f.fail = nil
		}
	}
	return err
}

func (f *fakeEmbedder) embedCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeEmbedder) Dimensions() int              { return 4 }
func (f *fakeEmbedder) ModelName() string            { return "fake-embed" }
func (f *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (f *fakeEmbedder) Close() error                 { return nil }

// fakeFetcher serves file bytes from an in-memory map keyed by location.
// A nonzero delay makes every fetch wait, honouring context cancellation.
type fakeFetcher struct {
	files map[string][]byte
	fail  error
	delay time.Duration
}

func (f *fakeFetcher) Fetch(ctx context.Context, location string) ([]byte, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.fail != nil {
		return nil, f.fail
	}
	data, ok := f.files[location]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, location)
	}
	return data, nil
}

// repeatText builds content long enough to produce several chunks.
func repeatText(sentences int) []byte {
	var out []byte
	for i := 0; i < sentences; i++ {
		out = append(out, []byte(fmt.Sprintf("Sentence number %d carries enough words to fill space in the corpus. ", i))...)
	}
	return out
}

var errProviderDown = fmt.Errorf("%w: provider unreachable", domain.ErrEmbeddingProvider)

func requireErrorIs(t *testing.T, err, target error) {
	t.Helper()
	require.Error(t, err)
	require.True(t, errors.Is(err, target), "got %v, want %v", err, target)
}
