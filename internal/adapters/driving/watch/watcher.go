// Package watch ingests files dropped into a local directory.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/corpus-ai/corpus/internal/core/domain"
	"github.com/corpus-ai/corpus/internal/core/ports/driving"
	"github.com/corpus-ai/corpus/internal/logger"
)

// settleDelay is how long a file must stay quiet after its last write
// event before it is ingested. Editors and copies produce bursts of
// writes; ingesting mid-copy would index a truncated file.
const settleDelay = 500 * time.Millisecond

// Watcher monitors a drop directory and ingests every supported file
// that lands in it.
type Watcher struct {
	dir      string
	ownerID  string
	ingestor driving.Ingestor

	mu      sync.Mutex
	running bool
	pending map[string]*time.Timer
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher creates a drop-dir watcher. Files are ingested under the
// given owner.
func NewWatcher(dir, ownerID string, ingestor driving.Ingestor) *Watcher {
	return &Watcher{
		dir:      dir,
		ownerID:  ownerID,
		ingestor: ingestor,
		pending:  make(map[string]*time.Timer),
	}
}

// Start begins watching. The directory is created if missing, and files
// already present are queued so a restart never loses drops.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating drop dir: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	w.running = true
	w.stopCh = make(chan struct{})

	w.wg.Add(1)
	go w.run(ctx, fsw)

	if err := w.sweepExisting(ctx); err != nil {
		logger.Warn("scanning drop dir: %v", err)
	}

	logger.Info("watching drop dir %s", w.dir)
	return nil
}

// Stop halts the watcher and cancels pending settle timers.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
	logger.Info("drop dir watcher stopped")
}

func (w *Watcher) run(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.wg.Done()
	defer fsw.Close()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			logger.Error("drop dir watch error: %v", err)
		}
	}
}

// handleEvent schedules ingestion for create and write events on
// eligible files. Each event resets the file's settle timer.
func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}
	if !w.eligible(event.Name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}

	path := event.Name
	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}
	w.pending[path] = time.AfterFunc(settleDelay, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.ingest(ctx, path)
	})
}

// sweepExisting queues files already sitting in the drop dir.
func (w *Watcher) sweepExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if w.eligible(path) {
			w.ingest(ctx, path)
		}
	}
	return nil
}

// eligible filters out directories, hidden files and unsupported formats.
func (w *Watcher) eligible(path string) bool {
	if isHidden(path) {
		return false
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return domain.DetectFormat(filepath.Base(path), "") != domain.FormatUnknown
}

func (w *Watcher) ingest(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		logger.Warn("dropped file %s vanished before ingest: %v", path, err)
		return
	}

	doc, err := w.ingestor.Ingest(ctx, driving.IngestRequest{
		OwnerID:  w.ownerID,
		FileName: filepath.Base(path),
		Location: "file://" + path,
		ByteSize: info.Size(),
	})
	if err != nil {
		logger.Error("ingesting dropped file %s: %v", path, err)
		return
	}
	logger.Info("dropped file %s queued as document %s", filepath.Base(path), doc.ID)
}

// isHidden reports whether any path segment starts with a dot.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == "." || part == ".." || part == "" {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
