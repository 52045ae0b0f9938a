package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/corpus-ai/corpus/internal/core/domain"
	"github.com/corpus-ai/corpus/internal/core/ports/driven"
	"github.com/corpus-ai/corpus/internal/logger"
)

// DefaultPollInterval is how often the worker checks the queue when no
// wake signal arrives.
const DefaultPollInterval = 2 * time.Second

// DefaultConcurrency is how many jobs run in parallel.
const DefaultConcurrency = 2

// DefaultJobTimeout caps the wall-clock time one pipeline run may take.
const DefaultJobTimeout = 5 * time.Minute

// recoveryInterval is how often the stuck-job sweep runs.
const recoveryInterval = 30 * time.Second

// Worker drains the job queue: it claims pending jobs, runs the
// pipeline on each and settles the outcome. A periodic sweep requeues
// jobs whose worker died mid-flight.
type Worker struct {
	jobs      driven.JobStore
	docStore  driven.DocumentStore
	processor *Processor

	pollInterval time.Duration
	concurrency  int
	staleness    time.Duration
	jobTimeout   time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	poke    chan struct{}
	wg      sync.WaitGroup
}

// WorkerConfig bundles the worker's collaborators and tuning.
type WorkerConfig struct {
	JobStore      driven.JobStore
	DocumentStore driven.DocumentStore
	Processor     *Processor

	// PollInterval is the queue check period (default 2s).
	PollInterval time.Duration

	// Concurrency is the number of parallel pipeline runs (default 2).
	Concurrency int

	// Staleness is the heartbeat age before a processing job counts as
	// stuck (default domain.DefaultStaleness).
	Staleness time.Duration

	// JobTimeout is the wall-clock budget per pipeline run (default 5m).
	// A run that exceeds it fails like any other stage error.
	JobTimeout time.Duration
}

// NewWorker creates a queue worker.
func NewWorker(cfg WorkerConfig) *Worker {
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	staleness := cfg.Staleness
	if staleness <= 0 {
		staleness = domain.DefaultStaleness
	}
	jobTimeout := cfg.JobTimeout
	if jobTimeout <= 0 {
		jobTimeout = DefaultJobTimeout
	}

	return &Worker{
		jobs:         cfg.JobStore,
		docStore:     cfg.DocumentStore,
		processor:    cfg.Processor,
		pollInterval: pollInterval,
		concurrency:  concurrency,
		staleness:    staleness,
		jobTimeout:   jobTimeout,
		poke:         make(chan struct{}, 1),
	}
}

// Poke returns the wake channel for intake to nudge on enqueue.
func (w *Worker) Poke() chan<- struct{} {
	return w.poke
}

// Start launches the drain loops. Safe to call once; a second call
// while running is a no-op.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}
	w.running = true
	w.stopCh = make(chan struct{})

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.run(ctx, i)
	}
	w.wg.Add(1)
	go w.recover(ctx)

	logger.Info("worker started: %d slots, poll every %s", w.concurrency, w.pollInterval)
}

// Stop halts the loops and waits for in-flight jobs to settle.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	w.wg.Wait()
	logger.Info("worker stopped")
}

// run is one drain loop. It claims and processes jobs until the queue
// is empty, then sleeps until the next tick or poke.
func (w *Worker) run(ctx context.Context, slot int) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		w.drain(ctx, slot)

		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.poke:
		}
	}
}

// drain processes jobs until the queue is empty.
func (w *Worker) drain(ctx context.Context, slot int) {
	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		job, err := w.jobs.ClaimNext(ctx)
		if err != nil {
			if !errIsNotFound(err) {
				logger.Error("claiming job: %v", err)
			}
			return
		}

		logger.Debug("slot %d claimed job %s for document %s", slot, job.ID, job.Payload.DocumentID)
		w.execute(ctx, job)
	}
}

// execute runs the pipeline for one claimed job and settles its state.
// The run gets its own deadline so a hung stage cannot hold the slot
// forever; settlement uses the parent context, which outlives it.
func (w *Worker) execute(ctx context.Context, job *domain.Job) {
	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	err := w.processor.Process(jobCtx, job)
	cancel()
	if err == nil {
		if err := w.jobs.MarkCompleted(ctx, job.ID); err != nil {
			logger.Error("completing job %s: %v", job.ID, err)
		}
		return
	}

	w.settleFailure(ctx, job, err)
}

// settleFailure decides between retry and terminal failure. Retry needs
// both a retryable error class and remaining attempts; everything else
// fails the job and the document together.
func (w *Worker) settleFailure(ctx context.Context, job *domain.Job, cause error) {
	msg := cause.Error()

	if domain.Retryable(cause) && job.Retryable() {
		logger.Warn("job %s attempt %d/%d failed, requeueing: %v",
			job.ID, job.Attempts, job.MaxAttempts, cause)
		if err := w.jobs.Requeue(ctx, job.ID, msg); err != nil {
			logger.Error("requeueing job %s: %v", job.ID, err)
		}
		// The document records the failure too; the next attempt
		// flips it back to processing.
		if err := w.docStore.UpdateStatus(ctx, job.Payload.DocumentID, domain.DocumentFailed, msg); err != nil {
			logger.Error("marking document %s failed: %v", job.Payload.DocumentID, err)
		}
		return
	}

	logger.Error("job %s failed terminally after %d attempts: %v", job.ID, job.Attempts, cause)
	if err := w.jobs.MarkFailed(ctx, job.ID, msg); err != nil {
		logger.Error("failing job %s: %v", job.ID, err)
	}
	if err := w.docStore.UpdateStatus(ctx, job.Payload.DocumentID, domain.DocumentFailed, msg); err != nil {
		logger.Error("marking document %s failed: %v", job.Payload.DocumentID, err)
	}
}

// recover periodically sweeps for jobs whose heartbeat went silent and
// returns them to the queue, or fails them when attempts ran out.
func (w *Worker) recover(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(recoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep requeues or fails stuck jobs.
func (w *Worker) sweep(ctx context.Context) {
	stuck, err := w.jobs.ListStuck(ctx, w.staleness)
	if err != nil {
		logger.Error("listing stuck jobs: %v", err)
		return
	}

	for i := range stuck {
		job := &stuck[i]
		cause := fmt.Sprintf("no heartbeat for %s", w.staleness)

		if job.Retryable() {
			logger.Warn("job %s stuck, requeueing (attempt %d/%d)", job.ID, job.Attempts, job.MaxAttempts)
			if err := w.jobs.Requeue(ctx, job.ID, cause); err != nil {
				logger.Error("requeueing stuck job %s: %v", job.ID, err)
			}
			continue
		}

		logger.Error("job %s stuck with no attempts left, failing", job.ID)
		if err := w.jobs.MarkFailed(ctx, job.ID, cause); err != nil {
			logger.Error("failing stuck job %s: %v", job.ID, err)
		}
		if err := w.docStore.UpdateStatus(ctx, job.Payload.DocumentID, domain.DocumentFailed, cause); err != nil {
			logger.Error("marking document %s failed: %v", job.Payload.DocumentID, err)
		}
	}
}
