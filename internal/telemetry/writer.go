package telemetry

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	recallerrors "github.com/amancerp/recall/internal/errors"
)

// BatchedWriter accumulates events in memory and flushes to an append-only
// JSONL file when either batchSize or flushInterval trips, matching the
// buffering discipline in spec §4.H. A flush failure is retried once
// (errors.Retry-style single short retry) before the batch is dropped —
// the log is at-most-once, not at-least-once.
type BatchedWriter struct {
	path          string
	batchSize     int
	flushInterval time.Duration

	mu         sync.Mutex
	buffer     []Event
	lastFlush  time.Time
	lock       *fileLock
	retryFlush func(func() error) error
}

// NewBatchedWriter creates a writer targeting path. batchSize <= 0 disables
// size-triggered flushing; flushInterval <= 0 disables time-triggered
// flushing (append then only flushes at batchSize or on explicit Flush).
func NewBatchedWriter(path string, batchSize int, flushInterval time.Duration) *BatchedWriter {
	return &BatchedWriter{
		path:          path,
		batchSize:     batchSize,
		flushInterval: flushInterval,
		lastFlush:     time.Now(),
		lock:          newFileLock(path),
		retryFlush:    retryOnce,
	}
}

// telemetryRetryConfig is a single immediate retry, no backoff: spec §7
// reserves retry only for telemetry flush, and only one short attempt.
var telemetryRetryConfig = recallerrors.RetryConfig{MaxRetries: 1}

// Append adds an event to the buffer, flushing if a threshold trips.
func (w *BatchedWriter) Append(e Event) error {
	w.mu.Lock()
	w.buffer = append(w.buffer, e)
	shouldFlush := w.batchSize > 0 && len(w.buffer) >= w.batchSize
	if !shouldFlush && w.flushInterval > 0 {
		shouldFlush = time.Since(w.lastFlush) > w.flushInterval
	}
	w.mu.Unlock()

	if shouldFlush {
		return w.Flush()
	}
	return nil
}

// Flush pushes the buffer to disk under an exclusive file-range lock,
// serializing concurrent appends from multiple goroutines within this
// process (and from other processes pointed at the same path).
func (w *BatchedWriter) Flush() error {
	w.mu.Lock()
	if len(w.buffer) == 0 {
		w.mu.Unlock()
		return nil
	}
	pending := w.buffer
	w.buffer = nil
	w.mu.Unlock()

	err := w.retryFlush(func() error {
		return w.appendBatch(pending)
	})
	if err != nil {
		// At-most-once: a buffer that fails to flush after the retry is
		// dropped, not requeued, matching spec's "buffered but unflushed
		// events may be lost" allowance.
		return fmt.Errorf("flush telemetry batch: %w", err)
	}

	w.mu.Lock()
	w.lastFlush = time.Now()
	w.mu.Unlock()
	return nil
}

// Close flushes any remaining buffered events on a best-effort basis.
func (w *BatchedWriter) Close() error {
	return w.Flush()
}

func (w *BatchedWriter) appendBatch(events []Event) error {
	if err := w.lock.Lock(); err != nil {
		return err
	}
	defer func() { _ = w.lock.Unlock() }()

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open telemetry log: %w", err)
	}
	defer func() { _ = f.Close() }()

	bw := bufio.NewWriter(f)
	for _, e := range events {
		line, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("marshal telemetry event: %w", err)
		}
		if _, err := bw.Write(append(line, '\n')); err != nil {
			return fmt.Errorf("write telemetry line: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush telemetry buffer: %w", err)
	}
	return f.Sync()
}

// retryOnce wraps the shared retry helper with telemetryRetryConfig.
func retryOnce(fn func() error) error {
	return recallerrors.Retry(context.Background(), telemetryRetryConfig, fn)
}
