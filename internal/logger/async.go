package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes and stops a buffered handler. Synchronous handlers
// return a no-op Closer.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// entry pairs a record with the inner handler that must emit it, so
// attrs and groups attached via WithAttrs/WithGroup survive the queue.
type entry struct {
	h   slog.Handler
	rec slog.Record
}

// AsyncHandler decouples log emission from I/O by queueing records
// onto a buffered channel drained by background workers. Records are
// dropped rather than blocking the caller when the queue is full.
type AsyncHandler struct {
	inner   slog.Handler
	queue   chan entry
	workers *sync.WaitGroup
	dropped *atomic.Int64
}

// NewAsyncHandler starts workers draining a queue of the given capacity.
// Each queued record is handled by the inner handler it was enqueued
// against, which may be a WithAttrs/WithGroup derivative.
func NewAsyncHandler(inner slog.Handler, capacity, workers int) *AsyncHandler {
	h := &AsyncHandler{
		inner:   inner,
		queue:   make(chan entry, capacity),
		workers: &sync.WaitGroup{},
		dropped: &atomic.Int64{},
	}
	h.workers.Add(workers)
	for range workers {
		go func() {
			defer h.workers.Done()
			for e := range h.queue {
				_ = e.h.Handle(context.Background(), e.rec)
			}
		}()
	}
	return h
}

func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record, dropping it if the queue is full.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.queue <- entry{h: h.inner, rec: rec}:
	default:
		h.dropped.Add(1)
	}
	return nil
}

// WithAttrs wraps a derived inner handler; the queue and workers are shared.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(h.inner.WithAttrs(attrs))
}

// WithGroup wraps a derived inner handler; the queue and workers are shared.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return h.derive(h.inner.WithGroup(name))
}

func (h *AsyncHandler) derive(inner slog.Handler) slog.Handler {
	return &AsyncHandler{
		inner:   inner,
		queue:   h.queue,
		workers: h.workers,
		dropped: h.dropped,
	}
}

// DroppedCount reports how many records were discarded due to a full queue.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.dropped.Load()
}

// Close stops accepting records and blocks until the queue drains.
func (h *AsyncHandler) Close() {
	close(h.queue)
	h.workers.Wait()
}
