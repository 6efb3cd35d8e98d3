package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/albapepper/scoracle-live/internal/sidechannel"
)

// Writer persists serialized history documents. Failures are logged by the
// writer and never reported back to the dispatching caller.
type Writer interface {
	Write(ctx context.Context, key string, data []byte)
	Flush(ctx context.Context)
}

// SyncWriter writes every document before Dispatch returns.
type SyncWriter struct {
	store  sidechannel.Store
	logger *slog.Logger
}

// NewSyncWriter writes through to store.
func NewSyncWriter(store sidechannel.Store, logger *slog.Logger) *SyncWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncWriter{store: store, logger: logger}
}

func (w *SyncWriter) Write(ctx context.Context, key string, data []byte) {
	if err := w.store.Set(ctx, key, data); err != nil {
		w.logger.Warn("Side-channel write failed", "key", key, "error", err)
	}
}

func (w *SyncWriter) Flush(context.Context) {}

// DebouncedWriter coalesces writes per key: within one window only the
// latest document for a key is written. Flush writes everything pending.
type DebouncedWriter struct {
	store  sidechannel.Store
	window time.Duration
	logger *slog.Logger

	mu      sync.Mutex
	pending map[string][]byte
	timer   *time.Timer
	writeMu sync.Mutex
}

// NewDebouncedWriter batches writes to store every window.
func NewDebouncedWriter(store sidechannel.Store, window time.Duration, logger *slog.Logger) *DebouncedWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &DebouncedWriter{
		store:   store,
		window:  window,
		logger:  logger,
		pending: make(map[string][]byte),
	}
}

func (w *DebouncedWriter) Write(_ context.Context, key string, data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[key] = data
	if w.timer == nil {
		w.timer = time.AfterFunc(w.window, func() { w.flush(context.Background()) })
	}
}

// Flush stops the pending timer and writes all buffered documents now.
func (w *DebouncedWriter) Flush(ctx context.Context) {
	w.flush(ctx)
}

func (w *DebouncedWriter) flush(ctx context.Context) {
	// writeMu keeps a timer flush and an explicit Flush from interleaving
	// writes of the same key out of order.
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string][]byte)
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()

	for key, data := range batch {
		if err := w.store.Set(ctx, key, data); err != nil {
			w.logger.Warn("Side-channel write failed", "key", key, "error", err)
		}
	}
	if len(batch) > 0 {
		w.logger.Debug("Side-channel flush", "keys", len(batch))
	}
}

// Pending returns the number of keys waiting to be written.
func (w *DebouncedWriter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}
