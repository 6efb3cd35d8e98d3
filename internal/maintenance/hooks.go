package maintenance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/albapepper/scoracle-live/internal/sidechannel"
)

// ErrPurgeUnsupported is returned for stores that expire documents on their
// own or keep nothing on disk.
var ErrPurgeUnsupported = errors.New("side-channel backend does not support purge")

// Purge deletes side-channel documents not written within age. Shared by
// the purge ticker and `scorectl purge`.
func Purge(ctx context.Context, store sidechannel.Store, age time.Duration, logger *slog.Logger) (int64, error) {
	p, ok := store.(sidechannel.Purger)
	if !ok {
		return 0, ErrPurgeUnsupported
	}

	start := time.Now()
	n, err := p.PurgeOlderThan(ctx, age)
	dur := time.Since(start).Round(time.Millisecond)
	if err != nil {
		return 0, fmt.Errorf("purge older than %s: %w", age, err)
	}
	if n > 0 {
		logger.Info("Purge: removed stale match histories", "count", n, "age", age, "duration", dur)
	}
	return n, nil
}
