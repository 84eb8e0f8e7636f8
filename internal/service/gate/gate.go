package gate

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/namecoder1/calensync-bot/internal/domain"
)

const (
	KeyPrefix = "reminder:sent:"

	DefaultTTL = 7 * 24 * time.Hour

	lockedValue    = "locked"
	confirmedValue = "confirmed"

	confirmAttempts = 3
	confirmBackoff  = 100 * time.Millisecond
)

// Gate makes deliveries at-most-once across processes. A key is locked before
// sending, confirmed after a successful send and released after a failure.
type Gate struct {
	store domain.IdempotencyStore
	ttl   time.Duration
}

func New(store domain.IdempotencyStore, ttl time.Duration) *Gate {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Gate{store: store, ttl: ttl}
}

// TryAdmit reports whether the caller owns the key. Exactly one of several
// concurrent callers gets true.
func (g *Gate) TryAdmit(ctx context.Context, key string) (bool, error) {
	ok, err := g.store.SetIfAbsent(ctx, KeyPrefix+key, lockedValue, g.ttl)
	if err != nil {
		return false, fmt.Errorf("admit %s: %w", key, err)
	}
	return ok, nil
}

// Confirm marks the key as delivered. The lock written by TryAdmit already
// carries the full TTL, so a confirm that keeps failing still blocks resends.
func (g *Gate) Confirm(ctx context.Context, key string) error {
	var lastErr error
	for attempt := 0; attempt < confirmAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * confirmBackoff
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		err := g.store.Set(ctx, KeyPrefix+key, confirmedValue, g.ttl)
		if err == nil {
			return nil
		}
		lastErr = err

		slog.WarnContext(ctx, "confirm failed, retrying",
			slog.String("key", key),
			slog.Int("attempt", attempt+1),
			slog.String("error", err.Error()),
		)
	}

	return fmt.Errorf("confirm %s after %d attempts: %w", key, confirmAttempts, lastErr)
}

// Release frees the key so a later run can retry the delivery.
func (g *Gate) Release(ctx context.Context, key string) error {
	if err := g.store.Delete(ctx, KeyPrefix+key); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}
