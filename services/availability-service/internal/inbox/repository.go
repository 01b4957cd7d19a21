package inbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/meetsync/libs/db"
)

// Repository remembers which Kafka events this service has already handled.
type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record claims eventID. It reports false when another delivery already claimed it.
func (r *Repository) Record(ctx context.Context, eventID string, eventType string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, eventType)
	if err != nil {
		return false, err
	}
	return claimed(tag.RowsAffected()), nil
}

// Forget releases a claim so a failed event is handled again on redelivery.
func (r *Repository) Forget(ctx context.Context, eventID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM inbox_events WHERE event_id = $1`, eventID)
	return err
}

// PurgeBefore drops claims older than cutoff. Kafka retention bounds how far back a redelivery can
// reach, so older claims no longer protect anything.
func (r *Repository) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM inbox_events WHERE received_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RunJanitor purges claims older than retention every interval until ctx is done.
func (r *Repository) RunJanitor(ctx context.Context, logger *slog.Logger, retention, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			n, err := r.PurgeBefore(ctx, now.Add(-retention))
			if err != nil {
				logger.Error("inbox purge failed", "err", err)
				continue
			}
			if n > 0 {
				logger.Info("inbox purged", "rows", n)
			}
		}
	}
}

func claimed(rowsAffected int64) bool {
	return rowsAffected == 1
}
