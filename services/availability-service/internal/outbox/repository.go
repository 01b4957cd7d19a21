package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	otelx "github.com/md-rashed-zaman/meetsync/libs/otel"
)

// Querier is satisfied by both *db.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Record is one outbox_events row as read by the publisher.
type Record struct {
	ID            int64     `db:"id"`
	EventID       string    `db:"event_id"`
	AggregateType string    `db:"aggregate_type"`
	AggregateID   string    `db:"aggregate_id"`
	EventType     string    `db:"event_type"`
	Payload       []byte    `db:"payload"`
	Traceparent   string    `db:"traceparent"`
	Tracestate    string    `db:"tracestate"`
	CreatedAt     time.Time `db:"created_at"`
}

const (
	insertSQL = `
		INSERT INTO outbox_events (event_id, aggregate_type, aggregate_id, event_type, payload, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	// SKIP LOCKED lets several replicas publish without handing out the same row twice.
	fetchSQL = `
		SELECT id, event_id::text AS event_id, aggregate_type, aggregate_id, event_type, payload,
		       traceparent, tracestate, created_at
		FROM outbox_events
		WHERE published_at IS NULL
		ORDER BY id
		LIMIT $1
		FOR UPDATE SKIP LOCKED`

	markSQL  = `UPDATE outbox_events SET published_at = now() WHERE id = ANY($1)`
	purgeSQL = `DELETE FROM outbox_events WHERE published_at IS NOT NULL AND published_at < $1`
)

type Repository struct{}

func NewRepository() *Repository {
	return &Repository{}
}

// Insert writes evt with the trace context of ctx and returns the generated event id. It must run
// in the same transaction as the rule change it describes.
func (r *Repository) Insert(ctx context.Context, q Querier, evt Event) (string, error) {
	eventID := uuid.NewString()
	traceparent, tracestate := otelx.TraceContextStrings(ctx)
	if _, err := q.Exec(ctx, insertSQL, eventID, evt.AggregateType, evt.AggregateID, evt.EventType, evt.Payload, traceparent, tracestate); err != nil {
		return "", err
	}
	return eventID, nil
}

// FetchUnpublished locks up to limit pending rows in id order.
func (r *Repository) FetchUnpublished(ctx context.Context, q Querier, limit int) ([]Record, error) {
	rows, err := q.Query(ctx, fetchSQL, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Record])
}

func (r *Repository) MarkPublished(ctx context.Context, q Querier, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := q.Exec(ctx, markSQL, ids)
	return err
}

// PurgePublished deletes rows published before cutoff and reports how many went.
func (r *Repository) PurgePublished(ctx context.Context, q Querier, cutoff time.Time) (int64, error) {
	tag, err := q.Exec(ctx, purgeSQL, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
