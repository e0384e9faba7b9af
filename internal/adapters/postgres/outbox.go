package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OutboxRecord is a domain event written in the same transaction as the row
// change it describes. The outbox publisher drains NEW records to the broker.
type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	RoutingKey    string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string // NEW, PUBLISHED, FAILED
	DedupeKey     string
}

func (r *Repository) InsertOutbox(ctx context.Context, tx pgx.Tx, record OutboxRecord) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO outbox (id, aggregate_type, aggregate_id, event_type, routing_key, payload_json, status, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, $6, 'NEW', $7)
	`, record.ID, record.AggregateType, record.AggregateID, record.EventType, record.RoutingKey, record.Payload, record.DedupeKey)
	return err
}

// DrainOutbox claims a batch of NEW records with FOR UPDATE SKIP LOCKED and
// holds the row locks for the whole batch: publish runs and the PUBLISHED
// flip commits inside the same transaction, so a second drainer skips the
// claimed rows instead of republishing them. A record whose publish fails
// stays NEW for the next tick. Returns how many records were published.
func (r *Repository) DrainOutbox(ctx context.Context, limit int, publish func(OutboxRecord) error) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, routing_key, payload_json, created_at, published_at, status, dedupe_key
		FROM outbox WHERE status = 'NEW' ORDER BY created_at ASC LIMIT $1 FOR UPDATE SKIP LOCKED
	`, limit)
	if err != nil {
		return 0, err
	}

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		err := rows.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &rec.RoutingKey,
			&rec.Payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey)
		if err != nil {
			rows.Close()
			return 0, err
		}
		records = append(records, rec)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	published := 0
	for _, rec := range records {
		if err := publish(rec); err != nil {
			continue
		}
		_, err := tx.Exec(ctx, `
			UPDATE outbox SET status = 'PUBLISHED', published_at = $2 WHERE id = $1
		`, rec.ID, time.Now().UTC())
		if err != nil {
			return published, err
		}
		published++
	}
	return published, tx.Commit(ctx)
}
