package outbox

import (
	"context"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/roamstack/trip-bookings/internal/adapters/postgres"
	"github.com/roamstack/trip-bookings/internal/adapters/rabbit"
	"github.com/roamstack/trip-bookings/internal/observability"
)

// Publisher drains the transactional outbox into RabbitMQ. Each batch is
// claimed, published and marked inside one transaction, so publishers
// running side by side skip each other's rows instead of republishing.
type Publisher struct {
	repo      *postgres.Repository
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
	interval  time.Duration
	batchSize int
}

func NewPublisher(repo *postgres.Repository, rabbitPub *rabbit.Publisher, logger observability.Logger) *Publisher {
	return &Publisher{
		repo:      repo,
		rabbitPub: rabbitPub,
		logger:    logger,
		interval:  5 * time.Second,
		batchSize: 50,
	}
}

func (p *Publisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.drain(ctx)
		}
	}
}

func (p *Publisher) drain(ctx context.Context) {
	var oldest time.Time
	_, err := p.repo.DrainOutbox(ctx, p.batchSize, func(rec postgres.OutboxRecord) error {
		if oldest.IsZero() {
			oldest = rec.CreatedAt
		}
		msg := amqp.Publishing{
			MessageId:   rec.DedupeKey,
			ContentType: "application/json",
			Timestamp:   rec.CreatedAt,
			Body:        rec.Payload,
		}
		if err := p.rabbitPub.Publish(ctx, rec.RoutingKey, msg); err != nil {
			p.logger.WithFields(map[string]interface{}{
				"outbox_id": rec.ID.String(),
				"error":     err.Error(),
			}).Error("failed to publish outbox record")
			return err
		}
		return nil
	})
	if err != nil {
		p.logger.WithField("error", err.Error()).Error("failed to drain outbox")
	}

	if oldest.IsZero() {
		observability.OutboxLag.Set(0)
	} else {
		observability.OutboxLag.Set(time.Since(oldest).Seconds())
	}
}
