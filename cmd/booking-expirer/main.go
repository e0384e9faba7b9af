package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/roamstack/trip-bookings/internal/adapters/postgres"
	"github.com/roamstack/trip-bookings/internal/adapters/rabbit"
	redisadapter "github.com/roamstack/trip-bookings/internal/adapters/redis"
	"github.com/roamstack/trip-bookings/internal/config"
	"github.com/roamstack/trip-bookings/internal/domain"
	"github.com/roamstack/trip-bookings/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOtel, err := observability.SetupOTel(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := postgres.NewRepository(pool)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()
	rabbitPub, err := rabbit.NewPublisher(conn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	worker := NewExpirer(repo, redisCache, rabbitPub, logger, cfg.BookingTTL)

	logger.WithField("ttl", cfg.BookingTTL.String()).Info("starting booking expirer")
	worker.Run(ctx, time.Minute)
	logger.Info("booking expirer stopped")
}

// Expirer cancels pending bookings whose payment never arrived, freeing the
// per-user booking lock so the user can book the schedule again.
type Expirer struct {
	repo      *postgres.Repository
	redis     *redisadapter.Cache
	rabbitPub *rabbit.Publisher
	logger    observability.Logger
	ttl       time.Duration
}

func NewExpirer(repo *postgres.Repository, redis *redisadapter.Cache, rabbitPub *rabbit.Publisher, logger observability.Logger, ttl time.Duration) *Expirer {
	return &Expirer{repo: repo, redis: redis, rabbitPub: rabbitPub, logger: logger, ttl: ttl}
}

func (w *Expirer) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			stale, err := w.repo.GetStalePendingBookings(ctx, now.Add(-w.ttl))
			if err != nil {
				w.logger.Error("failed to get stale bookings: ", err)
				continue
			}
			for _, b := range stale {
				if err := w.expireWithRetry(ctx, b); err != nil {
					w.logger.WithField("booking_id", b.ID.String()).Error("failed to expire booking: ", err)
				}
			}
		}
	}
}

func (w *Expirer) expireWithRetry(ctx context.Context, b domain.Booking) error {
	maxRetries := 3
	for i := 0; i < maxRetries; i++ {
		cancelled, err := w.repo.CancelIfPending(ctx, b.ID)
		if err != nil {
			backoff := time.Duration(1<<i) * time.Second
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		if !cancelled {
			// payment landed after the scan, leave the booking alone
			w.logger.WithField("booking_id", b.ID.String()).Debug("booking settled before expiry")
			return nil
		}

		if err := w.redis.ReleaseBookingLock(ctx, b.UserID.String(), b.TripScheduleID.String()); err != nil {
			w.logger.WithField("booking_id", b.ID.String()).Warn("failed to release booking lock: ", err)
		}

		payload, _ := json.Marshal(map[string]interface{}{
			"booking_id": b.ID,
			"status":     domain.PaymentCancelled,
			"reason":     "payment_expired",
		})
		msg := amqp.Publishing{
			MessageId:   uuid.New().String(),
			ContentType: "application/json",
			Body:        payload,
		}
		return w.rabbitPub.Publish(ctx, fmt.Sprintf("booking.%s.status", b.ID), msg)
	}
	return fmt.Errorf("failed after %d retries", maxRetries)
}
