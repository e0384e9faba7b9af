package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	mongoadapter "github.com/roamstack/trip-bookings/internal/adapters/mongo"
	"github.com/roamstack/trip-bookings/internal/adapters/postgres"
	"github.com/roamstack/trip-bookings/internal/adapters/rabbit"
	redisadapter "github.com/roamstack/trip-bookings/internal/adapters/redis"
	"github.com/roamstack/trip-bookings/internal/adapters/storage"
	"github.com/roamstack/trip-bookings/internal/chat"
	"github.com/roamstack/trip-bookings/internal/config"
	httphandler "github.com/roamstack/trip-bookings/internal/http"
	"github.com/roamstack/trip-bookings/internal/idempotency"
	"github.com/roamstack/trip-bookings/internal/observability"
	"github.com/roamstack/trip-bookings/internal/payments"
	"github.com/roamstack/trip-bookings/internal/ratelimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdown, err := observability.SetupOTel(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	repo := postgres.NewRepository(pool)

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("trip_bookings"), logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, cfg.IdempotencyTTL)
	rl := ratelimit.NewRateLimiter(redisCache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}
	chatConsumer, err := rabbit.NewConsumer(rabbitConn, "api.chat-events", "chat.*.message", "chat.*.status")
	if err != nil {
		log.Fatalf("failed to create chat consumer: %v", err)
	}
	defer chatConsumer.Close()

	checkout := payments.NewCheckoutClient(cfg.CheckoutURL, cfg.CheckoutAPIKey)
	store := storage.NewClient(cfg.StorageURL, cfg.StorageAPIKey, cfg.StorageBucket)

	hub := chat.NewHub(logger)
	relay := chat.NewRelay(hub, logger)

	handlers := httphandler.NewHandlers(cfg, repo, redisCache, idemp, audit, rabbitPub, checkout, store, hub, logger)
	r := httphandler.SetupRouter(handlers, logger, rl, cfg.JWTSecret)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithField("addr", cfg.ListenAddr).Info("starting api server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		deliveries, err := chatConsumer.Consume(gctx)
		if err != nil {
			return err
		}
		relay.Run(gctx, deliveries)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
	logger.Info("server exiting")
}
