package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	PostgresDSN    string
	MongoURI       string
	RedisAddr      string
	RabbitURL      string
	JWTSecret      string
	CheckoutURL    string
	CheckoutAPIKey string
	StorageURL     string
	StorageAPIKey  string
	StorageBucket  string
	BookingTTL     time.Duration
	IdempotencyTTL time.Duration
	ListenAddr     string
	OTLPEndpoint   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	bookingTTL, _ := time.ParseDuration(os.Getenv("BOOKING_TTL"))
	if bookingTTL == 0 {
		bookingTTL = 30 * time.Minute
	}
	idempTTL, _ := time.ParseDuration(os.Getenv("IDEMPOTENCY_TTL"))
	if idempTTL == 0 {
		idempTTL = time.Hour
	}
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	bucket := os.Getenv("STORAGE_BUCKET")
	if bucket == "" {
		bucket = "complaints_attachments"
	}

	return &Config{
		PostgresDSN:    os.Getenv("POSTGRES_DSN"),
		MongoURI:       os.Getenv("MONGO_URI"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		CheckoutURL:    os.Getenv("CHECKOUT_URL"),
		CheckoutAPIKey: os.Getenv("CHECKOUT_API_KEY"),
		StorageURL:     os.Getenv("STORAGE_URL"),
		StorageAPIKey:  os.Getenv("STORAGE_API_KEY"),
		StorageBucket:  bucket,
		BookingTTL:     bookingTTL,
		IdempotencyTTL: idempTTL,
		ListenAddr:     addr,
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
