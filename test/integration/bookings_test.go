package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
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
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const jwtSecret = "integration-test-secret"

const schema = `
	CREATE TABLE IF NOT EXISTS base_trips (
		id UUID PRIMARY KEY,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		photo_urls TEXT[] NOT NULL DEFAULT '{}',
		video_url TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS trip_schedules (
		id UUID PRIMARY KEY,
		base_trip_id UUID NOT NULL REFERENCES base_trips(id),
		start_date TIMESTAMPTZ NOT NULL,
		end_date TIMESTAMPTZ NOT NULL,
		price JSONB NOT NULL
	);
	CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		ticket_id TEXT NOT NULL UNIQUE,
		user_id UUID NOT NULL,
		trip_schedule_id UUID NOT NULL,
		booking_date TIMESTAMPTZ NOT NULL,
		payment_status TEXT NOT NULL CHECK (payment_status IN ('pending', 'paid', 'cancelled')),
		total_price JSONB NOT NULL,
		attendees JSONB NOT NULL,
		rooms JSONB NOT NULL
	);
	CREATE UNIQUE INDEX IF NOT EXISTS bookings_user_schedule_live
		ON bookings (user_id, trip_schedule_id) WHERE payment_status <> 'cancelled';
	CREATE TABLE IF NOT EXISTS reviews (
		id UUID PRIMARY KEY,
		base_trip_id UUID NOT NULL,
		user_id UUID NOT NULL,
		rating INT NOT NULL CHECK (rating BETWEEN 1 AND 5),
		review_text TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (base_trip_id, user_id)
	);
	CREATE TABLE IF NOT EXISTS complaints (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		subject TEXT NOT NULL,
		body TEXT NOT NULL,
		attachment_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS support_chats (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('open', 'closed')),
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS chat_messages (
		id UUID PRIMARY KEY,
		chat_id UUID NOT NULL REFERENCES support_chats(id),
		sender_id UUID NOT NULL,
		message_text TEXT NOT NULL,
		client_ref TEXT,
		created_at TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS outbox (
		id UUID PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id UUID NOT NULL,
		event_type TEXT NOT NULL,
		routing_key TEXT NOT NULL,
		payload_json JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at TIMESTAMPTZ,
		status TEXT NOT NULL CHECK (status IN ('NEW', 'PUBLISHED', 'FAILED')),
		dedupe_key TEXT NOT NULL
	);
`

func mintToken(t *testing.T, userID uuid.UUID) string {
	t.Helper()
	claims := jwt.MapClaims{
		"user_id": userID.String(),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return signed
}

func TestIntegration_BookingFlow(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_DB": "trips"},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	mongoContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForExec([]string{"mongosh", "--eval", "db.runCommand('ping').ok"}),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer mongoContainer.Terminate(ctx)

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer redisContainer.Terminate(ctx)

	rabbitContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-management",
			ExposedPorts: []string{"5672/tcp", "15672/tcp"},
			WaitingFor:   wait.ForHTTP("/api/health/checks/virtual-hosts").WithPort("15672").WithBasicAuth("guest", "guest"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer rabbitContainer.Terminate(ctx)

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)
	mongoHost, err := mongoContainer.Host(ctx)
	require.NoError(t, err)
	mongoPort, err := mongoContainer.MappedPort(ctx, "27017")
	require.NoError(t, err)
	redisHost, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)
	rabbitHost, err := rabbitContainer.Host(ctx)
	require.NoError(t, err)
	rabbitPort, err := rabbitContainer.MappedPort(ctx, "5672")
	require.NoError(t, err)

	// stand-in for the hosted checkout provider
	checkoutSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"url": "https://pay.example/session/abc123"})
	}))
	defer checkoutSrv.Close()

	cfg := &config.Config{
		PostgresDSN:    fmt.Sprintf("postgres://postgres:postgres@%s:%s/trips?sslmode=disable", pgHost, pgPort.Port()),
		MongoURI:       "mongodb://" + mongoHost + ":" + mongoPort.Port(),
		RedisAddr:      redisHost + ":" + redisPort.Port(),
		RabbitURL:      "amqp://guest:guest@" + rabbitHost + ":" + rabbitPort.Port() + "/",
		JWTSecret:      jwtSecret,
		CheckoutURL:    checkoutSrv.URL,
		CheckoutAPIKey: "test-key",
		BookingTTL:     30 * time.Minute,
		IdempotencyTTL: time.Hour,
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	require.NoError(t, err)
	defer pool.Close()
	_, err = pool.Exec(ctx, schema)
	require.NoError(t, err)
	repo := postgres.NewRepository(pool)

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	require.NoError(t, err)
	defer mongoClient.Disconnect(ctx)
	logger := observability.NewLogger()
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("trip_bookings"), logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, cfg.IdempotencyTTL)
	rl := ratelimit.NewRateLimiter(redisCache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	require.NoError(t, err)
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	require.NoError(t, err)

	checkout := payments.NewCheckoutClient(cfg.CheckoutURL, cfg.CheckoutAPIKey)
	store := storage.NewClient("http://storage.invalid", "", "complaints_attachments")
	hub := chat.NewHub(logger)

	handlers := httphandler.NewHandlers(cfg, repo, redisCache, idemp, audit, rabbitPub, checkout, store, hub, logger)
	srv := httptest.NewServer(httphandler.SetupRouter(handlers, logger, rl, cfg.JWTSecret))
	defer srv.Close()

	// seed one trip with one schedule
	baseTripID := uuid.New()
	scheduleID := uuid.New()
	_, err = pool.Exec(ctx, `
		INSERT INTO base_trips (id, title, description, country, city)
		VALUES ($1, 'Siwa Oasis Escape', 'Three days in the western desert', 'Egypt', 'Siwa')
	`, baseTripID)
	require.NoError(t, err)
	_, err = pool.Exec(ctx, `
		INSERT INTO trip_schedules (id, base_trip_id, start_date, end_date, price)
		VALUES ($1, $2, now() + interval '7 days', now() + interval '10 days',
			'{"price_single": 100, "price_double": 150, "price_triple": 200}')
	`, scheduleID, baseTripID)
	require.NoError(t, err)

	userID := uuid.New()
	token := mintToken(t, userID)

	do := func(method, path string, body interface{}, idempKey string) *http.Response {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req, err := http.NewRequest(method, srv.URL+path, &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		if idempKey != "" {
			req.Header.Set("Idempotency-Key", idempKey)
		}
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	// browse the catalog
	resp := do("GET", "/v1/trips", nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// book: 2 single + 1 double holds 4 people at 350 total
	bookingReq := map[string]interface{}{
		"trip_schedule_id": scheduleID.String(),
		"people":           4,
		"rooms":            map[string]int{"single": 2, "double": 1},
	}
	idempKey := uuid.NewString()
	resp = do("POST", "/v1/bookings", bookingReq, idempKey)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		BookingID uuid.UUID `json:"booking_id"`
		TicketID  string    `json:"ticket_id"`
		Status    string    `json:"payment_status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	resp.Body.Close()
	require.NotEqual(t, uuid.Nil, created.BookingID)
	require.Contains(t, created.TicketID, "TICK-")
	require.Equal(t, "pending", created.Status)

	// same idempotency key replays the stored response
	resp = do("POST", "/v1/bookings", bookingReq, idempKey)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var replayed struct {
		BookingID uuid.UUID `json:"booking_id"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&replayed))
	resp.Body.Close()
	require.Equal(t, created.BookingID, replayed.BookingID)

	// a fresh key for the same schedule hits the duplicate guard
	resp = do("POST", "/v1/bookings", bookingReq, uuid.NewString())
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()

	// too many people for the rooms gets the validation message through
	resp = do("POST", "/v1/bookings", map[string]interface{}{
		"trip_schedule_id": scheduleID.String(),
		"people":           9,
		"rooms":            map[string]int{"single": 1},
	}, uuid.NewString())
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp.Body.Close()

	// provider confirms payment
	resp = do("POST", "/v1/payments/callback", map[string]interface{}{
		"booking_id":     created.BookingID.String(),
		"status":         "succeeded",
		"transaction_id": "tx-42",
	}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = do("GET", "/v1/bookings/"+created.BookingID.String(), nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched struct {
		PaymentStatus string `json:"payment_status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&fetched))
	resp.Body.Close()
	require.Equal(t, "paid", fetched.PaymentStatus)

	// the status flip recorded its event in the same transaction
	var statusEvents int
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT count(*) FROM outbox WHERE routing_key = $1 AND event_type = 'booking.payment.paid'`,
		"booking."+created.BookingID.String()+".status").Scan(&statusEvents))
	require.Equal(t, 1, statusEvents)

	// ticket lookup by the human-readable id
	resp = do("GET", "/v1/tickets/"+created.TicketID, nil, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// direct-to-checkout flow for a second traveller
	token = mintToken(t, uuid.New())

	// the first traveller's booking is invisible to them
	resp = do("GET", "/v1/bookings/"+created.BookingID.String(), nil, "")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = do("POST", "/v1/checkout", map[string]interface{}{
		"trip_schedule_id": scheduleID.String(),
		"people":           2,
		"rooms":            map[string]int{"double": 1},
	}, uuid.NewString())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var session struct {
		URL string `json:"url"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	resp.Body.Close()
	require.Equal(t, "https://pay.example/session/abc123", session.URL)
}

func TestIntegration_SupportChat(t *testing.T) {
	ctx := context.Background()

	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_DB": "trips"},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer pgContainer.Terminate(ctx)

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer redisContainer.Terminate(ctx)

	rabbitContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-management",
			ExposedPorts: []string{"5672/tcp", "15672/tcp"},
			WaitingFor:   wait.ForHTTP("/api/health/checks/virtual-hosts").WithPort("15672").WithBasicAuth("guest", "guest"),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer rabbitContainer.Terminate(ctx)

	mongoContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForExec([]string{"mongosh", "--eval", "db.runCommand('ping').ok"}),
		},
		Started: true,
	})
	require.NoError(t, err)
	defer mongoContainer.Terminate(ctx)

	pgHost, _ := pgContainer.Host(ctx)
	pgPort, _ := pgContainer.MappedPort(ctx, "5432")
	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")
	rabbitHost, _ := rabbitContainer.Host(ctx)
	rabbitPort, _ := rabbitContainer.MappedPort(ctx, "5672")
	mongoHost, _ := mongoContainer.Host(ctx)
	mongoPort, _ := mongoContainer.MappedPort(ctx, "27017")

	cfg := &config.Config{
		PostgresDSN:    fmt.Sprintf("postgres://postgres:postgres@%s:%s/trips?sslmode=disable", pgHost, pgPort.Port()),
		MongoURI:       "mongodb://" + mongoHost + ":" + mongoPort.Port(),
		RedisAddr:      redisHost + ":" + redisPort.Port(),
		RabbitURL:      "amqp://guest:guest@" + rabbitHost + ":" + rabbitPort.Port() + "/",
		JWTSecret:      jwtSecret,
		BookingTTL:     30 * time.Minute,
		IdempotencyTTL: time.Hour,
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	require.NoError(t, err)
	defer pool.Close()
	_, err = pool.Exec(ctx, schema)
	require.NoError(t, err)
	repo := postgres.NewRepository(pool)

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	require.NoError(t, err)
	defer mongoClient.Disconnect(ctx)
	logger := observability.NewLogger()
	audit := mongoadapter.NewAuditLogger(mongoClient.Database("trip_bookings"), logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), cfg.IdempotencyTTL)
	rl := ratelimit.NewRateLimiter(redisCache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	require.NoError(t, err)
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	require.NoError(t, err)

	hub := chat.NewHub(logger)
	checkout := payments.NewCheckoutClient("http://checkout.invalid", "")
	store := storage.NewClient("http://storage.invalid", "", "complaints_attachments")

	handlers := httphandler.NewHandlers(cfg, repo, redisCache, idemp, audit, rabbitPub, checkout, store, hub, logger)
	srv := httptest.NewServer(httphandler.SetupRouter(handlers, logger, rl, cfg.JWTSecret))
	defer srv.Close()

	userID := uuid.New()
	token := mintToken(t, userID)

	do := func(method, path string, body interface{}) *http.Response {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req, err := http.NewRequest(method, srv.URL+path, &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return resp
	}

	// no chat yet: empty state, not an error
	resp := do("GET", "/v1/support/chat", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var empty struct {
		Chat     *json.RawMessage  `json:"chat"`
		Messages []json.RawMessage `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&empty))
	resp.Body.Close()
	require.Nil(t, empty.Chat)
	require.Empty(t, empty.Messages)

	// first message opens a chat implicitly
	clientRef := uuid.NewString()
	resp = do("POST", "/v1/support/chat/messages", map[string]string{
		"message_text": "my booking is stuck on pending",
		"client_ref":   clientRef,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var sent struct {
		ID        string `json:"id"`
		Text      string `json:"message_text"`
		ClientRef string `json:"client_ref"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&sent))
	resp.Body.Close()
	require.NotEmpty(t, sent.ID)
	require.Equal(t, "my booking is stuck on pending", sent.Text)
	require.Equal(t, clientRef, sent.ClientRef)

	// chat and history now visible
	resp = do("GET", "/v1/support/chat", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var state struct {
		Chat *struct {
			ID     uuid.UUID `json:"id"`
			Status string    `json:"status"`
		} `json:"chat"`
		Messages []struct {
			Text string `json:"message_text"`
		} `json:"messages"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	resp.Body.Close()
	require.NotNil(t, state.Chat)
	require.Equal(t, "open", state.Chat.Status)
	require.Len(t, state.Messages, 1)

	// nobody but the owner closes a chat: anonymous gets 401, another
	// user gets 403, and the chat stays open
	closeURL := srv.URL + "/v1/support/chat/" + state.Chat.ID.String() + "/close"
	anonReq, err := http.NewRequest("POST", closeURL, nil)
	require.NoError(t, err)
	anonResp, err := http.DefaultClient.Do(anonReq)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, anonResp.StatusCode)
	anonResp.Body.Close()

	otherReq, err := http.NewRequest("POST", closeURL, nil)
	require.NoError(t, err)
	otherReq.Header.Set("Authorization", "Bearer "+mintToken(t, uuid.New()))
	otherResp, err := http.DefaultClient.Do(otherReq)
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, otherResp.StatusCode)
	otherResp.Body.Close()

	resp = do("GET", "/v1/support/chat", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stillOpen struct {
		Chat *struct {
			Status string `json:"status"`
		} `json:"chat"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stillOpen))
	resp.Body.Close()
	require.Equal(t, "open", stillOpen.Chat.Status)

	// close it; further sends conflict
	resp = do("POST", "/v1/support/chat/"+state.Chat.ID.String()+"/close", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = do("POST", "/v1/support/chat/messages", map[string]string{"message_text": "hello again"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	resp.Body.Close()
}
