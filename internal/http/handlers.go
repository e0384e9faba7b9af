package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/roamstack/trip-bookings/internal/adapters/mongo"
	"github.com/roamstack/trip-bookings/internal/adapters/postgres"
	"github.com/roamstack/trip-bookings/internal/adapters/rabbit"
	redisadapter "github.com/roamstack/trip-bookings/internal/adapters/redis"
	"github.com/roamstack/trip-bookings/internal/adapters/storage"
	"github.com/roamstack/trip-bookings/internal/chat"
	"github.com/roamstack/trip-bookings/internal/config"
	"github.com/roamstack/trip-bookings/internal/domain"
	"github.com/roamstack/trip-bookings/internal/idempotency"
	"github.com/roamstack/trip-bookings/internal/observability"
	"github.com/roamstack/trip-bookings/internal/payments"
)

type Handlers struct {
	cfg       *config.Config
	repo      *postgres.Repository
	cache     *redisadapter.Cache
	idemp     *idempotency.Idempotency
	audit     *mongo.AuditLogger
	rabbitPub *rabbit.Publisher
	checkout  *payments.CheckoutClient
	storage   *storage.Client
	hub       *chat.Hub
	logger    observability.Logger
}

func NewHandlers(
	cfg *config.Config,
	repo *postgres.Repository,
	cache *redisadapter.Cache,
	idemp *idempotency.Idempotency,
	audit *mongo.AuditLogger,
	rabbitPub *rabbit.Publisher,
	checkout *payments.CheckoutClient,
	store *storage.Client,
	hub *chat.Hub,
	logger observability.Logger,
) *Handlers {
	return &Handlers{
		cfg:       cfg,
		repo:      repo,
		cache:     cache,
		idemp:     idemp,
		audit:     audit,
		rabbitPub: rabbitPub,
		checkout:  checkout,
		storage:   store,
		hub:       hub,
		logger:    logger,
	}
}

type bookingRequest struct {
	TripScheduleID uuid.UUID            `json:"trip_schedule_id"`
	People         int                  `json:"people"`
	Rooms          domain.RoomSelection `json:"rooms"`
}

func (h *Handlers) ListTrips(w http.ResponseWriter, r *http.Request) {
	listings, err := h.repo.ListTrips(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trips": listings})
}

func (h *Handlers) GetTrip(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	schedule, err := h.repo.GetTripSchedule(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	trip, err := h.repo.GetBaseTrip(r.Context(), schedule.BaseTripID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, domain.TripListing{Schedule: *schedule, Trip: *trip})
}

// CreateBooking is the create-then-navigate flow: the row is persisted
// immediately and the returned booking id is handed to the payment step.
func (h *Handlers) CreateBooking(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if replayed := h.replay(w, r, key); replayed {
		return
	}

	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	booking, err := h.submitBooking(r, userID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	data := mustJSON(map[string]interface{}{
		"booking_id":     booking.ID,
		"ticket_id":      booking.TicketID,
		"payment_status": booking.PaymentStatus,
		"total_price":    booking.TotalPrice,
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(data)

	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

// CreateCheckout is the direct-to-payment flow: the draft goes straight to
// the checkout provider, with the booking row created at payment initiation.
func (h *Handlers) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	key := r.Header.Get("Idempotency-Key")
	if replayed := h.replay(w, r, key); replayed {
		return
	}

	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	booking, err := h.submitBooking(r, userID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	session, err := h.checkout.CreateSession(r.Context(), payments.SessionRequest{
		TripScheduleID: booking.TripScheduleID,
		UserID:         booking.UserID,
		BookingID:      booking.ID,
		BookingInfo:    payments.InfoFromBooking(booking),
	})
	if err != nil {
		// booking row stays pending; the expirer reclaims it if the user
		// never completes payment
		h.logger.Error("create checkout session: ", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	data := mustJSON(map[string]interface{}{
		"booking_id": booking.ID,
		"url":        session.URL,
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(data)

	h.idemp.Set(r.Context(), key, idempotency.Response{Status: http.StatusCreated, Result: data})
}

// submitBooking runs the draft state machine server-side: validate the
// selection against the schedule's prices, guard against duplicates, persist
// the pending row plus its outbox event in one transaction.
func (h *Handlers) submitBooking(r *http.Request, userID uuid.UUID, req bookingRequest) (domain.Booking, error) {
	ctx := r.Context()

	if req.People < 1 || req.Rooms.Single < 0 || req.Rooms.Double < 0 || req.Rooms.Triple < 0 {
		return domain.Booking{}, domain.ErrInvalidInput
	}

	schedule, err := h.repo.GetTripSchedule(ctx, req.TripScheduleID)
	if err != nil {
		return domain.Booking{}, err
	}

	draft := domain.NewBookingDraft(schedule.ID, userID, schedule.Prices)
	draft.Attendees = req.People
	draft.Rooms = req.Rooms

	booking, err := draft.BeginSubmit()
	if err != nil {
		if domain.IsValidation(err) {
			observability.BookingValidationFailures.Inc()
		}
		return domain.Booking{}, err
	}

	if _, err := h.repo.FindUserBooking(ctx, userID, schedule.ID); err == nil {
		draft.FailSubmit()
		return domain.Booking{}, domain.ErrConflict
	} else if !errors.Is(err, domain.ErrNotFound) {
		draft.FailSubmit()
		return domain.Booking{}, err
	}

	locked, err := h.cache.SetBookingLock(ctx, userID.String(), schedule.ID.String(), time.Minute)
	if err != nil {
		h.logger.Warn("booking lock: ", err)
	} else if !locked {
		draft.FailSubmit()
		return domain.Booking{}, domain.ErrConflict
	}

	start := time.Now()
	err = h.repo.WithTx(ctx, func(tx pgx.Tx) error {
		if err := h.repo.CreateBooking(ctx, tx, booking); err != nil {
			return err
		}
		return h.repo.InsertOutbox(ctx, tx, bookingStatusEvent(booking, "booking.created"))
	})
	observability.DBTxDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		draft.FailSubmit()
		h.cache.ReleaseBookingLock(ctx, userID.String(), schedule.ID.String())
		return domain.Booking{}, err
	}

	draft.CompleteSubmit()
	observability.BookingsCreated.WithLabelValues(string(booking.PaymentStatus)).Inc()
	h.audit.LogBooking(ctx, "booking.created", booking)
	return booking, nil
}

func (h *Handlers) GetBooking(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}
	booking, err := h.repo.GetBooking(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	// someone else's booking looks like no booking at all
	if booking.UserID != userID {
		writeError(w, domain.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handlers) GetTicket(w http.ResponseWriter, r *http.Request) {
	booking, err := h.repo.GetBookingByTicket(r.Context(), chi.URLParam(r, "ticketID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

func (h *Handlers) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BookingID     uuid.UUID `json:"booking_id"`
		Status        string    `json:"status"`
		TransactionID string    `json:"transaction_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	newStatus := domain.PaymentCancelled
	if req.Status == "succeeded" {
		newStatus = domain.PaymentPaid
	}

	// status flip and its event commit together; the outbox publisher
	// delivers the event even if we crash right after
	err := h.repo.WithTx(r.Context(), func(tx pgx.Tx) error {
		if err := h.repo.UpdateBookingStatus(r.Context(), tx, req.BookingID, newStatus); err != nil {
			return err
		}
		return h.repo.InsertOutbox(r.Context(), tx, paymentStatusEvent(req.BookingID, newStatus, req.TransactionID))
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

// replay serves a previously stored response for a repeated idempotency key.
func (h *Handlers) replay(w http.ResponseWriter, r *http.Request, key string) bool {
	existing, err := h.idemp.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return true
	}
	if existing != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(existing.Status)
		w.Write(existing.Result)
		return true
	}
	return false
}

func paymentStatusEvent(bookingID uuid.UUID, status domain.PaymentStatus, transactionID string) postgres.OutboxRecord {
	payload := mustJSON(map[string]interface{}{
		"booking_id":     bookingID,
		"payment_status": status,
		"transaction_id": transactionID,
	})
	return postgres.OutboxRecord{
		ID:            uuid.New(),
		AggregateType: "booking",
		AggregateID:   bookingID,
		EventType:     "booking.payment." + string(status),
		RoutingKey:    "booking." + bookingID.String() + ".status",
		Payload:       payload,
		DedupeKey:     uuid.New().String(),
	}
}

func bookingStatusEvent(b domain.Booking, eventType string) postgres.OutboxRecord {
	payload := mustJSON(map[string]interface{}{
		"booking_id":     b.ID,
		"ticket_id":      b.TicketID,
		"payment_status": b.PaymentStatus,
	})
	return postgres.OutboxRecord{
		ID:            uuid.New(),
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     eventType,
		RoutingKey:    "booking." + b.ID.String() + ".status",
		Payload:       payload,
		DedupeKey:     uuid.New().String(),
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func mustJSON(v interface{}) []byte {
	data, _ := json.Marshal(v)
	return data
}

func writeError(w http.ResponseWriter, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		http.Error(w, ve.Message, http.StatusBadRequest)
	case errors.Is(err, domain.ErrInvalidInput):
		http.Error(w, "invalid input", http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrConflict):
		http.Error(w, "conflict", http.StatusConflict)
	case errors.Is(err, domain.ErrSerializationFailure):
		http.Error(w, "conflict, try again", http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
