package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/roamstack/trip-bookings/internal/adapters/postgres"
	"github.com/roamstack/trip-bookings/internal/chat"
	"github.com/roamstack/trip-bookings/internal/domain"
	"github.com/roamstack/trip-bookings/internal/observability"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// GetChat returns the user's latest support chat with its messages, or an
// empty state when they have never opened one.
func (h *Handlers) GetChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}

	c, err := h.repo.GetLatestChat(r.Context(), userID)
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"chat":     nil,
			"messages": []domain.ChatMessage{},
		})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	msgs, err := h.repo.ListMessages(r.Context(), c.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if msgs == nil {
		msgs = []domain.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"chat": c, "messages": msgs})
}

// SendMessage persists a chat message and its outbox event in one
// transaction. The confirmed row reaches subscribers through the broker, so
// an optimistic client sees its own send come back with the client_ref it
// supplied.
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}

	var req struct {
		Text      string `json:"message_text"`
		ClientRef string `json:"client_ref"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Text == "" {
		http.Error(w, "message text is required", http.StatusBadRequest)
		return
	}

	c, err := h.ensureOpenChat(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	var msg domain.ChatMessage
	err = h.repo.WithTx(r.Context(), func(tx pgx.Tx) error {
		var err error
		msg, err = h.repo.CreateMessage(r.Context(), tx, c.ID, userID, req.Text, req.ClientRef)
		if err != nil {
			return err
		}
		return h.repo.InsertOutbox(r.Context(), tx, chatMessageEvent(msg))
	})
	if err != nil {
		writeError(w, err)
		return
	}

	observability.ChatMessagesSent.Inc()
	writeJSON(w, http.StatusCreated, msg)
}

// CloseChat closes the caller's own chat thread. Support staff close
// threads through their own tooling, not this endpoint.
func (h *Handlers) CloseChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}
	chatID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	c, err := h.repo.GetChat(r.Context(), chatID)
	if err != nil {
		writeError(w, err)
		return
	}
	if c.UserID != userID {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if err := h.repo.UpdateChatStatus(r.Context(), chatID, domain.ChatClosed); err != nil {
		writeError(w, err)
		return
	}
	h.hub.BroadcastStatus(chatID, domain.ChatClosed)

	// peers on other instances hear about it through the broker
	payload := mustJSON(map[string]interface{}{"chat_id": chatID, "status": domain.ChatClosed})
	msg := amqp.Publishing{
		MessageId:   uuid.New().String(),
		ContentType: "application/json",
		Body:        payload,
	}
	if err := h.rabbitPub.Publish(r.Context(), "chat."+chatID.String()+".status", msg); err != nil {
		h.logger.Error("publish chat status: ", err)
	}
	w.WriteHeader(http.StatusOK)
}

// ChatWS upgrades to a WebSocket session bound to the user's open chat. The
// session subscribes to the hub for the thread and is guaranteed to release
// the subscription and the connection on every exit path.
func (h *Handlers) ChatWS(w http.ResponseWriter, r *http.Request) {
	userID, ok := UserID(r.Context())
	if !ok {
		http.Error(w, "not logged in", http.StatusUnauthorized)
		return
	}

	c, err := h.ensureOpenChat(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	history, err := h.repo.ListMessages(r.Context(), c.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade: ", err)
		return
	}

	send := func(ctx context.Context, pending domain.ChatMessage) error {
		err := h.repo.WithTx(ctx, func(tx pgx.Tx) error {
			confirmed, err := h.repo.CreateMessage(ctx, tx, pending.ChatID, pending.SenderID, pending.Text, pending.ClientRef)
			if err != nil {
				return err
			}
			return h.repo.InsertOutbox(ctx, tx, chatMessageEvent(confirmed))
		})
		if err == nil {
			observability.ChatMessagesSent.Inc()
		}
		return err
	}

	session := chat.NewSession(conn, c.ID, userID, history, send, h.logger)

	observability.ChatSessionsActive.Inc()
	defer observability.ChatSessionsActive.Dec()
	session.Run(r.Context(), h.hub)
}

// ensureOpenChat finds the user's latest chat, creating one when none
// exists. Messages to a closed chat are refused.
func (h *Handlers) ensureOpenChat(ctx context.Context, userID uuid.UUID) (*domain.SupportChat, error) {
	c, err := h.repo.GetLatestChat(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return h.repo.CreateChat(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	if c.Status == domain.ChatClosed {
		return nil, domain.ErrConflict
	}
	return c, nil
}

func chatMessageEvent(msg domain.ChatMessage) postgres.OutboxRecord {
	payload, _ := json.Marshal(msg)
	return postgres.OutboxRecord{
		ID:            uuid.New(),
		AggregateType: "chat_message",
		AggregateID:   msg.ChatID,
		EventType:     "chat.message.created",
		RoutingKey:    "chat." + msg.ChatID.String() + ".message",
		Payload:       payload,
		DedupeKey:     uuid.New().String(),
	}
}
