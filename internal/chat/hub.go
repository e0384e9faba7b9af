package chat

import (
	"sync"

	"github.com/google/uuid"
	"github.com/roamstack/trip-bookings/internal/domain"
	"github.com/roamstack/trip-bookings/internal/observability"
)

// Hub routes confirmed chat events to the live sessions of each thread.
type Hub struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]map[*Session]struct{}
	logger   observability.Logger
}

func NewHub(logger observability.Logger) *Hub {
	return &Hub{
		sessions: make(map[uuid.UUID]map[*Session]struct{}),
		logger:   logger,
	}
}

// Subscribe registers a session for its chat thread and returns the release
// function. The session defers the release so the subscription is dropped on
// every exit path.
func (h *Hub) Subscribe(s *Session) func() {
	h.mu.Lock()
	if h.sessions[s.chatID] == nil {
		h.sessions[s.chatID] = make(map[*Session]struct{})
	}
	h.sessions[s.chatID][s] = struct{}{}
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if peers, ok := h.sessions[s.chatID]; ok {
			delete(peers, s)
			if len(peers) == 0 {
				delete(h.sessions, s.chatID)
			}
		}
	}
}

func (h *Hub) BroadcastMessage(msg domain.ChatMessage) {
	h.deliver(msg.ChatID, event{kind: eventRemote, msg: msg})
}

func (h *Hub) BroadcastStatus(chatID uuid.UUID, status domain.ChatStatus) {
	h.deliver(chatID, event{kind: eventStatus, status: status})
}

func (h *Hub) deliver(chatID uuid.UUID, ev event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.sessions[chatID] {
		select {
		case s.events <- ev:
		default:
			h.logger.WithField("chat_id", chatID.String()).Warn("session event buffer full, dropping event")
		}
	}
}
