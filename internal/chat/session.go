package chat

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/roamstack/trip-bookings/internal/domain"
	"github.com/roamstack/trip-bookings/internal/observability"
)

const (
	eventSend   = "send"
	eventRemote = "remote"
	eventStatus = "status"
)

type event struct {
	kind   string
	text   string
	msg    domain.ChatMessage
	status domain.ChatStatus
}

// Sender persists an outgoing message. The confirmed row comes back through
// the push channel, not the return value.
type Sender func(ctx context.Context, msg domain.ChatMessage) error

// Frame is the wire envelope sent to the connected client.
type Frame struct {
	Type    string              `json:"type"`
	Message *domain.ChatMessage `json:"message,omitempty"`
	Status  domain.ChatStatus   `json:"status,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// Session owns one client's WebSocket connection to one chat thread. All
// timeline mutations (local sends, remote inserts, rollbacks) funnel through
// a single event loop, so no two reconciliation operations ever interleave,
// and all connection writes happen on that loop.
type Session struct {
	chatID   uuid.UUID
	userID   uuid.UUID
	conn     *websocket.Conn
	timeline *Timeline
	events   chan event
	done     chan struct{}
	send     Sender
	logger   observability.Logger
}

func NewSession(conn *websocket.Conn, chatID, userID uuid.UUID, history []domain.ChatMessage, send Sender, logger observability.Logger) *Session {
	return &Session{
		chatID:   chatID,
		userID:   userID,
		conn:     conn,
		timeline: NewTimeline(userID, history),
		events:   make(chan event, 64),
		done:     make(chan struct{}),
		send:     send,
		logger:   logger.WithField("chat_id", chatID.String()),
	}
}

// Run drives the session until the client disconnects or ctx is cancelled.
// The hub subscription and the connection are released on every exit path.
func (s *Session) Run(ctx context.Context, hub *Hub) {
	release := hub.Subscribe(s)
	defer release()
	defer s.conn.Close()
	defer close(s.done)

	readErr := make(chan error, 1)
	go s.readLoop(readErr)

	for _, msg := range s.timeline.Messages() {
		m := msg
		s.writeFrame(Frame{Type: "message", Message: &m})
	}

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-readErr:
			if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("websocket read: ", err)
			}
			return
		case ev := <-s.events:
			s.handle(ctx, ev)
		}
	}
}

func (s *Session) readLoop(done chan<- error) {
	for {
		var in struct {
			Text string `json:"message_text"`
		}
		if err := s.conn.ReadJSON(&in); err != nil {
			done <- err
			return
		}
		if in.Text == "" {
			continue
		}
		if !s.enqueue(event{kind: eventSend, text: in.Text}) {
			return
		}
	}
}

// enqueue offers an event to the session loop without blocking past the
// session's lifetime: a full buffer on a session that already exited would
// otherwise pin the read goroutine forever.
func (s *Session) enqueue(ev event) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}

func (s *Session) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case eventSend:
		pending := s.timeline.AppendLocal(s.chatID, ev.text)
		s.writeFrame(Frame{Type: "pending", Message: &pending})

		if err := s.send(ctx, pending); err != nil {
			s.timeline.DropPending(pending.ID)
			s.logger.Error("send message: ", err)
			s.writeFrame(Frame{Type: "error", Error: "failed to send message"})
		}
	case eventRemote:
		if s.timeline.ApplyRemote(ev.msg) {
			m := ev.msg
			s.writeFrame(Frame{Type: "message", Message: &m})
		}
	case eventStatus:
		s.writeFrame(Frame{Type: "status", Status: ev.status})
	}
}

func (s *Session) writeFrame(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		s.logger.Error("marshal frame: ", err)
		return
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.logger.Warn("websocket write: ", err)
	}
}
