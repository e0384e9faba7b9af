package chat

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/roamstack/trip-bookings/internal/domain"
)

const pendingPrefix = "temp-"

// Timeline is the ordered message sequence of one support-chat thread as a
// connected client sees it: confirmed rows interleaved with locally pending
// sends. A pending entry keeps its position when the server echo replaces
// it, so confirmation never reorders the thread. Timeline is not safe for
// concurrent use; the owning session serializes every operation on one
// goroutine.
type Timeline struct {
	localUser uuid.UUID
	msgs      []domain.ChatMessage
	seq       uint64
}

func NewTimeline(localUser uuid.UUID, history []domain.ChatMessage) *Timeline {
	t := &Timeline{localUser: localUser}
	t.msgs = append(t.msgs, history...)
	return t
}

func IsPending(id string) bool {
	return strings.HasPrefix(id, pendingPrefix)
}

// AppendLocal adds an optimistic message and returns it. The id is unique
// within the session; ClientRef is a fresh correlation id the server is
// expected to echo back on insert.
func (t *Timeline) AppendLocal(chatID uuid.UUID, text string) domain.ChatMessage {
	t.seq++
	msg := domain.ChatMessage{
		ID:        fmt.Sprintf("%s%d-%d", pendingPrefix, time.Now().UnixMilli(), t.seq),
		ChatID:    chatID,
		SenderID:  t.localUser,
		Text:      text,
		ClientRef: uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
	t.msgs = append(t.msgs, msg)
	return msg
}

// ApplyRemote reconciles a server-confirmed insert. An echo of the local
// user's own send replaces the matching pending entry in place; anything
// else is appended, skipping ids already present. Returns true when the
// timeline changed.
func (t *Timeline) ApplyRemote(msg domain.ChatMessage) bool {
	if msg.SenderID == t.localUser {
		if i := t.findPending(msg); i >= 0 {
			t.msgs[i] = msg
			return true
		}
	}
	for _, m := range t.msgs {
		if m.ID == msg.ID {
			return false
		}
	}
	t.msgs = append(t.msgs, msg)
	return true
}

// DropPending rolls back a failed send, removing exactly the entry that
// AppendLocal created.
func (t *Timeline) DropPending(pendingID string) bool {
	for i, m := range t.msgs {
		if m.ID == pendingID {
			t.msgs = append(t.msgs[:i], t.msgs[i+1:]...)
			return true
		}
	}
	return false
}

func (t *Timeline) Messages() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(t.msgs))
	copy(out, t.msgs)
	return out
}

func (t *Timeline) Len() int {
	return len(t.msgs)
}

// findPending locates the pending entry a confirmed echo corresponds to.
// The correlation ref is authoritative when the server echoes one; the
// (sender, text) match is the legacy fallback and assumes at most one
// in-flight send per distinct text.
func (t *Timeline) findPending(msg domain.ChatMessage) int {
	for i, m := range t.msgs {
		if !IsPending(m.ID) {
			continue
		}
		if msg.ClientRef != "" {
			if m.ClientRef == msg.ClientRef {
				return i
			}
			continue
		}
		if m.Text == msg.Text {
			return i
		}
	}
	return -1
}
