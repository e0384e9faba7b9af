package chat

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/roamstack/trip-bookings/internal/domain"
	"github.com/roamstack/trip-bookings/internal/observability"
)

// Relay feeds broker deliveries into the hub. Chat events arrive on routing
// keys of the form chat.<chat_id>.message and chat.<chat_id>.status.
type Relay struct {
	hub    *Hub
	logger observability.Logger
}

func NewRelay(hub *Hub, logger observability.Logger) *Relay {
	return &Relay{hub: hub, logger: logger}
}

func (r *Relay) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			r.dispatch(d)
			d.Ack(false)
		}
	}
}

func (r *Relay) dispatch(d amqp.Delivery) {
	parts := strings.Split(d.RoutingKey, ".")
	if len(parts) != 3 || parts[0] != "chat" {
		return
	}

	switch parts[2] {
	case "message":
		var msg domain.ChatMessage
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			r.logger.Error("decode chat message event: ", err)
			return
		}
		r.hub.BroadcastMessage(msg)
	case "status":
		var ev struct {
			ChatID uuid.UUID         `json:"chat_id"`
			Status domain.ChatStatus `json:"status"`
		}
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			r.logger.Error("decode chat status event: ", err)
			return
		}
		r.hub.BroadcastStatus(ev.ChatID, ev.Status)
	}
}
