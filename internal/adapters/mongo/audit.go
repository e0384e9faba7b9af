package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/roamstack/trip-bookings/internal/domain"
	"github.com/roamstack/trip-bookings/internal/observability"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AuditLogger keeps a best-effort trail of booking and complaint activity.
// Failures are logged, never propagated into the request path.
type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        uuid.UUID `bson:"_id"`
	Action    string    `bson:"action"`
	UserID    uuid.UUID `bson:"user_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, action string, userID uuid.UUID, data map[string]interface{}) {
	log := AuditLog{
		ID:        uuid.New(),
		Action:    action,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Data:      bson.M(data),
	}
	if _, err := a.coll.InsertOne(ctx, log); err != nil {
		a.logger.Error("failed to insert audit log: ", err)
	}
}

func (a *AuditLogger) LogBooking(ctx context.Context, action string, b domain.Booking) {
	a.LogEvent(ctx, action, b.UserID, map[string]interface{}{
		"booking_id":       b.ID,
		"ticket_id":        b.TicketID,
		"trip_schedule_id": b.TripScheduleID,
		"payment_status":   string(b.PaymentStatus),
		"total":            b.TotalPrice.Amount.String(),
		"currency":         b.TotalPrice.Currency,
		"members":          b.Attendees.Members,
	})
}

func (a *AuditLogger) LogComplaint(ctx context.Context, c domain.Complaint) {
	a.LogEvent(ctx, "complaint.created", c.UserID, map[string]interface{}{
		"complaint_id":   c.ID,
		"subject":        c.Subject,
		"has_attachment": c.AttachmentURL != "",
	})
}
