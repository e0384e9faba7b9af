package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentCancelled PaymentStatus = "cancelled"
)

type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

const DefaultCurrency = "EGP"

type BaseTrip struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Country     string    `json:"country"`
	City        string    `json:"city"`
	PhotoURLs   []string  `json:"photo_urls"`
	VideoURL    string    `json:"video_url"`
}

type TripSchedule struct {
	ID         uuid.UUID  `json:"id"`
	BaseTripID uuid.UUID  `json:"base_trip_id"`
	StartDate  time.Time  `json:"start_date"`
	EndDate    time.Time  `json:"end_date"`
	Prices     PriceTable `json:"prices"`
}

// TripListing is a bookable schedule joined with its base trip, the shape
// the trip-browsing screens consume.
type TripListing struct {
	Schedule TripSchedule `json:"schedule"`
	Trip     BaseTrip     `json:"trip"`
}

type Attendees struct {
	Members int `json:"members"`
}

type Booking struct {
	ID             uuid.UUID     `json:"id"`
	TicketID       string        `json:"ticket_id"`
	UserID         uuid.UUID     `json:"user_id"`
	TripScheduleID uuid.UUID     `json:"trip_schedule_id"`
	BookingDate    time.Time     `json:"booking_date"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	TotalPrice     Money         `json:"total_price"`
	Attendees      Attendees     `json:"attendees"`
	Rooms          RoomSelection `json:"rooms"`
}

type Review struct {
	ID         uuid.UUID `json:"id"`
	BaseTripID uuid.UUID `json:"base_trip_id"`
	UserID     uuid.UUID `json:"user_id"`
	Rating     int       `json:"rating"`
	Text       string    `json:"review_text"`
	CreatedAt  time.Time `json:"created_at"`
}

type Complaint struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Subject       string    `json:"subject"`
	Body          string    `json:"body"`
	AttachmentURL string    `json:"attachment_url"`
	CreatedAt     time.Time `json:"created_at"`
}

type ChatStatus string

const (
	ChatOpen   ChatStatus = "open"
	ChatClosed ChatStatus = "closed"
)

type SupportChat struct {
	ID        uuid.UUID  `json:"id"`
	UserID    uuid.UUID  `json:"user_id"`
	Status    ChatStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// ChatMessage exists in two provenances: rows persisted by the server
// (stable UUID id) and locally synthesized pending messages, which carry a
// "temp-" prefixed ID until the server echo replaces them. ClientRef is a
// client-generated correlation id echoed back on insert; when present it
// disambiguates identical-text pending messages during reconciliation.
type ChatMessage struct {
	ID        string    `json:"id"`
	ChatID    uuid.UUID `json:"chat_id"`
	SenderID  uuid.UUID `json:"sender_id"`
	Text      string    `json:"message_text"`
	ClientRef string    `json:"client_ref,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
