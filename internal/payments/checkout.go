package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/roamstack/trip-bookings/internal/domain"
)

// CheckoutClient talks to the hosted checkout provider. The provider owns
// the whole payment flow; all this service gets back is a redirect URL, and
// the eventual outcome arrives through the payment callback webhook.
type CheckoutClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewCheckoutClient(baseURL, apiKey string) *CheckoutClient {
	return &CheckoutClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// BookingInfo uses the provider's field names.
type BookingInfo struct {
	SingleRooms int `json:"singleRooms"`
	DoubleRooms int `json:"doubleRooms"`
	TripleRooms int `json:"tripleRooms"`
	Members     int `json:"members"`
}

type SessionRequest struct {
	TripScheduleID uuid.UUID   `json:"trip_schedule_id"`
	UserID         uuid.UUID   `json:"user_id"`
	BookingID      uuid.UUID   `json:"booking_id"`
	BookingInfo    BookingInfo `json:"booking_info"`
}

type Session struct {
	URL string `json:"url"`
}

func InfoFromBooking(b domain.Booking) BookingInfo {
	return BookingInfo{
		SingleRooms: b.Rooms.Single,
		DoubleRooms: b.Rooms.Double,
		TripleRooms: b.Rooms.Triple,
		Members:     b.Attendees.Members,
	}
}

func (c *CheckoutClient) CreateSession(ctx context.Context, req SessionRequest) (*Session, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/create-checkout-session", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "checkout provider unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("checkout provider returned %d: %s", resp.StatusCode, data)
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, err
	}
	if session.URL == "" {
		return nil, errors.New("could not retrieve payment URL")
	}
	return &session, nil
}
