package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type DraftState string

const (
	DraftEditing    DraftState = "EDITING"
	DraftReady      DraftState = "READY"
	DraftSubmitting DraftState = "SUBMITTING"
	DraftSubmitted  DraftState = "SUBMITTED"
)

// BookingDraft is the transient selection a user builds before paying:
// attendee count plus room counts against one trip schedule. It validates
// fail-fast on submit, never aggregating rule failures, and guards against
// double submission by refusing BeginSubmit while one is in flight. A failed
// submission drops back to READY with the selections intact.
type BookingDraft struct {
	ScheduleID uuid.UUID
	UserID     uuid.UUID
	Attendees  int
	Rooms      RoomSelection
	Prices     PriceTable

	state DraftState
}

func NewBookingDraft(scheduleID, userID uuid.UUID, prices PriceTable) *BookingDraft {
	return &BookingDraft{
		ScheduleID: scheduleID,
		UserID:     userID,
		Attendees:  1,
		Prices:     prices,
		state:      DraftEditing,
	}
}

func (d *BookingDraft) State() DraftState {
	return d.state
}

// AdjustPeople moves the attendee count by delta, clamping at one.
func (d *BookingDraft) AdjustPeople(delta int) error {
	if err := d.editable(); err != nil {
		return err
	}
	d.Attendees += delta
	if d.Attendees < 1 {
		d.Attendees = 1
	}
	d.state = DraftEditing
	return nil
}

// AdjustRoom moves one room-type count by delta, clamping at zero.
func (d *BookingDraft) AdjustRoom(t RoomType, delta int) error {
	if err := d.editable(); err != nil {
		return err
	}
	switch t {
	case RoomSingle:
		d.Rooms.Single = clampZero(d.Rooms.Single + delta)
	case RoomDouble:
		d.Rooms.Double = clampZero(d.Rooms.Double + delta)
	case RoomTriple:
		d.Rooms.Triple = clampZero(d.Rooms.Triple + delta)
	default:
		return ErrInvalidInput
	}
	d.state = DraftEditing
	return nil
}

func (d *BookingDraft) Totals() Totals {
	return ComputeTotals(d.Rooms, d.Prices)
}

// Validate applies the booking rules in order; the first failing rule wins.
func (d *BookingDraft) Validate() error {
	totals := d.Totals()
	totalRooms := d.Rooms.Total()

	if totalRooms == 0 {
		return &ValidationError{Message: "please select at least one room before booking"}
	}
	if d.Attendees > totals.Capacity {
		return &ValidationError{Message: fmt.Sprintf(
			"you selected %d people, but the rooms only hold %d", d.Attendees, totals.Capacity)}
	}
	if d.Attendees < totalRooms {
		return &ValidationError{Message: fmt.Sprintf(
			"the number of people (%d) cannot be less than the rooms selected (%d)", d.Attendees, totalRooms)}
	}

	d.state = DraftReady
	return nil
}

// BeginSubmit validates the draft and, if it is ready, builds the booking
// payload and marks the draft in flight. Callers persist the payload (or
// hand it straight to checkout) and then settle with CompleteSubmit or
// FailSubmit.
func (d *BookingDraft) BeginSubmit() (Booking, error) {
	if d.state == DraftSubmitting {
		return Booking{}, ErrSubmitInFlight
	}
	if d.state == DraftSubmitted {
		return Booking{}, ErrConflict
	}
	if err := d.Validate(); err != nil {
		return Booking{}, err
	}

	d.state = DraftSubmitting
	return Booking{
		ID:             uuid.New(),
		TicketID:       NewTicketID(),
		UserID:         d.UserID,
		TripScheduleID: d.ScheduleID,
		BookingDate:    time.Now().UTC(),
		PaymentStatus:  PaymentPending,
		TotalPrice:     Money{Amount: d.Totals().Price, Currency: DefaultCurrency},
		Attendees:      Attendees{Members: d.Attendees},
		Rooms:          d.Rooms,
	}, nil
}

func (d *BookingDraft) CompleteSubmit() {
	if d.state == DraftSubmitting {
		d.state = DraftSubmitted
	}
}

// FailSubmit returns the draft to READY so the user can retry with the same
// selections.
func (d *BookingDraft) FailSubmit() {
	if d.state == DraftSubmitting {
		d.state = DraftReady
	}
}

func (d *BookingDraft) editable() error {
	if d.state == DraftSubmitting || d.state == DraftSubmitted {
		return ErrSubmitInFlight
	}
	return nil
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

func NewTicketID() string {
	return fmt.Sprintf("TICK-%d", time.Now().UnixMilli())
}
