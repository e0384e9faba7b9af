package postgres

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/roamstack/trip-bookings/internal/domain"
)

const (
	serializationFailureCode = "40001"
	uniqueViolationCode      = "23505"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case serializationFailureCode:
				return domain.ErrSerializationFailure
			case uniqueViolationCode:
				return domain.ErrConflict
			}
		}
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repository) GetTripSchedule(ctx context.Context, id uuid.UUID) (*domain.TripSchedule, error) {
	var s domain.TripSchedule
	err := r.pool.QueryRow(ctx, `
		SELECT id, base_trip_id, start_date, end_date, price
		FROM trip_schedules WHERE id = $1
	`, id).Scan(&s.ID, &s.BaseTripID, &s.StartDate, &s.EndDate, &s.Prices)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *Repository) GetBaseTrip(ctx context.Context, id uuid.UUID) (*domain.BaseTrip, error) {
	var t domain.BaseTrip
	err := r.pool.QueryRow(ctx, `
		SELECT id, title, description, country, city, photo_urls, video_url
		FROM base_trips WHERE id = $1
	`, id).Scan(&t.ID, &t.Title, &t.Description, &t.Country, &t.City, &t.PhotoURLs, &t.VideoURL)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *Repository) ListTrips(ctx context.Context) ([]domain.TripListing, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT s.id, s.base_trip_id, s.start_date, s.end_date, s.price,
		       t.id, t.title, t.description, t.country, t.city, t.photo_urls, t.video_url
		FROM trip_schedules s
		JOIN base_trips t ON t.id = s.base_trip_id
		ORDER BY s.start_date ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []domain.TripListing
	for rows.Next() {
		var l domain.TripListing
		err := rows.Scan(
			&l.Schedule.ID, &l.Schedule.BaseTripID, &l.Schedule.StartDate, &l.Schedule.EndDate, &l.Schedule.Prices,
			&l.Trip.ID, &l.Trip.Title, &l.Trip.Description, &l.Trip.Country, &l.Trip.City, &l.Trip.PhotoURLs, &l.Trip.VideoURL,
		)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

func (r *Repository) CreateBooking(ctx context.Context, tx pgx.Tx, b domain.Booking) error {
	result, err := tx.Exec(ctx, `
		INSERT INTO bookings (id, ticket_id, user_id, trip_schedule_id, booking_date, payment_status, total_price, attendees, rooms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id, trip_schedule_id) WHERE payment_status <> 'cancelled' DO NOTHING
	`, b.ID, b.TicketID, b.UserID, b.TripScheduleID, b.BookingDate, b.PaymentStatus, b.TotalPrice, b.Attendees, b.Rooms)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *Repository) GetBooking(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return r.scanBooking(r.pool.QueryRow(ctx, `
		SELECT id, ticket_id, user_id, trip_schedule_id, booking_date, payment_status, total_price, attendees, rooms
		FROM bookings WHERE id = $1
	`, id))
}

func (r *Repository) GetBookingByTicket(ctx context.Context, ticketID string) (*domain.Booking, error) {
	return r.scanBooking(r.pool.QueryRow(ctx, `
		SELECT id, ticket_id, user_id, trip_schedule_id, booking_date, payment_status, total_price, attendees, rooms
		FROM bookings WHERE ticket_id = $1
	`, ticketID))
}

// FindUserBooking is the duplicate-booking guard: one live booking per user
// per schedule.
func (r *Repository) FindUserBooking(ctx context.Context, userID, scheduleID uuid.UUID) (*domain.Booking, error) {
	return r.scanBooking(r.pool.QueryRow(ctx, `
		SELECT id, ticket_id, user_id, trip_schedule_id, booking_date, payment_status, total_price, attendees, rooms
		FROM bookings
		WHERE user_id = $1 AND trip_schedule_id = $2 AND payment_status <> 'cancelled'
		LIMIT 1
	`, userID, scheduleID))
}

func (r *Repository) UpdateBookingStatus(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.PaymentStatus) error {
	result, err := tx.Exec(ctx, `
		UPDATE bookings SET payment_status = $2 WHERE id = $1
	`, id, status)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// CancelIfPending cancels a booking only while it is still unpaid, so a
// payment landing between a stale scan and the cancel write is never
// overwritten. Returns false when the row already settled.
func (r *Repository) CancelIfPending(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE bookings SET payment_status = 'cancelled'
		WHERE id = $1 AND payment_status = 'pending'
	`, id)
	if err != nil {
		return false, err
	}
	return result.RowsAffected() > 0, nil
}

// GetStalePendingBookings lists bookings still unpaid past the cutoff, for
// the expirer worker.
func (r *Repository) GetStalePendingBookings(ctx context.Context, cutoff time.Time) ([]domain.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, ticket_id, user_id, trip_schedule_id, booking_date, payment_status, total_price, attendees, rooms
		FROM bookings WHERE payment_status = 'pending' AND booking_date <= $1
	`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []domain.Booking
	for rows.Next() {
		var b domain.Booking
		err := rows.Scan(&b.ID, &b.TicketID, &b.UserID, &b.TripScheduleID, &b.BookingDate,
			&b.PaymentStatus, &b.TotalPrice, &b.Attendees, &b.Rooms)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *Repository) scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	err := row.Scan(&b.ID, &b.TicketID, &b.UserID, &b.TripScheduleID, &b.BookingDate,
		&b.PaymentStatus, &b.TotalPrice, &b.Attendees, &b.Rooms)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}
