package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/roamstack/trip-bookings/internal/domain"
)

func (r *Repository) CreateReview(ctx context.Context, review domain.Review) error {
	result, err := r.pool.Exec(ctx, `
		INSERT INTO reviews (id, base_trip_id, user_id, rating, review_text)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (base_trip_id, user_id) DO NOTHING
	`, review.ID, review.BaseTripID, review.UserID, review.Rating, review.Text)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrConflict
	}
	return nil
}

func (r *Repository) UpdateReview(ctx context.Context, id, userID uuid.UUID, rating int, text string) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE reviews SET rating = $3, review_text = $4 WHERE id = $1 AND user_id = $2
	`, id, userID, rating, text)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteReview(ctx context.Context, id, userID uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM reviews WHERE id = $1 AND user_id = $2
	`, id, userID)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) ListReviews(ctx context.Context, baseTripID uuid.UUID) ([]domain.Review, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, base_trip_id, user_id, rating, review_text, created_at
		FROM reviews WHERE base_trip_id = $1 ORDER BY created_at DESC
	`, baseTripID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(&rv.ID, &rv.BaseTripID, &rv.UserID, &rv.Rating, &rv.Text, &rv.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, rv)
	}
	return reviews, rows.Err()
}

func (r *Repository) CreateComplaint(ctx context.Context, c domain.Complaint) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO complaints (id, user_id, subject, body, attachment_url)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.UserID, c.Subject, c.Body, c.AttachmentURL)
	return err
}
