package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/roamstack/trip-bookings/internal/domain"
)

// GetLatestChat returns the user's most recent support chat, ErrNotFound
// when they have never opened one.
func (r *Repository) GetLatestChat(ctx context.Context, userID uuid.UUID) (*domain.SupportChat, error) {
	var c domain.SupportChat
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, status, created_at
		FROM support_chats WHERE user_id = $1
		ORDER BY created_at DESC LIMIT 1
	`, userID).Scan(&c.ID, &c.UserID, &c.Status, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) GetChat(ctx context.Context, chatID uuid.UUID) (*domain.SupportChat, error) {
	var c domain.SupportChat
	err := r.pool.QueryRow(ctx, `
		SELECT id, user_id, status, created_at
		FROM support_chats WHERE id = $1
	`, chatID).Scan(&c.ID, &c.UserID, &c.Status, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) CreateChat(ctx context.Context, userID uuid.UUID) (*domain.SupportChat, error) {
	c := domain.SupportChat{
		ID:        uuid.New(),
		UserID:    userID,
		Status:    domain.ChatOpen,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO support_chats (id, user_id, status, created_at)
		VALUES ($1, $2, $3, $4)
	`, c.ID, c.UserID, c.Status, c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) UpdateChatStatus(ctx context.Context, chatID uuid.UUID, status domain.ChatStatus) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE support_chats SET status = $2 WHERE id = $1
	`, chatID, status)
	if err != nil {
		return err
	}
	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *Repository) ListMessages(ctx context.Context, chatID uuid.UUID) ([]domain.ChatMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, chat_id, sender_id, message_text, COALESCE(client_ref, ''), created_at
		FROM chat_messages WHERE chat_id = $1 ORDER BY created_at ASC
	`, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var msgs []domain.ChatMessage
	for rows.Next() {
		var m domain.ChatMessage
		if err := rows.Scan(&m.ID, &m.ChatID, &m.SenderID, &m.Text, &m.ClientRef, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// CreateMessage persists an incoming send with a server-assigned id and
// returns the confirmed row. The caller's client ref is stored so the echo
// can be matched to its pending entry.
func (r *Repository) CreateMessage(ctx context.Context, tx pgx.Tx, chatID, senderID uuid.UUID, text, clientRef string) (domain.ChatMessage, error) {
	m := domain.ChatMessage{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      text,
		ClientRef: clientRef,
		CreatedAt: time.Now().UTC(),
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO chat_messages (id, chat_id, sender_id, message_text, client_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, m.ID, m.ChatID, m.SenderID, m.Text, m.ClientRef, m.CreatedAt)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	return m, nil
}
