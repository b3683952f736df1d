package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/aidentify/internal/domain/chats"
)

type ChatRepository struct{ db *sql.DB }

func NewChatRepository(db *sql.DB) *ChatRepository { return &ChatRepository{db: db} }

func (r *ChatRepository) Append(ctx context.Context, req domain.AppendRequest) (domain.ChatID, error) {
	pair, err := json.Marshal([]domain.Message{req.User, req.Assistant})
	if err != nil {
		return "", err
	}

	if req.ChatID == "" {
		id := domain.ChatID(uuid.New().String())
		const q = `
INSERT INTO chats (id, user_email, title, messages, created_at)
VALUES ($1,$2,$3,$4::jsonb,$5);`
		if _, err := r.db.ExecContext(ctx, q, id, req.Owner, stringOrDash(req.Title), string(pair), nowIfZero(req.User.CreatedAt)); err != nil {
			return "", fmt.Errorf("insert chat: %w", err)
		}
		return id, nil
	}

	// single-row update, jsonb concat keeps existing order
	const q = `
UPDATE chats SET messages = messages || $1::jsonb
WHERE id=$2 AND user_email=$3;`
	res, err := r.db.ExecContext(ctx, q, string(pair), req.ChatID, req.Owner)
	if err != nil {
		return "", fmt.Errorf("append chat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", domain.ErrChatNotFound
	}
	return req.ChatID, nil
}

func (r *ChatRepository) ListByOwner(ctx context.Context, owner string) ([]*domain.Chat, error) {
	const q = `
SELECT id, user_email, title, messages, created_at
FROM chats
WHERE user_email=$1
ORDER BY created_at DESC, id DESC;`
	rows, err := r.db.QueryContext(ctx, q, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ChatRepository) Get(ctx context.Context, owner string, id domain.ChatID) (*domain.Chat, error) {
	const q = `
SELECT id, user_email, title, messages, created_at
FROM chats
WHERE id=$1 AND user_email=$2 LIMIT 1;`
	c, err := scanChat(r.db.QueryRowContext(ctx, q, id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return c, err
}

func (r *ChatRepository) Delete(ctx context.Context, owner string, id domain.ChatID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chats WHERE id=$1 AND user_email=$2;`, id, owner)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(s rowScanner) (*domain.Chat, error) {
	var c domain.Chat
	var raw []byte
	if err := s.Scan(&c.ID, &c.UserEmail, &c.Title, &raw, &c.CreatedAt); err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c.Messages); err != nil {
			return nil, fmt.Errorf("decode messages of chat %s: %w", c.ID, err)
		}
	}
	return &c, nil
}
