package mysql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/aidentify/internal/domain/chats"
)

type ChatRepository struct {
	db *sql.DB
}

func NewChatRepository(db *sql.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

// Append buat chat baru atau tambah sepasang message secara atomik
func (r *ChatRepository) Append(ctx context.Context, req domain.AppendRequest) (domain.ChatID, error) {
	pair, err := json.Marshal([]domain.Message{req.User, req.Assistant})
	if err != nil {
		return "", err
	}

	if req.ChatID == "" {
		id := domain.ChatID(uuid.New().String())
		const q = `
INSERT INTO chats (id, user_email, title, messages, created_at)
VALUES (?,?,?,?,?);`
		created := nowIfZero(req.User.CreatedAt)
		if _, err := r.db.ExecContext(ctx, q, id, req.Owner, stringOrDash(req.Title), string(pair), created); err != nil {
			return "", fmt.Errorf("insert chat: %w", err)
		}
		return id, nil
	}

	const q = `
UPDATE chats
SET messages = JSON_MERGE_PRESERVE(messages, CAST(? AS JSON))
WHERE id=? AND user_email=?;`
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

// ListByOwner returns chats newest first
func (r *ChatRepository) ListByOwner(ctx context.Context, owner string) ([]*domain.Chat, error) {
	const q = `
SELECT id, user_email, title, messages, created_at
FROM chats
WHERE user_email=?
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
WHERE id=? AND user_email=? LIMIT 1;`
	c, err := scanChat(r.db.QueryRowContext(ctx, q, id, owner))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return c, err
}

func (r *ChatRepository) Delete(ctx context.Context, owner string, id domain.ChatID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM chats WHERE id=? AND user_email=?;`, id, owner)
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
