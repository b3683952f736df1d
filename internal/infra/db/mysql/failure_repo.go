package mysql

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/aidentify/internal/domain/failures"
)

type FailureRepository struct {
	db *sql.DB
}

func NewFailureRepository(db *sql.DB) *FailureRepository { return &FailureRepository{db: db} }

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	const q = `
INSERT INTO analysis_failures
  (id, user_email, kind, stage, message, details_json, created_at)
VALUES (?,?,?,?,?,?,?);`
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	msg := f.Message
	if strings.TrimSpace(msg) == "" {
		msg = "-"
	}
	f.CreatedAt = nowIfZero(f.CreatedAt)
	_, err := r.db.ExecContext(ctx, q,
		f.ID, stringOrDash(f.UserEmail), stringOrDash(f.Kind), stringOrDash(f.Stage),
		msg, jsonOrEmpty(f.DetailsJSON), f.CreatedAt,
	)
	return err
}

func (r *FailureRepository) ListByUser(ctx context.Context, email string, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	const q = `
SELECT id, user_email, kind, stage, message, details_json, created_at
FROM analysis_failures
WHERE user_email = ?
ORDER BY created_at DESC, id DESC
LIMIT ?;`
	rows, err := r.db.QueryContext(ctx, q, email, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Failure
	for rows.Next() {
		var f domain.Failure
		if err := rows.Scan(&f.ID, &f.UserEmail, &f.Kind, &f.Stage, &f.Message, &f.DetailsJSON, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}
