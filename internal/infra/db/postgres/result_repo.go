package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/aidentify/internal/domain/analysis"
)

type ResultRepository struct{ db *sql.DB }

func NewResultRepository(db *sql.DB) *ResultRepository { return &ResultRepository{db: db} }

func (r *ResultRepository) Insert(ctx context.Context, res *domain.Result) error {
	const q = `
INSERT INTO analysis_results
  (id, user_email, document_type, document_url, label, confidence, reason, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	if res.ID == "" {
		res.ID = domain.ResultID(uuid.New().String())
	}
	res.CreatedAt = nowIfZero(res.CreatedAt)
	_, err := r.db.ExecContext(ctx, q,
		res.ID, stringOrDash(res.UserEmail), string(res.DocumentType), res.DocumentURL,
		stringOrDash(string(res.Label)), res.Confidence, res.Reason, res.CreatedAt,
	)
	return err
}

func (r *ResultRepository) Paginate(ctx context.Context, email string, page, pageSize int) ([]*domain.Result, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	offset := (page - 1) * pageSize

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_results WHERE user_email=$1;`, email).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `
SELECT id, user_email, document_type, document_url, label, confidence, reason, created_at
FROM analysis_results
WHERE user_email=$1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3;`
	rows, err := r.db.QueryContext(ctx, q, email, pageSize, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*domain.Result
	for rows.Next() {
		var a domain.Result
		if err := rows.Scan(&a.ID, &a.UserEmail, &a.DocumentType, &a.DocumentURL, &a.Label, &a.Confidence, &a.Reason, &a.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, &a)
	}
	return out, total, rows.Err()
}
