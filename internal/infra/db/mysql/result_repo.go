package mysql

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	domain "github.com/bryanwahyu/aidentify/internal/domain/analysis"
)

type ResultRepository struct {
	db *sql.DB
}

func NewResultRepository(db *sql.DB) *ResultRepository {
	return &ResultRepository{db: db}
}

// Insert hasil analisa, tidak ada update path
func (r *ResultRepository) Insert(ctx context.Context, res *domain.Result) error {
	const q = `
INSERT INTO analysis_results
  (id, user_email, document_type, document_url, label, confidence, reason, created_at)
VALUES (?,?,?,?,?,?,?,?);`
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

// Paginate returns a page of results ordered by created_at desc plus the total
func (r *ResultRepository) Paginate(ctx context.Context, email string, page, pageSize int) ([]*domain.Result, int64, error) {
	_, pageSize, offset := pageBounds(page, pageSize)

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM analysis_results WHERE user_email=?;`, email).Scan(&total); err != nil {
		return nil, 0, err
	}

	const q = `
SELECT id, user_email, document_type, document_url, label, confidence, reason, created_at
FROM analysis_results
WHERE user_email=?
ORDER BY created_at DESC, id DESC
LIMIT ? OFFSET ?;`
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
