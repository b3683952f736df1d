package analysis

import "context"

// Repository port (persistence hasil analisa)
type Repository interface {
	Insert(ctx context.Context, r *Result) error
	Paginate(ctx context.Context, email string, page, pageSize int) ([]*Result, int64, error)
}
