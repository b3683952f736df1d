package analysis

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/bryanwahyu/aidentify/internal/domain/analysis"
	"github.com/bryanwahyu/aidentify/internal/domain/failures"
)

const (
	defaultPageSize  = 10
	maxPageSize      = 100
	defaultFailLimit = 20
	maxFailLimit     = 200
)

// ListResults pages through the owner's standalone results, newest first.
func (s *Service) ListResults(ctx context.Context, email string, page, pageSize int) (*domain.PaginatedResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidCommand)
	}
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	data, total, err := s.Results.Paginate(ctx, email, page, pageSize)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []*domain.Result{}
	}
	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &domain.PaginatedResult{
		Data:       data,
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
	}, nil
}

// RecentFailures lists the owner's latest aborted pipelines.
func (s *Service) RecentFailures(ctx context.Context, email string, limit int) ([]*failures.Failure, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", ErrInvalidCommand)
	}
	if limit <= 0 {
		limit = defaultFailLimit
	}
	if limit > maxFailLimit {
		limit = maxFailLimit
	}
	if s.Failures == nil {
		return []*failures.Failure{}, nil
	}
	list, err := s.Failures.ListByUser(ctx, email, limit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []*failures.Failure{}
	}
	return list, nil
}
