// Package memory is an in-process store for local development and tests.
// It implements the chat, result and failure repositories with one mutex.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bryanwahyu/aidentify/internal/domain/analysis"
	"github.com/bryanwahyu/aidentify/internal/domain/chats"
	"github.com/bryanwahyu/aidentify/internal/domain/failures"
)

type Store struct {
	mu       sync.RWMutex
	chats    map[chats.ChatID]*chats.Chat
	results  []*analysis.Result
	failures []*failures.Failure
}

func NewStore() *Store {
	return &Store{chats: make(map[chats.ChatID]*chats.Chat)}
}

// ---- chats.Repository ----

func (s *Store) Append(ctx context.Context, req chats.AppendRequest) (chats.ChatID, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ChatID == "" {
		created := req.User.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		c := &chats.Chat{
			ID:        chats.ChatID(uuid.New().String()),
			UserEmail: req.Owner,
			Title:     req.Title,
			CreatedAt: created,
			Messages:  []chats.Message{req.User, req.Assistant},
		}
		s.chats[c.ID] = c
		return c.ID, nil
	}

	c, ok := s.chats[req.ChatID]
	if !ok || c.UserEmail != req.Owner {
		return "", chats.ErrChatNotFound
	}
	c.Messages = append(c.Messages, req.User, req.Assistant)
	return c.ID, nil
}

func (s *Store) ListByOwner(ctx context.Context, owner string) ([]*chats.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*chats.Chat
	for _, c := range s.chats {
		if c.UserEmail == owner {
			out = append(out, copyChat(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) Get(ctx context.Context, owner string, id chats.ChatID) (*chats.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[id]
	if !ok || c.UserEmail != owner {
		return nil, chats.ErrNotFound
	}
	return copyChat(c), nil
}

func (s *Store) Delete(ctx context.Context, owner string, id chats.ChatID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[id]
	if !ok || c.UserEmail != owner {
		return chats.ErrNotFound
	}
	delete(s.chats, id)
	return nil
}

func copyChat(c *chats.Chat) *chats.Chat {
	cp := *c
	cp.Messages = append([]chats.Message(nil), c.Messages...)
	return &cp
}

// ---- analysis.Repository ----

func (s *Store) Insert(ctx context.Context, r *analysis.Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = analysis.ResultID(uuid.New().String())
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	cp := *r
	s.results = append(s.results, &cp)
	return nil
}

func (s *Store) Paginate(ctx context.Context, email string, page, pageSize int) ([]*analysis.Result, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var mine []*analysis.Result
	for _, r := range s.results {
		if r.UserEmail == email {
			cp := *r
			mine = append(mine, &cp)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool {
		if !mine[i].CreatedAt.Equal(mine[j].CreatedAt) {
			return mine[i].CreatedAt.After(mine[j].CreatedAt)
		}
		return mine[i].ID > mine[j].ID
	})
	total := int64(len(mine))
	start := (page - 1) * pageSize
	if start >= len(mine) {
		return nil, total, nil
	}
	end := start + pageSize
	if end > len(mine) {
		end = len(mine)
	}
	return mine[start:end], total, nil
}

// ---- failures.Repository ----

func (s *Store) Save(ctx context.Context, f *failures.Failure) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	cp := *f
	s.failures = append(s.failures, &cp)
	return nil
}

func (s *Store) ListByUser(ctx context.Context, email string, limit int) ([]*failures.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*failures.Failure
	for i := len(s.failures) - 1; i >= 0 && len(out) < limit; i-- {
		if s.failures[i].UserEmail == email {
			cp := *s.failures[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

var (
	_ chats.Repository    = (*Store)(nil)
	_ analysis.Repository = (*Store)(nil)
	_ failures.Repository = (*Store)(nil)
)
