package chats

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	domain "github.com/bryanwahyu/aidentify/internal/domain/chats"
)

// ErrInvalidQuery marks a read with a missing owner or chat id.
var ErrInvalidQuery = errors.New("invalid chat query")

// Service exposes the owner-scoped chat reads.
type Service struct {
	Repo domain.Repository
}

// History lists the owner's chats, newest first.
func (s *Service) History(ctx context.Context, email string) ([]domain.Summary, error) {
	email, err := owner(email)
	if err != nil {
		return nil, err
	}
	list, err := s.Repo.ListByOwner(ctx, email)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Summary, 0, len(list))
	for _, c := range list {
		out = append(out, domain.Summary{
			ID:        c.ID,
			Title:     c.Title,
			CreatedAt: c.CreatedAt,
			Messages:  c.Messages,
		})
	}
	return out, nil
}

// Get returns one chat of the owner, or domain.ErrNotFound.
func (s *Service) Get(ctx context.Context, email, id string) (*domain.Chat, error) {
	email, err := owner(email)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: chat id is required", ErrInvalidQuery)
	}
	return s.Repo.Get(ctx, email, domain.ChatID(strings.TrimSpace(id)))
}

// Delete removes the chat only when the owner matches.
func (s *Service) Delete(ctx context.Context, email, id string) error {
	email, err := owner(email)
	if err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: chatId is required", ErrInvalidQuery)
	}
	if err := s.Repo.Delete(ctx, email, domain.ChatID(strings.TrimSpace(id))); err != nil {
		return err
	}
	log.Info().Str("email", email).Str("chat_id", id).Msg("chat deleted")
	return nil
}

func owner(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", fmt.Errorf("%w: email is required", ErrInvalidQuery)
	}
	return email, nil
}
