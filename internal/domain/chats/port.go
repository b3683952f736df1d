package chats

import "context"

// AppendRequest carries one user/assistant exchange. An empty ChatID creates a
// new chat titled Title.
type AppendRequest struct {
	Owner     string
	ChatID    ChatID
	Title     string
	User      Message
	Assistant Message
}

// Repository port. Append on an existing chat must be a single atomic
// update scoped by owner.
type Repository interface {
	Append(ctx context.Context, req AppendRequest) (ChatID, error)
	ListByOwner(ctx context.Context, owner string) ([]*Chat, error)
	Get(ctx context.Context, owner string, id ChatID) (*Chat, error)
	Delete(ctx context.Context, owner string, id ChatID) error
}
