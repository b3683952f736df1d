package chats

import "errors"

var (
	// ErrChatNotFound is returned when appending to a chat the owner does not have.
	ErrChatNotFound = errors.New("chat not found")
	// ErrNotFound is returned by owner-scoped reads and deletes.
	ErrNotFound = errors.New("not found")
)
