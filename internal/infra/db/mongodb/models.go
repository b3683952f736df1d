package mongodb

import (
	"time"

	"github.com/bryanwahyu/aidentify/internal/domain/analysis"
	"github.com/bryanwahyu/aidentify/internal/domain/chats"
	"github.com/bryanwahyu/aidentify/internal/domain/failures"
)

type chatDoc struct {
	ID        string          `bson:"_id"`
	UserEmail string          `bson:"user_email"`
	Title     string          `bson:"title"`
	CreatedAt time.Time       `bson:"created_at"`
	Messages  []chats.Message `bson:"messages"`
}

func (d chatDoc) toDomain() *chats.Chat {
	return &chats.Chat{
		ID:        chats.ChatID(d.ID),
		UserEmail: d.UserEmail,
		Title:     d.Title,
		CreatedAt: d.CreatedAt,
		Messages:  d.Messages,
	}
}

type resultDoc struct {
	ID           string    `bson:"_id"`
	UserEmail    string    `bson:"user_email"`
	DocumentType string    `bson:"document_type"`
	DocumentURL  string    `bson:"document_url"`
	Label        string    `bson:"label"`
	Confidence   float64   `bson:"confidence"`
	Reason       string    `bson:"reason"`
	CreatedAt    time.Time `bson:"created_at"`
}

func resultFromDomain(r *analysis.Result) resultDoc {
	return resultDoc{
		ID:           string(r.ID),
		UserEmail:    r.UserEmail,
		DocumentType: string(r.DocumentType),
		DocumentURL:  r.DocumentURL,
		Label:        string(r.Label),
		Confidence:   r.Confidence,
		Reason:       r.Reason,
		CreatedAt:    r.CreatedAt,
	}
}

type failureDoc struct {
	ID          string    `bson:"_id"`
	UserEmail   string    `bson:"user_email"`
	Kind        string    `bson:"kind"`
	Stage       string    `bson:"stage"`
	Message     string    `bson:"message"`
	DetailsJSON string    `bson:"details_json"`
	CreatedAt   time.Time `bson:"created_at"`
}

func (d failureDoc) toDomain() *failures.Failure {
	return &failures.Failure{
		ID:          d.ID,
		UserEmail:   d.UserEmail,
		Kind:        d.Kind,
		Stage:       d.Stage,
		Message:     d.Message,
		DetailsJSON: d.DetailsJSON,
		CreatedAt:   d.CreatedAt,
	}
}
