package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/bryanwahyu/aidentify/internal/domain/chats"
)

type ChatRepository struct {
	coll *mongo.Collection
}

func NewChatRepository(db *mongo.Database) *ChatRepository {
	return &ChatRepository{coll: db.Collection(collChats)}
}

func (r *ChatRepository) Append(ctx context.Context, req domain.AppendRequest) (domain.ChatID, error) {
	pair := []domain.Message{req.User, req.Assistant}

	if req.ChatID == "" {
		created := req.User.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		doc := chatDoc{
			ID:        uuid.New().String(),
			UserEmail: req.Owner,
			Title:     req.Title,
			CreatedAt: created,
			Messages:  pair,
		}
		if _, err := r.coll.InsertOne(ctx, doc); err != nil {
			return "", fmt.Errorf("insert chat: %w", err)
		}
		return domain.ChatID(doc.ID), nil
	}

	// $push with $each is a single-document atomic update
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": string(req.ChatID), "user_email": req.Owner},
		bson.M{"$push": bson.M{"messages": bson.M{"$each": pair}}},
	)
	if err != nil {
		return "", fmt.Errorf("append chat: %w", err)
	}
	if res.MatchedCount == 0 {
		return "", domain.ErrChatNotFound
	}
	return req.ChatID, nil
}

func (r *ChatRepository) ListByOwner(ctx context.Context, owner string) ([]*domain.Chat, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"user_email": owner}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*domain.Chat
	for cur.Next(ctx) {
		var d chatDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.toDomain())
	}
	return out, cur.Err()
}

func (r *ChatRepository) Get(ctx context.Context, owner string, id domain.ChatID) (*domain.Chat, error) {
	var d chatDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": string(id), "user_email": owner}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return d.toDomain(), nil
}

func (r *ChatRepository) Delete(ctx context.Context, owner string, id domain.ChatID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": string(id), "user_email": owner})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
