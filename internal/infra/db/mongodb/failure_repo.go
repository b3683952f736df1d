package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domain "github.com/bryanwahyu/aidentify/internal/domain/failures"
)

type FailureRepository struct {
	coll *mongo.Collection
}

func NewFailureRepository(db *mongo.Database) *FailureRepository {
	return &FailureRepository{coll: db.Collection(collFailures)}
}

func (r *FailureRepository) Save(ctx context.Context, f *domain.Failure) error {
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	_, err := r.coll.InsertOne(ctx, failureDoc{
		ID:          f.ID,
		UserEmail:   f.UserEmail,
		Kind:        f.Kind,
		Stage:       f.Stage,
		Message:     f.Message,
		DetailsJSON: f.DetailsJSON,
		CreatedAt:   f.CreatedAt,
	})
	return err
}

func (r *FailureRepository) ListByUser(ctx context.Context, email string, limit int) ([]*domain.Failure, error) {
	if limit <= 0 {
		limit = 20
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{"user_email": email}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*domain.Failure
	for cur.Next(ctx) {
		var d failureDoc
		if err := cur.Decode(&d); err != nil {
			return nil, err
		}
		out = append(out, d.toDomain())
	}
	return out, cur.Err()
}
