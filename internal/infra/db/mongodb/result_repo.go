package mongodb

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/bryanwahyu/aidentify/internal/domain/ai"
	domain "github.com/bryanwahyu/aidentify/internal/domain/analysis"
	"github.com/bryanwahyu/aidentify/internal/domain/media"
)

type ResultRepository struct {
	coll *mongo.Collection
}

func NewResultRepository(db *mongo.Database) *ResultRepository {
	return &ResultRepository{coll: db.Collection(collResults)}
}

func (r *ResultRepository) Insert(ctx context.Context, res *domain.Result) error {
	if res.ID == "" {
		res.ID = domain.ResultID(uuid.New().String())
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = time.Now().UTC()
	}
	_, err := r.coll.InsertOne(ctx, resultFromDomain(res))
	return err
}

func (r *ResultRepository) Paginate(ctx context.Context, email string, page, pageSize int) ([]*domain.Result, int64, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	filter := bson.M{"user_email": email}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64((page - 1) * pageSize)).
		SetLimit(int64(pageSize))
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	var out []*domain.Result
	for cur.Next(ctx) {
		var d resultDoc
		if err := cur.Decode(&d); err != nil {
			return nil, 0, err
		}
		out = append(out, &domain.Result{
			ID:           domain.ResultID(d.ID),
			UserEmail:    d.UserEmail,
			DocumentType: media.Kind(d.DocumentType),
			DocumentURL:  d.DocumentURL,
			Label:        ai.Label(d.Label),
			Confidence:   d.Confidence,
			Reason:       d.Reason,
			CreatedAt:    d.CreatedAt,
		})
	}
	return out, total, cur.Err()
}
