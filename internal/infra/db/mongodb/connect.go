package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	collChats    = "chats"
	collResults  = "results"
	collFailures = "failures"
)

// Connect opens a client and pings the primary.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	cli, err := mongo.Connect(ctx, options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(25).
		SetServerSelectionTimeout(5*time.Second))
	if err != nil {
		return nil, err
	}
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := cli.Ping(ctx2, readpref.Primary()); err != nil {
		_ = cli.Disconnect(context.Background())
		return nil, err
	}
	return cli, nil
}

// EnsureIndexes creates the owner/created_at indexes used by listings.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	idx := mongo.IndexModel{Keys: bson.D{{Key: "user_email", Value: 1}, {Key: "created_at", Value: -1}}}
	for _, c := range []string{collChats, collResults, collFailures} {
		if _, err := db.Collection(c).Indexes().CreateOne(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}
