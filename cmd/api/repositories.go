package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/bryanwahyu/aidentify/internal/config"
	"github.com/bryanwahyu/aidentify/internal/domain/analysis"
	"github.com/bryanwahyu/aidentify/internal/domain/chats"
	"github.com/bryanwahyu/aidentify/internal/domain/failures"
	"github.com/bryanwahyu/aidentify/internal/infra/db/memory"
	"github.com/bryanwahyu/aidentify/internal/infra/db/mongodb"
	mysqlp "github.com/bryanwahyu/aidentify/internal/infra/db/mysql"
	"github.com/bryanwahyu/aidentify/internal/infra/db/postgres"
	"github.com/bryanwahyu/aidentify/internal/middleware"
)

// repositories bundles the persistence ports of one backend.
type repositories struct {
	Chats    chats.Repository
	Results  analysis.Repository
	Failures failures.Repository
	Ping     middleware.HealthChecker
	close    func() error
}

func (r *repositories) Close() {
	if r.close == nil {
		return
	}
	if err := r.close(); err != nil {
		log.Warn().Err(err).Msg("database close error")
	}
}

func openRepositories(ctx context.Context, cfg config.DatabaseConfig) (*repositories, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		log.Warn().Msg("using in-memory store; data is lost on restart")
		s := memory.NewStore()
		return &repositories{Chats: s, Results: s, Failures: s}, nil

	case config.DriverMySQL:
		c := config.Config{Database: cfg}
		db, err := mysqlp.Connect(ctx, c.MySQLDSN())
		if err != nil {
			return nil, fmt.Errorf("mysql connect: %w", err)
		}
		if err := mysqlp.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("mysql migrate: %w", err)
		}
		return sqlRepositories(db,
			mysqlp.NewChatRepository(db), mysqlp.NewResultRepository(db), mysqlp.NewFailureRepository(db)), nil

	case config.DriverPostgres:
		db, err := postgres.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		return sqlRepositories(db,
			postgres.NewChatRepository(db), postgres.NewResultRepository(db), postgres.NewFailureRepository(db)), nil

	case config.DriverMongo:
		cli, err := mongodb.Connect(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		db := cli.Database(cfg.Name)
		if err := mongodb.EnsureIndexes(ctx, db); err != nil {
			_ = cli.Disconnect(context.Background())
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return &repositories{
			Chats:    mongodb.NewChatRepository(db),
			Results:  mongodb.NewResultRepository(db),
			Failures: mongodb.NewFailureRepository(db),
			Ping:     mongoPing(cli),
			close: func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return cli.Disconnect(ctx)
			},
		}, nil
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

func sqlRepositories(db *sql.DB, c chats.Repository, r analysis.Repository, f failures.Repository) *repositories {
	return &repositories{
		Chats:    c,
		Results:  r,
		Failures: f,
		Ping:     &middleware.DatabaseHealthChecker{DB: db},
		close:    db.Close,
	}
}

func mongoPing(cli *mongo.Client) middleware.HealthChecker {
	return middleware.CheckFunc(func(ctx context.Context) error {
		return cli.Ping(ctx, nil)
	})
}
