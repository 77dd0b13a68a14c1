package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"

	"quiz-attempt-service/internal/app"
	"quiz-attempt-service/internal/config"
	"quiz-attempt-service/internal/infra/memory"
	"quiz-attempt-service/internal/infra/postgres"
	infraredis "quiz-attempt-service/internal/infra/redis"
	"quiz-attempt-service/internal/infra/sqlite"
	"quiz-attempt-service/internal/logger"
)

const defaultSQLitePath = "quiz.db"

// deps holds the storage and cache adapters selected by the config.
type deps struct {
	store   app.Store
	catalog app.QuizCatalog
	redis   *redis.Client
	closers []func()
}

func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

func buildDeps(ctx context.Context, cfg config.Config, log *logger.Logger) (*deps, error) {
	d := &deps{}
	var loader memory.QuizLoader

	switch driver := cfg.StorageDriver(); driver {
	case config.DriverPostgres:
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return nil, err
		}
		db := postgres.Open(cfg.Postgres.URL)
		d.closers = append(d.closers, func() { _ = db.Close() })

		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			d.Close()
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		d.closers = append(d.closers, pool.Close)

		d.store = postgres.NewStore(db)
		loader = postgres.NewQuizLoader(pool)
	case config.DriverSQLite:
		path := cfg.Storage.SQLitePath
		if path == "" {
			path = defaultSQLitePath
		}
		db, err := sqlite.Open(path)
		if err != nil {
			return nil, err
		}
		if sqlDB, err := db.DB(); err == nil {
			d.closers = append(d.closers, func() { _ = sqlDB.Close() })
		}
		if err := sqlite.Migrate(db); err != nil {
			d.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		d.store = sqlite.NewStore(db)
	case config.DriverMemory:
		d.store = memory.NewStore()
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}

	if loader == nil {
		loader = memory.QuizLoaderFunc(d.store.Quizzes().FindQuiz)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	if cfg.Redis.Addr != "" {
		d.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() { _ = d.redis.Close() })
		d.catalog = infraredis.NewQuizCatalog(d.redis, loader, quizTTL)
	} else {
		d.catalog = memory.NewQuizCatalog(loader, quizTTL)
	}

	log.Info("storage ready", "driver", cfg.StorageDriver(), "redis", cfg.Redis.Addr != "", "quiz_ttl", quizTTL)
	return d, nil
}
