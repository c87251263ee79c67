package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/SickoOrange/SimpleAndReason/config"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/ingest/loader"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/repository"
	"github.com/SickoOrange/SimpleAndReason/internal/alarm_root_cause/service"
	"github.com/SickoOrange/SimpleAndReason/internal/metrics"
	"github.com/SickoOrange/SimpleAndReason/internal/storage/postgres"
)

// App holds the wired services shared by the API and the worker.
type App struct {
	Config  *config.Config
	DB      *pgxpool.Pool
	SQL     *sql.DB
	Redis   *redis.Client
	Metrics *metrics.Registry
	Runs    *service.RunService
}

// NewApp connects every backend named by cfg. Exports are read from localDir
// when it is set, otherwise from S3.
func NewApp(ctx context.Context, cfg *config.Config, localDir string) (*App, error) {
	app := &App{Config: cfg, Metrics: metrics.NewRegistry()}

	stores, err := objectStores(ctx, cfg.Storage, localDir)
	if err != nil {
		return nil, err
	}
	cache, err := loader.NewCache(cfg.Storage.CacheSize)
	if err != nil {
		return nil, err
	}

	if app.SQL, err = postgres.NewConnection(ctx, &cfg.Database); err != nil {
		return nil, err
	}
	if app.DB, err = OpenDB(ctx, DBOptions{
		DSN:      postgres.DSN(&cfg.Database),
		MaxConns: int32(cfg.Database.MaxConns),
		MinConns: int32(cfg.Database.MinConns),
	}); err != nil {
		app.Close()
		return nil, err
	}
	if app.Redis, err = OpenRedis(ctx, cfg.Redis); err != nil {
		app.Close()
		return nil, err
	}

	writer := postgres.NewReasonStore(app.SQL, cfg.Database.TablePrefix, rate.NewLimiter(rate.Limit(cfg.Database.WriteRate), 1))
	analyzer := service.NewAnalyzer(stores, cache, writer, app.Metrics)
	app.Runs = service.NewRunService(
		analyzer,
		repository.NewRunRepository(app.Redis, cfg.Redis.RunTTL),
		repository.NewResultRepository(app.DB, cfg.Database.TablePrefix),
	)
	return app, nil
}

func objectStores(ctx context.Context, cfg config.StorageConfig, localDir string) (service.StoreFunc, error) {
	if localDir != "" {
		store := loader.DirStore{Root: localDir}
		return func(string) loader.ObjectStore { return store }, nil
	}
	s3, err := loader.NewS3Store(ctx, loader.S3Config{
		Region:   cfg.Region,
		Endpoint: cfg.Endpoint,
		Bucket:   cfg.Bucket,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 store: %w", err)
	}
	return func(bucket string) loader.ObjectStore { return s3.WithBucket(bucket) }, nil
}

// Close releases every connection that was opened.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.SQL != nil {
		errs = append(errs, a.SQL.Close())
	}
	return errors.Join(errs...)
}
