package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/infrastructure/persistence"
	"github.com/felixgeelhaar/taskcal/internal/productivity/infrastructure/remote"
	"github.com/felixgeelhaar/taskcal/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/taskcal/internal/shared/infrastructure/database/postgres" // Register PostgreSQL driver
	_ "github.com/felixgeelhaar/taskcal/internal/shared/infrastructure/database/sqlite"   // Register SQLite driver
	"github.com/felixgeelhaar/taskcal/internal/shared/infrastructure/migrations"
	"github.com/felixgeelhaar/taskcal/pkg/config"
	"github.com/felixgeelhaar/taskcal/pkg/observability"
)

// closer releases a resource owned by the container.
type closer struct {
	name  string
	close func() error
}

// openGateway creates the raw gateway selected by cfg.Store along with the
// resources it owns.
func openGateway(ctx context.Context, cfg *config.Config, metrics observability.Metrics, logger *slog.Logger) (task.Gateway, []closer, error) {
	switch cfg.Store {
	case config.StoreSQLite, config.StorePostgres:
		dbCfg := database.Config{Driver: database.DriverSQLite, SQLitePath: cfg.SQLitePath}
		if cfg.Store == config.StorePostgres {
			dbCfg = database.Config{Driver: database.DriverPostgres, URL: cfg.DatabaseURL}
		}
		conn, err := database.Open(ctx, dbCfg)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open %s database: %w", cfg.Store, err)
		}
		if err := migrations.Run(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.Info("database connected", "driver", conn.Driver().String())
		return persistence.NewSQLGateway(conn), []closer{{name: "database", close: conn.Close}}, nil

	case config.StoreRedis:
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		logger.Info("Redis connected", "addr", opt.Addr)
		return persistence.NewRedisGateway(client, cfg.RedisPrefix), []closer{{name: "redis", close: client.Close}}, nil

	case config.StoreHTTP:
		breaker := remote.DefaultBreakerConfig()
		breaker.FailureThreshold = uint32(cfg.BreakerFailures)
		breaker.Timeout = cfg.BreakerTimeout
		gw, err := remote.NewHTTPGateway(remote.HTTPConfig{BaseURL: cfg.RemoteURL, Breaker: breaker}, metrics, logger)
		if err != nil {
			return nil, nil, err
		}
		return gw, nil, nil

	case config.StoreDiskv:
		gw, err := persistence.NewDiskvGateway(cfg.DiskvPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open disk store: %w", err)
		}
		return gw, nil, nil

	case config.StoreFirestore:
		gw, err := remote.NewFirestoreGateway(ctx, remote.FirestoreConfig{
			ProjectID:       cfg.FirestoreProjectID,
			CredentialsPath: cfg.FirebaseCredentialsPath,
			Collection:      cfg.FirestoreCollection,
		})
		if err != nil {
			return nil, nil, err
		}
		return gw, []closer{{name: "firestore", close: gw.Close}}, nil

	case config.StoreMemory:
		return persistence.NewMemoryGateway(), nil, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store: %s", cfg.Store)
	}
}
