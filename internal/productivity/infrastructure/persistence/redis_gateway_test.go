package persistence_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/infrastructure/gatewaytest"
	"github.com/felixgeelhaar/taskcal/internal/productivity/infrastructure/persistence"
)

func TestRedisGateway(t *testing.T) {
	url := os.Getenv("TASKCAL_TEST_REDIS_URL")
	if url == "" {
		t.Skip("TASKCAL_TEST_REDIS_URL not set")
	}
	opt, err := redis.ParseURL(url)
	require.NoError(t, err)

	gatewaytest.Run(t, func(t *testing.T) task.Gateway {
		client := redis.NewClient(opt)
		require.NoError(t, client.Ping(context.Background()).Err())

		prefix := "taskcal-test-" + uuid.New().String()
		t.Cleanup(func() {
			ctx := context.Background()
			keys, _ := client.Keys(ctx, prefix+":*").Result()
			if len(keys) > 0 {
				client.Del(ctx, keys...)
			}
			_ = client.Close()
		})
		return persistence.NewRedisGateway(client, prefix)
	})
}
