package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
)

// DefaultRedisPrefix namespaces every key the gateway writes.
const DefaultRedisPrefix = "taskcal"

// RedisGateway stores each document as a hash and keeps creation order in a
// sorted set scored by a counter.
//
//	{prefix}:task:{id}  hash of document fields
//	{prefix}:tasks      sorted set of ids
//	{prefix}:tasks:seq  position counter
type RedisGateway struct {
	client *redis.Client
	prefix string
}

// NewRedisGateway creates a gateway on client. An empty prefix uses
// DefaultRedisPrefix.
func NewRedisGateway(client *redis.Client, prefix string) *RedisGateway {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisGateway{client: client, prefix: prefix}
}

func (g *RedisGateway) taskKey(id string) string { return g.prefix + ":task:" + id }
func (g *RedisGateway) indexKey() string         { return g.prefix + ":tasks" }
func (g *RedisGateway) seqKey() string           { return g.prefix + ":tasks:seq" }

// FetchAll returns every document in creation order.
func (g *RedisGateway) FetchAll(ctx context.Context) ([]task.Record, error) {
	ids, err := g.client.ZRange(ctx, g.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, task.NewTransportError("fetch", err)
	}
	if len(ids) == 0 {
		return []task.Record{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = g.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, g.taskKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, task.NewTransportError("fetch", err)
	}

	records := make([]task.Record, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// index entry without a document
			continue
		}
		records = append(records, task.Record{
			ID:            ids[i],
			Title:         fields["title"],
			Note:          fields["note"],
			DueDate:       fields["dueDate"],
			Time:          fields["time"],
			Status:        fields["status"],
			CompletedDate: fields["completedDate"],
			Priority:      fields["priority"],
		})
	}
	return records, nil
}

// Create writes the hash and appends the id to the index in one transaction.
func (g *RedisGateway) Create(ctx context.Context, r task.Record) (string, error) {
	position, err := g.client.Incr(ctx, g.seqKey()).Result()
	if err != nil {
		return "", task.NewTransportError("create", err)
	}

	id := uuid.New().String()
	values := map[string]any{"title": r.Title, "note": r.Note, "dueDate": r.DueDate}
	for name, v := range map[string]string{
		"time":          r.Time,
		"status":        r.Status,
		"completedDate": r.CompletedDate,
		"priority":      r.Priority,
	} {
		if v != "" {
			values[name] = v
		}
	}

	_, err = g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, g.taskKey(id), values)
		pipe.ZAdd(ctx, g.indexKey(), redis.Z{Score: float64(position), Member: id})
		return nil
	})
	if err != nil {
		return "", task.NewTransportError("create", err)
	}
	return id, nil
}

// Patch sets present fields and deletes cleared ones. The document must
// exist when the transaction runs.
func (g *RedisGateway) Patch(ctx context.Context, id string, p task.RecordPatch) error {
	set := make(map[string]any)
	var clear []string
	for name, v := range p.Fields() {
		if v == nil {
			clear = append(clear, name)
			continue
		}
		set[name] = v
	}

	key := g.taskKey(id)
	err := g.client.Watch(ctx, func(tx *redis.Tx) error {
		n, err := tx.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		if n == 0 {
			return task.ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if len(set) > 0 {
				pipe.HSet(ctx, key, set)
			}
			if len(clear) > 0 {
				pipe.HDel(ctx, key, clear...)
			}
			return nil
		})
		return err
	}, key)
	return task.NewTransportError("patch", err)
}

// Delete removes the hash and its index entry.
func (g *RedisGateway) Delete(ctx context.Context, id string) error {
	var del *redis.IntCmd
	_, err := g.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, g.taskKey(id))
		pipe.ZRem(ctx, g.indexKey(), id)
		return nil
	})
	if err != nil {
		return task.NewTransportError("delete", err)
	}
	if del.Val() == 0 {
		return task.ErrNotFound
	}
	return nil
}

// Ping checks the Redis connection.
func (g *RedisGateway) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}
