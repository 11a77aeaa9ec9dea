package services

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"suumo_crawler/models"
)

// GeocodeQueue hands buildings without coordinates to an out-of-band geocoder
type GeocodeQueue interface {
	Enqueue(ctx context.Context, b *models.Building) error
}

// RedisGeocodeQueue publishes geocode tasks onto a Redis stream
type RedisGeocodeQueue struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisGeocodeQueue(ctx context.Context, redisURL, stream string) (*RedisGeocodeQueue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisGeocodeQueueFromClient(client, stream), nil
}

func NewRedisGeocodeQueueFromClient(client *redis.Client, stream string) *RedisGeocodeQueue {
	return &RedisGeocodeQueue{client: client, stream: stream, maxLen: 10000}
}

func (q *RedisGeocodeQueue) Enqueue(ctx context.Context, b *models.Building) error {
	return q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: q.stream,
		MaxLen: q.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"building_id": b.ID.String(),
			"address":     b.Address,
			"name":        b.Name,
			"enqueued_at": time.Now().UTC().Format(time.RFC3339),
		},
	}).Err()
}

func (q *RedisGeocodeQueue) Close() error {
	return q.client.Close()
}

// LogGeocodeQueue only logs; used when no Redis is configured
type LogGeocodeQueue struct {
	log zerolog.Logger
}

func NewLogGeocodeQueue(log zerolog.Logger) *LogGeocodeQueue {
	return &LogGeocodeQueue{log: log}
}

func (q *LogGeocodeQueue) Enqueue(_ context.Context, b *models.Building) error {
	q.log.Info().Str("building_id", b.ID.String()).Str("address", b.Address).Msg("Geocode requested")
	return nil
}
