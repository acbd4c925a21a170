package publisher

import (
	"context"
	"encoding/base64"
	"strconv"

	apperrors "sjsage522/steamsales/pkg/errors"

	"github.com/cespare/xxhash/v2"
	"github.com/redis/go-redis/v9"
)

// RedisPublisher writes discovered sales to a set of Redis streams
type RedisPublisher struct {
	client          *redis.Client
	streamPrefix    string
	streamCount     int
	streamMaxLength int
}

// NewRedisPublisher creates a publisher spreading messages over streamCount streams named prefix:0..prefix:N-1
func NewRedisPublisher(addr string, db int, streamPrefix string, streamCount int, streamMaxLength int) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	if streamCount < 1 {
		streamCount = 1
	}

	return &RedisPublisher{
		client:          client,
		streamPrefix:    streamPrefix,
		streamCount:     streamCount,
		streamMaxLength: streamMaxLength,
	}
}

// Ping checks the Redis connection
func (p *RedisPublisher) Ping(ctx context.Context) error {
	if err := p.client.Ping(ctx).Err(); err != nil {
		return apperrors.NewPublisher("redis", "ping failed", err)
	}
	return nil
}

// StreamFor returns the stream an app id is published to; the same id always maps to the same stream
func (p *RedisPublisher) StreamFor(key string) string {
	return p.streamName(int(xxhash.Sum64String(key) % uint64(p.streamCount)))
}

// Publish adds the base64 encoded message under key to the key's stream
func (p *RedisPublisher) Publish(ctx context.Context, key string, message []byte) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.StreamFor(key),
		Values: map[string]interface{}{
			key: base64.StdEncoding.EncodeToString(message),
		},
	}).Err()
	if err != nil {
		return apperrors.NewPublisher(key, "xadd failed", err)
	}
	return nil
}

// TrimStreams caps every stream at the configured length; a non-positive length disables trimming
func (p *RedisPublisher) TrimStreams(ctx context.Context) error {
	if p.streamMaxLength <= 0 {
		return nil
	}
	for i := 0; i < p.streamCount; i++ {
		stream := p.streamName(i)
		if err := p.client.XTrimMaxLen(ctx, stream, int64(p.streamMaxLength)).Err(); err != nil {
			return apperrors.NewPublisher(stream, "trim failed", err)
		}
	}
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}

func (p *RedisPublisher) streamName(i int) string {
	return p.streamPrefix + ":" + strconv.Itoa(i)
}
