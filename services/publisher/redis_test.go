package publisher

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher(t *testing.T) {
	ctx := context.Background()
	publisher := NewRedisPublisher("localhost:6379", 0, "test_steam_sales", 1, 10)
	defer publisher.Close()

	// Test if Redis is available
	if err := publisher.Ping(ctx); err != nil {
		t.Skip("Redis is not available, skipping test")
	}

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   0,
	})
	defer client.Close()
	defer client.Del(ctx, "test_steam_sales:0")

	err := client.XGroupCreateMkStream(ctx, "test_steam_sales:0", "test_group", "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		require.NoError(t, err)
	}

	messages := make(chan string, 1)

	go func() {
		streams, err := client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Streams:  []string{"test_steam_sales:0", ">"},
			Group:    "test_group",
			Consumer: "test_consumer",
			Block:    2 * time.Second,
		}).Result()
		if err != nil || len(streams) == 0 || len(streams[0].Messages) == 0 {
			return
		}
		messages <- streams[0].Messages[0].Values["100"].(string)
	}()

	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, "test_steam_sales:0", publisher.StreamFor("100"))
	err = publisher.Publish(ctx, "100", []byte("test_message"))
	assert.NoError(t, err)

	select {
	case msg := <-messages:
		// The message should be base64 encoded
		assert.Equal(t, "dGVzdF9tZXNzYWdl", msg)
	case <-time.After(3 * time.Second):
		t.Error("Timed out waiting for message")
	}

	assert.NoError(t, publisher.TrimStreams(ctx))
}

func TestRedisPublisherStreamFor(t *testing.T) {
	publisher := NewRedisPublisher("localhost:6379", 0, "sales", 4, 10)
	defer publisher.Close()

	seen := make(map[string]bool)
	for _, id := range []string{"10", "20", "30", "440", "570", "730", "1091500", "1245620"} {
		stream := publisher.StreamFor(id)
		assert.Equal(t, stream, publisher.StreamFor(id), "stable per id")
		assert.True(t, strings.HasPrefix(stream, "sales:"))
		seen[stream] = true
	}
	assert.LessOrEqual(t, len(seen), 4)

	single := NewRedisPublisher("localhost:6379", 0, "sales", 0, 10)
	defer single.Close()
	assert.Equal(t, "sales:0", single.StreamFor("730"))
}
