package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisForwarder republishes events as JSON on a Redis channel so other
// processes can react to them.
type RedisForwarder struct {
	rdb     *redis.Client
	channel string
	log     *zap.Logger
}

// NewRedisClient dials addr and verifies the connection with a ping.
func NewRedisClient(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func NewRedisForwarder(rdb *redis.Client, channel string, logger *zap.Logger) *RedisForwarder {
	if channel == "" {
		channel = "fellowship.events"
	}
	return &RedisForwarder{rdb: rdb, channel: channel, log: logger}
}

// Encode is the wire form written to the channel.
func Encode(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a payload written by Encode.
func Decode(raw []byte) (Event, error) {
	var e Event
	err := json.Unmarshal(raw, &e)
	return e, err
}

func (f *RedisForwarder) Handle(ctx context.Context, e Event) error {
	raw, err := Encode(e)
	if err != nil {
		return err
	}
	if err := f.rdb.Publish(ctx, f.channel, raw).Err(); err != nil {
		return fmt.Errorf("redis publish %s: %w", e.Type, err)
	}
	f.log.Debug("event forwarded", zap.String("channel", f.channel), zap.String("event_type", string(e.Type)))
	return nil
}

// Ping checks the forwarder's Redis connection.
func (f *RedisForwarder) Ping(ctx context.Context) error {
	return f.rdb.Ping(ctx).Err()
}
