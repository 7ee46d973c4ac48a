// Package relay mirrors committed session snapshots to Redis: a pub/sub
// channel per session for other processes, plus the latest snapshot under a
// key that outlives the session for a while.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/DoyleJ11/insane-brain-backend/pkg/types"
)

const keyPrefix = "insane:session:"

var ErrSnapshotNotFound = errors.New("no archived snapshot")

func ChannelKey(code string) string  { return keyPrefix + code }
func SnapshotKey(code string) string { return keyPrefix + code + ":snapshot" }

type Config struct {
	RedisClient *redis.Client
	ArchiveTTL  time.Duration
	Logger      *zap.Logger
}

type Relay struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

func New(cfg *Config) (*Relay, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if err := cfg.RedisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ttl := cfg.ArchiveTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Relay{client: cfg.RedisClient, ttl: ttl, log: log}, nil
}

// Publish sends the snapshot to the session channel and stores it as the
// latest one.
func (r *Relay) Publish(ctx context.Context, code string, version int, view types.SessionView) error {
	payload, err := json.Marshal(types.ServerMessage{
		Type:    types.MsgStateSnapshot,
		Version: version,
		State:   &view,
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Publish(ctx, ChannelKey(code), payload)
	pipe.Set(ctx, SnapshotKey(code), payload, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %s v%d: %w", code, version, err)
	}
	return nil
}

// Latest returns the last snapshot stored for code.
func (r *Relay) Latest(ctx context.Context, code string) (*types.SnapshotResponse, error) {
	data, err := r.client.Get(ctx, SnapshotKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", code, err)
	}
	var msg types.ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", code, err)
	}
	if msg.State == nil {
		return nil, ErrSnapshotNotFound
	}
	return &types.SnapshotResponse{Version: msg.Version, State: *msg.State, Archived: true}, nil
}
