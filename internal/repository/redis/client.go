package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/iamasit07/connect4-server/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const liveSessionsKey = "connect4:live_sessions"

type Options struct {
	Addr     string
	Password string
	DB       int
}

// Connect returns a client, or nil when Redis is not reachable so callers
// can fall back to the in-memory registry.
func Connect(ctx context.Context, opts Options, logger zerolog.Logger) *redis.Client {
	if opts.Addr == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", opts.Addr).Msg("could not connect to Redis, using in-memory registry")
		client.Close()
		return nil
	}

	logger.Info().Str("addr", opts.Addr).Msg("redis connected")
	return client
}

// Registry keeps the live sessions in one Redis hash keyed by session
// number, so every server process sharing the instance sees them.
type Registry struct {
	client *redis.Client
	key    string
}

func NewRegistry(client *redis.Client) *Registry {
	return &Registry{client: client, key: liveSessionsKey}
}

func (r *Registry) Track(ctx context.Context, s domain.LiveSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal live session: %w", err)
	}
	if err := r.client.HSet(ctx, r.key, field(s.SessionNumber), data).Err(); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (r *Registry) Untrack(ctx context.Context, sessionNumber uint32) error {
	if err := r.client.HDel(ctx, r.key, field(sessionNumber)).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}

func (r *Registry) List(ctx context.Context) ([]domain.LiveSession, error) {
	values, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}

	sessions := make([]domain.LiveSession, 0, len(values))
	for _, raw := range values {
		var s domain.LiveSession
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return nil, fmt.Errorf("unmarshal live session: %w", err)
		}
		sessions = append(sessions, s)
	}
	return sessions, nil
}

// Clear drops every entry, used at startup since sessions do not survive a
// restart.
func (r *Registry) Clear(ctx context.Context) error {
	return r.client.Del(ctx, r.key).Err()
}

func field(sessionNumber uint32) string {
	return strconv.FormatUint(uint64(sessionNumber), 10)
}
