// Package memory holds the in-process live-session registry used when Redis
// is not configured.
package memory

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/iamasit07/connect4-server/internal/domain"
	"github.com/patrickmn/go-cache"
)

// Registry expires entries after ttl so a session that never untracks
// (a crashed goroutine) does not linger forever.
type Registry struct {
	cache *cache.Cache
	ttl   time.Duration
}

func NewRegistry(ttl time.Duration) *Registry {
	cleanup := ttl / 2
	if ttl <= 0 {
		ttl = cache.NoExpiration
		cleanup = time.Minute
	}
	return &Registry{cache: cache.New(ttl, cleanup), ttl: ttl}
}

func (r *Registry) Track(ctx context.Context, s domain.LiveSession) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.cache.Set(key(s.SessionNumber), s, r.ttl)
	return nil
}

func (r *Registry) Untrack(ctx context.Context, sessionNumber uint32) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.cache.Delete(key(sessionNumber))
	return nil
}

// List returns the tracked sessions ordered by session number.
func (r *Registry) List(ctx context.Context) ([]domain.LiveSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := r.cache.Items()
	sessions := make([]domain.LiveSession, 0, len(items))
	for _, item := range items {
		if s, ok := item.Object.(domain.LiveSession); ok {
			sessions = append(sessions, s)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].SessionNumber < sessions[j].SessionNumber
	})
	return sessions, nil
}

func key(sessionNumber uint32) string {
	return strconv.FormatUint(uint64(sessionNumber), 10)
}
