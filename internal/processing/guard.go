package processing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Guard allows at most one holder per meeting id
type Guard interface {
	// TryAcquire claims the meeting. ok is false when another run holds it
	TryAcquire(ctx context.Context, meetingID string) (release func(), ok bool, err error)

	// Busy reports whether the meeting is currently claimed
	Busy(ctx context.Context, meetingID string) (bool, error)
}

// MemoryGuard is a process-local Guard
type MemoryGuard struct {
	mu     sync.Mutex
	active map[string]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{active: make(map[string]struct{})}
}

func (g *MemoryGuard) TryAcquire(ctx context.Context, meetingID string) (func(), bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.active[meetingID]; held {
		return nil, false, nil
	}
	g.active[meetingID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.active, meetingID)
			g.mu.Unlock()
		})
	}, true, nil
}

func (g *MemoryGuard) Busy(ctx context.Context, meetingID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	_, held := g.active[meetingID]
	return held, nil
}

// DefaultLockPrefix namespaces the lock keys
const DefaultLockPrefix = "minutes:processing:"

// DefaultLockTTL bounds how long a crashed instance can hold a meeting
const DefaultLockTTL = 15 * time.Minute

// Deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares the per-meeting lock between instances through Redis
type RedisGuard struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func NewRedisGuard(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisGuard {
	if prefix == "" {
		prefix = DefaultLockPrefix
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisGuard{client: client, prefix: prefix, ttl: ttl}
}

func (g *RedisGuard) key(meetingID string) string {
	return g.prefix + meetingID
}

func (g *RedisGuard) TryAcquire(ctx context.Context, meetingID string) (func(), bool, error) {
	token := uuid.NewString()
	key := g.key(meetingID)

	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The run's context may already be cancelled
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			releaseScript.Run(ctx, g.client, []string{key}, token)
		})
	}, true, nil
}

func (g *RedisGuard) Busy(ctx context.Context, meetingID string) (bool, error) {
	n, err := g.client.Exists(ctx, g.key(meetingID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check lock: %w", err)
	}
	return n > 0, nil
}
