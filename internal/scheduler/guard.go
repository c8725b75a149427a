package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Guard keeps two firings of the same report from running at once.
// Acquire returns ok=false when another run holds the report.
type Guard interface {
	Acquire(ctx context.Context, reportID uint) (release func(), ok bool, err error)
}

// NoGuard lets overlapping runs through.
type NoGuard struct{}

func (NoGuard) Acquire(context.Context, uint) (func(), bool, error) {
	return func() {}, true, nil
}

// MemoryGuard serializes runs within one process.
type MemoryGuard struct {
	mutex    sync.Mutex
	inFlight map[uint]struct{}
}

func NewMemoryGuard() *MemoryGuard {
	return &MemoryGuard{inFlight: make(map[uint]struct{})}
}

func (g *MemoryGuard) Acquire(_ context.Context, reportID uint) (func(), bool, error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, busy := g.inFlight[reportID]; busy {
		return nil, false, nil
	}
	g.inFlight[reportID] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mutex.Lock()
			delete(g.inFlight, reportID)
			g.mutex.Unlock()
		})
	}, true, nil
}

// releaseScript deletes the lease only if this run still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard holds a lease per report in Redis so that several server
// processes sharing a database do not double-send. The lease expires after
// ttl if its holder dies.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

func NewRedisGuard(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisGuard {
	return &RedisGuard{
		client: client,
		ttl:    ttl,
		prefix: "hoteldesk:report-run:",
		logger: logger,
	}
}

func (g *RedisGuard) key(reportID uint) string {
	return fmt.Sprintf("%s%d", g.prefix, reportID)
}

func (g *RedisGuard) Acquire(ctx context.Context, reportID uint) (func(), bool, error) {
	key := g.key(reportID)
	token := uuid.NewString()

	ok, err := g.client.SetNX(ctx, key, token, g.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire run lease: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	return func() {
		// The run context may already be cancelled.
		if err := releaseScript.Run(context.Background(), g.client, []string{key}, token).Err(); err != nil {
			g.logger.Warn("Failed to release run lease, it expires with its TTL",
				zap.Uint("report_id", reportID),
				zap.Duration("ttl", g.ttl),
				zap.Error(err))
		}
	}, true, nil
}
