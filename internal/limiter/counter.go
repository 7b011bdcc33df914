// Package limiter 实现按标识计数的固定窗口限流.
// 计数保存在 Redis 中, 多个服务实例共享同一份计数; 未配置 Redis 时退化为进程内计数.
package limiter

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"qrcode-platform/internal/metrics"
)

// ErrLimited 超过限制
var ErrLimited = errors.New("请求过于频繁，请稍后再试")

// CounterStore 固定窗口计数器, 返回窗口内的累计次数
type CounterStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// 首次计数时设置过期时间, 保证窗口从第一次请求开始计算
var hitScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
    redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
return count
`)

// RedisCounter 基于 Redis 的共享计数器
type RedisCounter struct {
	client *redis.Client
}

func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

func (r *RedisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	return hitScript.Run(ctx, r.client, []string{key}, window.Milliseconds()).Int64()
}

type memoryEntry struct {
	count   int64
	resetAt time.Time
}

// MemoryCounter 进程内计数器, 多实例部署下计数不共享
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	now     func() time.Time
}

func NewMemoryCounter() *MemoryCounter {
	return &MemoryCounter{entries: make(map[string]*memoryEntry), now: time.Now}
}

func (m *MemoryCounter) Hit(_ context.Context, key string, window time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	e, ok := m.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &memoryEntry{resetAt: now.Add(window)}
		m.entries[key] = e
	}
	e.count++

	// 顺带清理过期项, 避免 map 无限增长
	if len(m.entries) > 10000 {
		for k, v := range m.entries {
			if !now.Before(v.resetAt) {
				delete(m.entries, k)
			}
		}
	}
	return e.count, nil
}

// Keyed 按作用域和标识限流
type Keyed struct {
	store  CounterStore
	limit  int64
	window time.Duration
}

func NewKeyed(store CounterStore, limit int64, window time.Duration) *Keyed {
	return &Keyed{store: store, limit: limit, window: window}
}

// Normalize 统一标识格式 (去空白、小写)
func Normalize(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// Allow 计数并判断是否放行. 计数存储出错时放行并返回错误, 由调用方记录.
func (k *Keyed) Allow(ctx context.Context, scope, identifier string) error {
	key := "ratelimit:" + scope + ":" + Normalize(identifier)
	count, err := k.store.Hit(ctx, key, k.window)
	if err != nil {
		return err
	}
	if count > k.limit {
		metrics.RateLimitRejections.WithLabelValues(scope).Inc()
		return ErrLimited
	}
	return nil
}
