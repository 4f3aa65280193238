package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/tdikelt/flutter-mcp-2/clog"
	"github.com/tdikelt/flutter-mcp-2/metrics"
	"github.com/tdikelt/flutter-mcp-2/xerrors"
)

// entry 包装 rate.Limiter 并记录最后访问时间
type entry struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// keyedLimiter Limiter 接口实现
type keyedLimiter struct {
	cfg    *Config
	logger clog.Logger

	// entries 限流器缓存，key 含限流规则，规则变化时各自独立
	entries sync.Map
	stopCh  chan struct{}

	allowed  metrics.Counter
	rejected metrics.Counter
}

func newKeyed(cfg *Config, opt *options) (*keyedLimiter, error) {
	l := &keyedLimiter{
		cfg:    cfg,
		logger: opt.logger,
		stopCh: make(chan struct{}),
	}

	var err error
	if l.allowed, err = opt.meter.Counter("ratelimit_allowed_total", "限流放行总数"); err != nil {
		return nil, xerrors.Wrap(err, "ratelimit: failed to create allowed counter")
	}
	if l.rejected, err = opt.meter.Counter("ratelimit_rejected_total", "限流拒绝总数"); err != nil {
		return nil, xerrors.Wrap(err, "ratelimit: failed to create rejected counter")
	}

	go l.cleanupLoop()

	l.logger.Info("keyed rate limiter created",
		clog.Duration("cleanup_interval", cfg.CleanupInterval),
		clog.Duration("idle_timeout", cfg.IdleTimeout))
	return l, nil
}

func (l *keyedLimiter) Allow(ctx context.Context, key string, limit Limit) (bool, error) {
	return l.AllowN(ctx, key, limit, 1)
}

func (l *keyedLimiter) AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error) {
	if key == "" {
		return false, ErrKeyEmpty
	}
	if limit.Rate <= 0 || limit.Burst <= 0 {
		return false, ErrInvalidLimit
	}
	if n <= 0 {
		return false, ErrInvalidTokens
	}

	e := l.get(key, limit)
	e.mu.Lock()
	allowed := e.limiter.AllowN(time.Now(), n)
	e.lastSeen = time.Now()
	e.mu.Unlock()

	if allowed {
		l.allowed.Inc(ctx, metrics.L("key", key))
	} else {
		l.rejected.Inc(ctx, metrics.L("key", key))
		l.logger.Debug("rate limit rejected",
			clog.String("key", key),
			clog.Float64("rate", limit.Rate),
			clog.Int("burst", limit.Burst))
	}
	return allowed, nil
}

func (l *keyedLimiter) Wait(ctx context.Context, key string, limit Limit) error {
	if key == "" {
		return ErrKeyEmpty
	}
	if limit.Rate <= 0 || limit.Burst <= 0 {
		return ErrInvalidLimit
	}

	e := l.get(key, limit)
	// Wait 内部阻塞，不能持有 e.mu；lastSeen 在返回后更新
	err := e.limiter.Wait(ctx)
	e.mu.Lock()
	e.lastSeen = time.Now()
	e.mu.Unlock()
	return err
}

// get 获取或创建指定 key 的限流器
func (l *keyedLimiter) get(key string, limit Limit) *entry {
	cacheKey := fmt.Sprintf("%s:%v:%d", key, limit.Rate, limit.Burst)
	if v, ok := l.entries.Load(cacheKey); ok {
		return v.(*entry)
	}
	created := &entry{
		limiter:  rate.NewLimiter(rate.Limit(limit.Rate), limit.Burst),
		lastSeen: time.Now(),
	}
	actual, _ := l.entries.LoadOrStore(cacheKey, created)
	return actual.(*entry)
}

// cleanupLoop 定期清理空闲限流器
func (l *keyedLimiter) cleanupLoop() {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now()
			cleaned := 0
			l.entries.Range(func(key, value any) bool {
				e := value.(*entry)
				e.mu.Lock()
				idle := now.Sub(e.lastSeen)
				e.mu.Unlock()
				if idle > l.cfg.IdleTimeout {
					l.entries.Delete(key)
					cleaned++
				}
				return true
			})
			if cleaned > 0 {
				l.logger.Debug("cleaned up idle limiters", clog.Int("count", cleaned))
			}
		case <-l.stopCh:
			return
		}
	}
}

func (l *keyedLimiter) Close() error {
	close(l.stopCh)
	return nil
}
