// Package ratelimit 提供进程内按键限流组件。
//
// 基于 golang.org/x/time/rate 的令牌桶实现，按键（通常是上游服务名）
// 惰性创建限流器，空闲的限流器由后台定期清理。
//
// 基本使用：
//
//	limiter, _ := ratelimit.New(&ratelimit.Config{}, ratelimit.WithLogger(logger))
//	defer limiter.Close()
//
//	allowed, _ := limiter.Allow(ctx, "pub.dev", ratelimit.Limit{Rate: 10, Burst: 20})
//	if !allowed {
//	    return ErrRateLimited
//	}
package ratelimit

import (
	"context"
	"time"

	"github.com/tdikelt/flutter-mcp-2/clog"
	"github.com/tdikelt/flutter-mcp-2/metrics"
)

// Limit 限流规则（令牌桶算法）
type Limit struct {
	// Rate 令牌生成速率（每秒）
	Rate float64 `json:"rate" yaml:"rate"`

	// Burst 令牌桶容量（突发最大请求数）
	Burst int `json:"burst" yaml:"burst"`
}

// Limiter 限流器核心接口
type Limiter interface {
	// Allow 尝试获取 1 个令牌（非阻塞）
	Allow(ctx context.Context, key string, limit Limit) (bool, error)

	// AllowN 尝试获取 N 个令牌（非阻塞）
	AllowN(ctx context.Context, key string, limit Limit, n int) (bool, error)

	// Wait 阻塞等待直到获取 1 个令牌或 context 取消
	Wait(ctx context.Context, key string, limit Limit) error

	// Close 停止后台清理 goroutine
	Close() error
}

// Config 限流器配置
type Config struct {
	// CleanupInterval 清理空闲限流器的间隔（默认 1 分钟）
	CleanupInterval time.Duration `json:"cleanup_interval" yaml:"cleanup_interval"`

	// IdleTimeout 限流器空闲超时，超时后被清理（默认 5 分钟）
	IdleTimeout time.Duration `json:"idle_timeout" yaml:"idle_timeout"`
}

// validate 设置默认值（内部使用）
func (c *Config) validate() {
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = time.Minute
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = 5 * time.Minute
	}
}

// New 创建限流器实例
func New(cfg *Config, opts ...Option) (Limiter, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.validate()

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	if opt.logger == nil {
		opt.logger = clog.Discard()
	}
	if opt.meter == nil {
		opt.meter = metrics.Nop()
	}

	return newKeyed(cfg, opt)
}
