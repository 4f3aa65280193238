// Package protect 提供受保护执行组件，组合熔断、重试、超时与降级。
//
// 任何访问缓慢或不可靠生产方的操作（文档抓取、包仓库查询、昂贵的
// 本地计算）都通过 Executor 执行：
//
//	exec, _ := protect.New(&protect.Config{
//	    Breaker: &breaker.Config{FailureThreshold: 3, ResetTimeout: time.Second},
//	    Retry:   &RetryConfig{MaxRetries: 2, InitialDelay: 100 * time.Millisecond},
//	}, protect.WithLogger(logger))
//
//	result, err := exec.Run(ctx, "pub.dev", func(ctx context.Context) (any, error) {
//	    return fetchPackageInfo(ctx, name)
//	}, protect.WithTimeout(5*time.Second))
//
// 组合顺序（外到内）：限流器（可选）→ 熔断器 → 重试策略 → 超时守卫 → 操作。
// 降级函数在熔断打开或重试链耗尽时替代失败结果，降级结果不会被记为
// 熔断失败。
//
// 超时语义：超时只是调用方视角的放弃，底层操作是否真正停止由操作
// 自身通过 context 负责。默认的超时守卫作用于单次尝试；需要限制
// 整条重试链的耗时时用 WithOverallTimeout 在最外层再加一道截止时间。
package protect

import (
	"context"
	"time"

	"github.com/tdikelt/flutter-mcp-2/breaker"
	"github.com/tdikelt/flutter-mcp-2/clog"
	"github.com/tdikelt/flutter-mcp-2/xerrors"
)

// Operation 异步生产方操作
type Operation func(ctx context.Context) (any, error)

// Fallback 降级函数，其结果直接替代失败结果
type Fallback func(ctx context.Context) (any, error)

// Executor 受保护执行器核心接口
type Executor interface {
	// Run 通过保护链执行命名操作。
	// service 选择（或惰性创建）对应的熔断器。
	Run(ctx context.Context, service string, op Operation, opts ...CallOption) (any, error)

	// Status 获取单个服务的熔断状态快照
	Status(service string) *breaker.Status

	// StatusAll 获取全局状态：所有服务的熔断状态 + 有界错误日志汇总
	StatusAll() *GlobalStatus

	// Reset 重置指定服务的熔断器
	Reset(service string)

	// Close 释放内部资源（限流器的后台清理 goroutine）
	Close() error
}

// GlobalStatus 全局状态快照（只读）
type GlobalStatus struct {
	Services map[string]*breaker.Status `json:"services"`
	Errors   *ErrorSummary              `json:"errors"`
}

// Config 受保护执行器配置
type Config struct {
	// Breaker 熔断器配置，nil 时使用默认值
	Breaker *breaker.Config `json:"breaker" yaml:"breaker"`

	// Retry 重试策略配置，nil 时使用默认值
	Retry *RetryConfig `json:"retry" yaml:"retry"`

	// DefaultTimeout 未显式指定时的调用超时（默认 30s，0 表示不限制）
	DefaultTimeout time.Duration `json:"default_timeout" yaml:"default_timeout"`

	// RateLimit 可选的服务级限流配置，默认关闭
	RateLimit *RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`

	// ErrorLogSize 有界错误日志容量（默认 100）
	ErrorLogSize int `json:"error_log_size" yaml:"error_log_size"`
}

// RateLimitConfig 服务级限流配置
type RateLimitConfig struct {
	// Enabled 是否启用限流
	Enabled bool `json:"enabled" yaml:"enabled"`

	// RPS 每秒允许的请求数（默认 10）
	RPS float64 `json:"rps" yaml:"rps"`

	// Burst 突发容量（默认 20）
	Burst int `json:"burst" yaml:"burst"`
}

// validate 设置默认值（内部使用）
func (c *Config) validate() {
	if c.Breaker == nil {
		c.Breaker = &breaker.Config{}
	}
	if c.Retry == nil {
		c.Retry = &RetryConfig{}
	}
	c.Retry.validate()
	if c.DefaultTimeout < 0 {
		c.DefaultTimeout = 0
	} else if c.DefaultTimeout == 0 {
		c.DefaultTimeout = 30 * time.Second
	}
	if c.ErrorLogSize <= 0 {
		c.ErrorLogSize = 100
	}
	if c.RateLimit != nil && c.RateLimit.Enabled {
		if c.RateLimit.RPS <= 0 {
			c.RateLimit.RPS = 10
		}
		if c.RateLimit.Burst <= 0 {
			c.RateLimit.Burst = 20
		}
	}
}

// New 创建受保护执行器实例
func New(cfg *Config, opts ...Option) (Executor, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	cfg.validate()

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	opt.applyDefaults()

	brk, err := breaker.New(cfg.Breaker, breaker.WithLogger(opt.rawLogger))
	if err != nil {
		return nil, xerrors.Wrap(err, "protect: failed to create breaker")
	}

	opt.logger.Info("protected executor created",
		clog.Int("max_retries", cfg.Retry.MaxRetries),
		clog.Duration("default_timeout", cfg.DefaultTimeout),
		clog.Bool("rate_limit", cfg.RateLimit != nil && cfg.RateLimit.Enabled))

	return newExecutor(cfg, brk, opt)
}
