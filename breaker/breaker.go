// Package breaker 提供熔断器组件，按依赖名对故障进行隔离与自动恢复。
//
// breaker 是管道保护层的核心组件，它提供了：
// - 基于 gobreaker 的熔断器实现
// - 服务级粒度的熔断管理（按依赖服务名独立熔断，首次使用时惰性创建）
// - 连续失败次数达到阈值后打开，冷却期结束后半开放行一次试探调用
// - 灵活的降级策略（快速失败或自定义降级逻辑）
// - 服务级与全局的状态查询接口，供健康检查消费
//
// ## 基本使用
//
//	brk, _ := breaker.New(&breaker.Config{
//	    FailureThreshold: 3,
//	    ResetTimeout:     time.Second,
//	}, breaker.WithLogger(logger))
//
//	result, err := brk.Execute(ctx, "pub.dev", func() (any, error) {
//	    return fetchPackage(ctx, "http")
//	})
//
// ## 降级策略
//
//	brk, _ := breaker.New(cfg,
//	    breaker.WithFallback(func(ctx context.Context, service string, err error) (any, error) {
//	        // 返回缓存数据或默认值
//	        return staleCopy, nil
//	    }),
//	)
package breaker

import (
	"context"
	"time"

	"github.com/tdikelt/flutter-mcp-2/clog"
)

// Breaker 熔断器核心接口
type Breaker interface {
	// Execute 执行受熔断保护的函数
	// service: 依赖服务名（熔断键），首次使用时惰性创建对应的熔断器
	// fn: 要执行的函数
	Execute(ctx context.Context, service string, fn func() (any, error)) (any, error)

	// State 获取指定服务的熔断器状态，未创建时返回 StateClosed
	State(service string) State

	// Status 获取指定服务的状态快照
	Status(service string) *Status

	// StatusAll 获取所有已创建服务的状态快照
	StatusAll() map[string]*Status

	// Reset 将指定服务的熔断器恢复为闭合状态并清零计数器
	Reset(service string)
}

// State 熔断器状态
type State int

const (
	// StateClosed 闭合状态（正常）
	StateClosed State = iota
	// StateHalfOpen 半开状态（探测恢复）
	StateHalfOpen
	// StateOpen 打开状态（熔断中）
	StateOpen
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half_open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Status 服务级状态快照（只读）
type Status struct {
	Service         string    `json:"service"`
	State           string    `json:"state"`
	Failures        int64     `json:"failures"` // 连续失败次数
	SuccessCount    int64     `json:"success_count"`
	RequestCount    int64     `json:"request_count"`
	SuccessRate     float64   `json:"success_rate"` // 百分比，0-100
	LastFailureTime time.Time `json:"last_failure_time"`
	NextAttemptTime time.Time `json:"next_attempt_time"`
}

// Config 熔断器配置
type Config struct {
	// FailureThreshold 触发熔断的连续失败次数（默认：5）
	FailureThreshold uint32 `json:"failure_threshold" yaml:"failure_threshold"`

	// ResetTimeout 打开状态持续时间（默认：60s）
	// 冷却结束后进入半开状态，放行一次试探调用
	ResetTimeout time.Duration `json:"reset_timeout" yaml:"reset_timeout"`
}

// validate 设置默认值（内部使用）
func (c *Config) validate() {
	if c.FailureThreshold == 0 {
		c.FailureThreshold = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 60 * time.Second
	}
}

// FallbackFunc 降级函数类型
// 当熔断器打开时执行，其返回值直接替代失败结果
type FallbackFunc func(ctx context.Context, service string, err error) (any, error)

// New 创建熔断器实例
func New(cfg *Config, opts ...Option) (Breaker, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	cfg.validate()

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}
	if opt.logger == nil {
		opt.logger = clog.Discard()
	}

	opt.logger.Info("circuit breaker created",
		clog.Int("failure_threshold", int(cfg.FailureThreshold)),
		clog.Duration("reset_timeout", cfg.ResetTimeout))

	return newBreaker(cfg, opt.logger, opt.fallback), nil
}
