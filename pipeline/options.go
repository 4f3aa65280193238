package pipeline

import (
	"time"

	"github.com/tdikelt/flutter-mcp-2/clog"
	"github.com/tdikelt/flutter-mcp-2/metrics"
	"github.com/tdikelt/flutter-mcp-2/protect"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用）
type options struct {
	// rawLogger 保留未加 namespace 的原始 Logger，透传给内部组件
	rawLogger clog.Logger
	logger    clog.Logger
	meter     metrics.Meter
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
// 内部会自动添加 namespace: "pipeline"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.rawLogger = logger
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("pipeline")
		}
	}
}

// WithMeter 设置指标 Meter，传入 nil 时使用 metrics.Nop()
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

func (o *options) applyDefaults() {
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Nop()
	}
}

// CallOption 单次调用选项函数
type CallOption func(*callOptions)

// callOptions 单次调用选项（内部使用）
type callOptions struct {
	service    string
	budget     int
	timeout    time.Duration
	timeoutSet bool
	fallback   protect.Fallback
	retry      bool
	useCache   bool
}

// WithService 指定熔断服务名，默认使用缓存类别
func WithService(name string) CallOption {
	return func(o *callOptions) {
		o.service = name
	}
}

// WithBudget 覆盖本次调用的令牌预算，<= 0 表示不截断
func WithBudget(limit int) CallOption {
	return func(o *callOptions) {
		o.budget = limit
	}
}

// WithTimeout 覆盖本次调用的超时时间，0 表示不限制
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		o.timeout = d
		o.timeoutSet = true
	}
}

// WithFallback 设置本次调用的降级函数
func WithFallback(fb protect.Fallback) CallOption {
	return func(o *callOptions) {
		o.fallback = fb
	}
}

// WithoutRetry 关闭本次调用的重试
func WithoutRetry() CallOption {
	return func(o *callOptions) {
		o.retry = false
	}
}

// WithoutCache 跳过缓存，直接经保护链调用生产方且不回写
func WithoutCache() CallOption {
	return func(o *callOptions) {
		o.useCache = false
	}
}
