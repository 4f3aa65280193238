package protect

import (
	"time"

	"github.com/tdikelt/flutter-mcp-2/clog"
	"github.com/tdikelt/flutter-mcp-2/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用）
type options struct {
	// rawLogger 保留未加 namespace 的原始 Logger，透传给内部熔断器
	rawLogger clog.Logger
	logger    clog.Logger
	meter     metrics.Meter
}

// WithLogger 设置 Logger，传入 nil 时使用 clog.Discard()
// 内部会自动添加 namespace: "protect"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.rawLogger = logger
		if logger == nil {
			o.logger = clog.Discard()
		} else {
			o.logger = logger.WithNamespace("protect")
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
	timeout    time.Duration
	timeoutSet bool
	overall    time.Duration
	fallback   Fallback
	retry      bool
}

// WithTimeout 覆盖本次调用的单次尝试超时时间，0 表示不限制
func WithTimeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		o.timeout = d
		o.timeoutSet = true
	}
}

// WithOverallTimeout 设置本次调用的整体截止时间，覆盖整条
// 熔断 + 重试 + 单次超时链。未设置时整体耗时上限约为
// (MaxRetries+1) × 单次超时 + 退避等待之和。
func WithOverallTimeout(d time.Duration) CallOption {
	return func(o *callOptions) {
		o.overall = d
	}
}

// WithFallback 设置本次调用的降级函数
// 在熔断打开或重试链耗尽时调用，其结果替代失败结果
func WithFallback(fb Fallback) CallOption {
	return func(o *callOptions) {
		o.fallback = fb
	}
}

// WithoutRetry 关闭本次调用的重试，失败立即返回
func WithoutRetry() CallOption {
	return func(o *callOptions) {
		o.retry = false
	}
}
