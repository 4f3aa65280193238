package protect

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/tdikelt/flutter-mcp-2/clog"
	"github.com/tdikelt/flutter-mcp-2/metrics"
	"github.com/tdikelt/flutter-mcp-2/xerrors"
)

// RetryConfig 重试策略配置
type RetryConfig struct {
	// MaxRetries 最大重试次数，总尝试次数为 MaxRetries+1（默认 3）
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// InitialDelay 首次重试前的基础延迟（默认 100ms）
	InitialDelay time.Duration `json:"initial_delay" yaml:"initial_delay"`

	// MaxDelay 单次延迟上限（默认 10s）
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`

	// BackoffFactor 指数退避倍率（默认 2.0）
	BackoffFactor float64 `json:"backoff_factor" yaml:"backoff_factor"`

	// DisableJitter 关闭抖动。默认启用抖动，将延迟乘以 [0.5, 1.0)
	// 区间的随机系数，避免多个客户端同步重试
	DisableJitter bool `json:"disable_jitter" yaml:"disable_jitter"`
}

// validate 设置默认值（内部使用）
func (c *RetryConfig) validate() {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	} else if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 10 * time.Second
	}
	if c.BackoffFactor < 1 {
		c.BackoffFactor = 2.0
	}
}

// delayFor 计算第 attempt 次重试前的延迟（attempt 从 0 开始）
func (c *RetryConfig) delayFor(attempt int) time.Duration {
	delay := float64(c.InitialDelay) * math.Pow(c.BackoffFactor, float64(attempt))
	if delay > float64(c.MaxDelay) {
		delay = float64(c.MaxDelay)
	}
	if !c.DisableJitter {
		delay *= 0.5 + rand.Float64()*0.5
	}
	return time.Duration(delay)
}

// runWithRetry 带重试地执行操作。
// 不可重试错误（如校验错误）立即返回；context 取消终止等待。
func (e *executor) runWithRetry(ctx context.Context, service string, op Operation, timeout time.Duration) (any, error) {
	var lastErr error
	for attempt := 0; attempt <= e.cfg.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := e.cfg.Retry.delayFor(attempt - 1)
			e.logger.Debug("retrying operation",
				clog.String("service", service),
				clog.Int("attempt", attempt),
				clog.Duration("delay", delay))
			e.retries.Inc(ctx, metrics.L("service", service))

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		result, err := runWithTimeout(ctx, timeout, op)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !xerrors.Retryable(err) {
			e.logger.Debug("error is not retryable, failing fast",
				clog.String("service", service),
				clog.Error(err))
			return nil, err
		}
	}
	return nil, lastErr
}
