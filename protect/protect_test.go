package protect

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdikelt/flutter-mcp-2/breaker"
	"github.com/tdikelt/flutter-mcp-2/xerrors"
)

var errFlaky = xerrors.NewNetworkError(503, "service unavailable")

func newTestExecutor(t *testing.T, cfg *Config) Executor {
	exec, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = exec.Close() })
	return exec
}

// fastRetry 测试用的快速重试配置，关闭抖动以便断言时序
func fastRetry(maxRetries int) *RetryConfig {
	return &RetryConfig{
		MaxRetries:    maxRetries,
		InitialDelay:  5 * time.Millisecond,
		MaxDelay:      50 * time.Millisecond,
		BackoffFactor: 2.0,
		DisableJitter: true,
	}
}

// TestNewNilConfig 测试 nil 配置
func TestNewNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrConfigNil)
}

// TestRunSuccess 测试成功执行透传返回值
func TestRunSuccess(t *testing.T) {
	exec := newTestExecutor(t, &Config{Retry: fastRetry(2)})

	result, err := exec.Run(context.Background(), "pub.dev", func(ctx context.Context) (any, error) {
		return "readme", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "readme", result)
}

// TestRetrySucceedsAfterTransientFailures 测试瞬时故障后重试成功，
// k 次失败 + 1 次成功共触达操作 k+1 次
func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	exec := newTestExecutor(t, &Config{Retry: fastRetry(3)})

	var invocations atomic.Int64
	result, err := exec.Run(context.Background(), "pub.dev", func(ctx context.Context) (any, error) {
		if invocations.Add(1) <= 2 {
			return nil, errFlaky
		}
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, int64(3), invocations.Load())
}

// TestRetryExhaustionReturnsLastError 测试重试耗尽后返回最后一次错误，
// 总尝试次数为 maxRetries+1
func TestRetryExhaustionReturnsLastError(t *testing.T) {
	exec := newTestExecutor(t, &Config{Retry: fastRetry(2)})

	var invocations atomic.Int64
	_, err := exec.Run(context.Background(), "pub.dev", func(ctx context.Context) (any, error) {
		invocations.Add(1)
		return nil, errFlaky
	})
	require.Error(t, err)
	var ne *xerrors.NetworkError
	assert.ErrorAs(t, err, &ne)
	assert.Equal(t, int64(3), invocations.Load())
}

// TestValidationErrorFailsFast 测试不可重试错误立即返回，不消耗重试
func TestValidationErrorFailsFast(t *testing.T) {
	exec := newTestExecutor(t, &Config{Retry: fastRetry(3)})

	var invocations atomic.Int64
	_, err := exec.Run(context.Background(), "pub.dev", func(ctx context.Context) (any, error) {
		invocations.Add(1)
		return nil, xerrors.NewValidationError("package", "name is empty")
	})
	require.Error(t, err)
	var ve *xerrors.ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, int64(1), invocations.Load())
}

// TestWithoutRetry 测试关闭重试后失败立即返回
func TestWithoutRetry(t *testing.T) {
	exec := newTestExecutor(t, &Config{Retry: fastRetry(3)})

	var invocations atomic.Int64
	_, err := exec.Run(context.Background(), "pub.dev", func(ctx context.Context) (any, error) {
		invocations.Add(1)
		return nil, errFlaky
	}, WithoutRetry())
	require.Error(t, err)
	assert.Equal(t, int64(1), invocations.Load())
}

// TestBackoffDelays 测试指数退避时序：
// initialDelay=100ms、factor=2 时两次重试的延迟约为 100ms 和 200ms
func TestBackoffDelays(t *testing.T) {
	exec := newTestExecutor(t, &Config{
		Retry: &RetryConfig{
			MaxRetries:    2,
			InitialDelay:  100 * time.Millisecond,
			MaxDelay:      10 * time.Second,
			BackoffFactor: 2.0,
			DisableJitter: true,
		},
	})

	start := time.Now()
	var invocations atomic.Int64
	_, err := exec.Run(context.Background(), "pub.dev", func(ctx context.Context) (any, error) {
		invocations.Add(1)
		return nil, errFlaky
	})
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.Equal(t, int64(3), invocations.Load())
	assert.GreaterOrEqual(t, elapsed, 300*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
}

// TestJitterShortensDelay 测试抖动将延迟缩短到区间 [0.5, 1.0) 内
func TestJitterShortensDelay(t *testing.T) {
	cfg := &RetryConfig{
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
	cfg.validate()

	for i := 0; i < 50; i++ {
		d := cfg.delayFor(0)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.Less(t, d, 100*time.Millisecond)
	}
}

// TestDelayCappedAtMax 测试延迟封顶
func TestDelayCappedAtMax(t *testing.T) {
	cfg := &RetryConfig{
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      300 * time.Millisecond,
		BackoffFactor: 2.0,
		DisableJitter: true,
	}
	cfg.validate()

	assert.Equal(t, 100*time.Millisecond, cfg.delayFor(0))
	assert.Equal(t, 200*time.Millisecond, cfg.delayFor(1))
	assert.Equal(t, 300*time.Millisecond, cfg.delayFor(2))
	assert.Equal(t, 300*time.Millisecond, cfg.delayFor(5))
}

// TestTimeoutProducesTimeoutError 测试慢操作超时后返回 TimeoutError，
// 携带配置的超时时间
func TestTimeoutProducesTimeoutError(t *testing.T) {
	exec := newTestExecutor(t, &Config{Retry: fastRetry(1)})

	_, err := exec.Run(context.Background(), "pub.dev", func(ctx context.Context) (any, error) {
		select {
		case <-time.After(500 * time.Millisecond):
			return "too late", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}, WithTimeout(30*time.Millisecond), WithoutRetry())

	require.Error(t, err)
	var te *xerrors.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 30*time.Millisecond, te.Timeout)
}

// TestTimeoutIsRetried 测试超时属于瞬时故障，会被重试
func TestTimeoutIsRetried(t *testing.T) {
	exec := newTestExecutor(t, &Config{Retry: fastRetry(1)})

	var invocations atomic.Int64
	result, err := exec.Run(context.Background(), "pub.dev", func(ctx context.Context) (any, error) {
		if invocations.Add(1) == 1 {
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
			}
			return nil, ctx.Err()
		}
		return "fast enough", nil
	}, WithTimeout(30*time.Millisecond))

	require.NoError(t, err)
	assert.Equal(t, "fast enough", result)
	assert.Equal(t, int64(2), invocations.Load())
}

// TestOverallTimeoutCapsRetryChain 测试整体截止时间覆盖整条重试链：
// 不响应 context 的慢操作在整体超时后立即返回，
// 不会累加 (MaxRetries+1) 个单次超时
func TestOverallTimeoutCapsRetryChain(t *testing.T) {
	exec := newTestExecutor(t, &Config{Retry: fastRetry(3)})

	var invocations atomic.Int64
	start := time.Now()
	_, err := exec.Run(context.Background(), "pub.dev", func(ctx context.Context) (any, error) {
		invocations.Add(1)
		// 故意不监听 ctx，模拟挂死的下游
		time.Sleep(300 * time.Millisecond)
		return "too late", nil
	}, WithTimeout(100*time.Millisecond), WithOverallTimeout(50*time.Millisecond))

	elapsed := time.Since(start)
	require.Error(t, err)
	var te *xerrors.TimeoutError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 50*time.Millisecond, te.Timeout)
	assert.Less(t, elapsed, 200*time.Millisecond,
		"caller must get control back at the overall deadline")
	assert.Equal(t, int64(1), invocations.Load())
}

// TestBreakerOpensAndFailsFast 测试连续失败触发熔断后快速失败，
// 底层操作不再被触达
func TestBreakerOpensAndFailsFast(t *testing.T) {
	exec := newTestExecutor(t, &Config{
		Breaker: &breaker.Config{FailureThreshold: 3, ResetTimeout: time.Second},
		Retry:   fastRetry(-1),
	})
	ctx := context.Background()

	var invocations atomic.Int64
	op := func(ctx context.Context) (any, error) {
		invocations.Add(1)
		return nil, errFlaky
	}

	for i := 0; i < 3; i++ {
		_, err := exec.Run(ctx, "pub.dev", op, WithoutRetry())
		require.Error(t, err)
	}
	assert.Equal(t, int64(3), invocations.Load())
	assert.Equal(t, breaker.StateOpen, exec.Status("pub.dev").State)

	_, err := exec.Run(ctx, "pub.dev", op, WithoutRetry())
	assert.ErrorIs(t, err, breaker.ErrOpenState)
	assert.Equal(t, int64(3), invocations.Load())
}

// TestFallbackReplacesFailure 测试降级结果替代失败结果
func TestFallbackReplacesFailure(t *testing.T) {
	exec := newTestExecutor(t, &Config{
		Breaker: &breaker.Config{FailureThreshold: 2, ResetTimeout: time.Second},
		Retry:   fastRetry(-1),
	})
	ctx := context.Background()

	op := func(ctx context.Context) (any, error) {
		return nil, errFlaky
	}
	fallback := func(ctx context.Context) (any, error) {
		return "stale copy", nil
	}

	// 重试链耗尽时降级
	result, err := exec.Run(ctx, "pub.dev", op, WithoutRetry(), WithFallback(fallback))
	require.NoError(t, err)
	assert.Equal(t, "stale copy", result)

	// 熔断打开时同样降级
	_, _ = exec.Run(ctx, "pub.dev", op, WithoutRetry())
	require.Equal(t, breaker.StateOpen, exec.Status("pub.dev").State)

	result, err = exec.Run(ctx, "pub.dev", op, WithoutRetry(), WithFallback(fallback))
	require.NoError(t, err)
	assert.Equal(t, "stale copy", result)
}

// TestRateLimitRejects 测试限流拒绝不触达底层操作
func TestRateLimitRejects(t *testing.T) {
	exec := newTestExecutor(t, &Config{
		Retry:     fastRetry(-1),
		RateLimit: &RateLimitConfig{Enabled: true, RPS: 1, Burst: 1},
	})
	ctx := context.Background()

	var invocations atomic.Int64
	op := func(ctx context.Context) (any, error) {
		invocations.Add(1)
		return "ok", nil
	}

	_, err := exec.Run(ctx, "pub.dev", op)
	require.NoError(t, err)

	_, err = exec.Run(ctx, "pub.dev", op)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, int64(1), invocations.Load())
}

// TestErrorLogBoundedAndCounted 测试错误日志环形淘汰与按类别计数
func TestErrorLogBoundedAndCounted(t *testing.T) {
	exec := newTestExecutor(t, &Config{
		Retry:        fastRetry(-1),
		ErrorLogSize: 3,
	})
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		_, _ = exec.Run(ctx, "pub.dev", func(ctx context.Context) (any, error) {
			return nil, errFlaky
		}, WithoutRetry())
	}
	_, _ = exec.Run(ctx, "pub.dev", func(ctx context.Context) (any, error) {
		return nil, xerrors.NewValidationError("version", "bad constraint")
	}, WithoutRetry())

	status := exec.StatusAll()
	require.NotNil(t, status.Errors)
	assert.Equal(t, int64(5), status.Errors.Total)
	assert.Len(t, status.Errors.Recent, 3)
	assert.Equal(t, int64(4), status.Errors.Counts["network"])
	assert.Equal(t, int64(1), status.Errors.Counts["validation"])

	// 最后一条应是校验错误
	last := status.Errors.Recent[len(status.Errors.Recent)-1]
	assert.Equal(t, "validation", last.Kind)
}

// TestStatusAllIncludesServices 测试全局状态包含所有服务
func TestStatusAllIncludesServices(t *testing.T) {
	exec := newTestExecutor(t, &Config{Retry: fastRetry(-1)})
	ctx := context.Background()

	ok := func(ctx context.Context) (any, error) { return "ok", nil }
	_, _ = exec.Run(ctx, "pub.dev", ok)
	_, _ = exec.Run(ctx, "api.flutter.dev", ok)

	status := exec.StatusAll()
	assert.Contains(t, status.Services, "pub.dev")
	assert.Contains(t, status.Services, "api.flutter.dev")
}

// TestResetClosesBreaker 测试重置后恢复正常执行
func TestResetClosesBreaker(t *testing.T) {
	exec := newTestExecutor(t, &Config{
		Breaker: &breaker.Config{FailureThreshold: 1, ResetTimeout: time.Hour},
		Retry:   fastRetry(-1),
	})
	ctx := context.Background()

	_, _ = exec.Run(ctx, "pub.dev", func(ctx context.Context) (any, error) {
		return nil, errFlaky
	}, WithoutRetry())
	require.Equal(t, breaker.StateOpen, exec.Status("pub.dev").State)

	exec.Reset("pub.dev")

	result, err := exec.Run(ctx, "pub.dev", func(ctx context.Context) (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}
