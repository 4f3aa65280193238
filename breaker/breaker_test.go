package breaker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tdikelt/flutter-mcp-2/xerrors"
)

var errUpstream = xerrors.New("upstream failed")

func newTestBreaker(t *testing.T, cfg *Config) Breaker {
	brk, err := New(cfg)
	require.NoError(t, err)
	return brk
}

// TestNewNilConfig 测试 nil 配置
func TestNewNilConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, ErrConfigNil)
}

// TestExecuteSuccess 测试成功执行透传返回值
func TestExecuteSuccess(t *testing.T) {
	brk := newTestBreaker(t, &Config{FailureThreshold: 3, ResetTimeout: time.Second})

	result, err := brk.Execute(context.Background(), "pub.dev", func() (any, error) {
		return "success", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "success", result)
	assert.Equal(t, StateClosed, brk.State("pub.dev"))
}

// TestExecuteEmptyService 测试空服务名
func TestExecuteEmptyService(t *testing.T) {
	brk := newTestBreaker(t, &Config{})

	_, err := brk.Execute(context.Background(), "", func() (any, error) {
		return nil, nil
	})
	assert.ErrorIs(t, err, ErrServiceEmpty)
}

// TestOpensAfterExactlyThresholdFailures 测试恰好达到阈值后熔断打开，
// 后续调用不再触达底层操作
func TestOpensAfterExactlyThresholdFailures(t *testing.T) {
	brk := newTestBreaker(t, &Config{FailureThreshold: 3, ResetTimeout: time.Second})
	ctx := context.Background()

	var invocations atomic.Int64
	op := func() (any, error) {
		invocations.Add(1)
		return nil, errUpstream
	}

	// 第 1、2 次失败后仍为闭合
	_, err := brk.Execute(ctx, "pub.dev", op)
	assert.ErrorIs(t, err, errUpstream)
	_, err = brk.Execute(ctx, "pub.dev", op)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, StateClosed, brk.State("pub.dev"))

	// 第 3 次失败触发熔断
	_, err = brk.Execute(ctx, "pub.dev", op)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, StateOpen, brk.State("pub.dev"))
	assert.Equal(t, int64(3), invocations.Load())

	// 熔断期间快速失败，底层操作不被调用
	_, err = brk.Execute(ctx, "pub.dev", op)
	assert.ErrorIs(t, err, ErrOpenState)
	assert.Equal(t, int64(3), invocations.Load())
}

// TestHalfOpenSingleTrialThenClose 测试冷却后的半开状态恰好放行一次
// 试探调用，成功后恢复闭合
func TestHalfOpenSingleTrialThenClose(t *testing.T) {
	brk := newTestBreaker(t, &Config{FailureThreshold: 3, ResetTimeout: 100 * time.Millisecond})
	ctx := context.Background()

	var invocations atomic.Int64
	failing := func() (any, error) {
		invocations.Add(1)
		return nil, errUpstream
	}

	for i := 0; i < 3; i++ {
		_, _ = brk.Execute(ctx, "pub.dev", failing)
	}
	require.Equal(t, StateOpen, brk.State("pub.dev"))
	require.Equal(t, int64(3), invocations.Load())

	// 冷却期内仍然快速失败
	_, err := brk.Execute(ctx, "pub.dev", failing)
	assert.ErrorIs(t, err, ErrOpenState)
	assert.Equal(t, int64(3), invocations.Load())

	time.Sleep(120 * time.Millisecond)

	// 冷却结束，试探调用恰好执行一次
	result, err := brk.Execute(ctx, "pub.dev", func() (any, error) {
		invocations.Add(1)
		return "recovered", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", result)
	assert.Equal(t, int64(4), invocations.Load())
	assert.Equal(t, StateClosed, brk.State("pub.dev"))
}

// TestHalfOpenFailedTrialReopens 测试试探失败后重新打开
func TestHalfOpenFailedTrialReopens(t *testing.T) {
	brk := newTestBreaker(t, &Config{FailureThreshold: 2, ResetTimeout: 80 * time.Millisecond})
	ctx := context.Background()

	failing := func() (any, error) { return nil, errUpstream }

	for i := 0; i < 2; i++ {
		_, _ = brk.Execute(ctx, "docs.flutter.dev", failing)
	}
	require.Equal(t, StateOpen, brk.State("docs.flutter.dev"))

	time.Sleep(100 * time.Millisecond)

	_, err := brk.Execute(ctx, "docs.flutter.dev", failing)
	assert.ErrorIs(t, err, errUpstream)
	assert.Equal(t, StateOpen, brk.State("docs.flutter.dev"))
}

// TestFallbackOnOpen 测试熔断打开时走降级逻辑
func TestFallbackOnOpen(t *testing.T) {
	brk, err := New(&Config{FailureThreshold: 1, ResetTimeout: time.Second},
		WithFallback(func(ctx context.Context, service string, err error) (any, error) {
			return "stale copy", nil
		}))
	require.NoError(t, err)
	ctx := context.Background()

	_, _ = brk.Execute(ctx, "pub.dev", func() (any, error) { return nil, errUpstream })
	require.Equal(t, StateOpen, brk.State("pub.dev"))

	result, err := brk.Execute(ctx, "pub.dev", func() (any, error) {
		t.Fatal("operation must not be invoked while open")
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "stale copy", result)
}

// TestServicesIsolated 测试不同服务的熔断互不影响
func TestServicesIsolated(t *testing.T) {
	brk := newTestBreaker(t, &Config{FailureThreshold: 1, ResetTimeout: time.Second})
	ctx := context.Background()

	_, _ = brk.Execute(ctx, "pub.dev", func() (any, error) { return nil, errUpstream })
	require.Equal(t, StateOpen, brk.State("pub.dev"))

	result, err := brk.Execute(ctx, "docs.flutter.dev", func() (any, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}

// TestStatus 测试状态快照
func TestStatus(t *testing.T) {
	brk := newTestBreaker(t, &Config{FailureThreshold: 5, ResetTimeout: time.Second})
	ctx := context.Background()

	_, _ = brk.Execute(ctx, "pub.dev", func() (any, error) { return "ok", nil })
	_, _ = brk.Execute(ctx, "pub.dev", func() (any, error) { return nil, errUpstream })

	st := brk.Status("pub.dev")
	assert.Equal(t, "pub.dev", st.Service)
	assert.Equal(t, "closed", st.State)
	assert.Equal(t, int64(1), st.Failures)
	assert.Equal(t, int64(1), st.SuccessCount)
	assert.Equal(t, int64(2), st.RequestCount)
	assert.InDelta(t, 50.0, st.SuccessRate, 0.01)
	assert.False(t, st.LastFailureTime.IsZero())

	// 未知服务返回闭合的空快照
	st = brk.Status("unknown")
	assert.Equal(t, "closed", st.State)
	assert.Zero(t, st.RequestCount)

	all := brk.StatusAll()
	assert.Contains(t, all, "pub.dev")
}

// TestReset 测试重置后恢复闭合并清零计数
func TestReset(t *testing.T) {
	brk := newTestBreaker(t, &Config{FailureThreshold: 1, ResetTimeout: time.Hour})
	ctx := context.Background()

	_, _ = brk.Execute(ctx, "pub.dev", func() (any, error) { return nil, errUpstream })
	require.Equal(t, StateOpen, brk.State("pub.dev"))

	brk.Reset("pub.dev")
	assert.Equal(t, StateClosed, brk.State("pub.dev"))
	assert.Zero(t, brk.Status("pub.dev").RequestCount)

	// 重置后立即可用
	result, err := brk.Execute(ctx, "pub.dev", func() (any, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
}
