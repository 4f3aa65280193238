package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) Limiter {
	l, err := New(&Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

// TestAllowWithinBurst 测试突发容量内的请求放行
func TestAllowWithinBurst(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()
	limit := Limit{Rate: 1, Burst: 3}

	for i := 0; i < 3; i++ {
		allowed, err := l.Allow(ctx, "pub.dev", limit)
		require.NoError(t, err)
		assert.True(t, allowed, "request %d within burst should pass", i+1)
	}

	allowed, err := l.Allow(ctx, "pub.dev", limit)
	require.NoError(t, err)
	assert.False(t, allowed, "request beyond burst should be rejected")
}

// TestKeysAreIsolated 测试不同 key 互不影响
func TestKeysAreIsolated(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()
	limit := Limit{Rate: 1, Burst: 1}

	allowed, err := l.Allow(ctx, "pub.dev", limit)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = l.Allow(ctx, "pub.dev", limit)
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = l.Allow(ctx, "api.flutter.dev", limit)
	require.NoError(t, err)
	assert.True(t, allowed, "a different key has its own bucket")
}

// TestTokensRefill 测试令牌随时间补充
func TestTokensRefill(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()
	limit := Limit{Rate: 100, Burst: 1}

	allowed, err := l.Allow(ctx, "pub.dev", limit)
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = l.Allow(ctx, "pub.dev", limit)
	require.NoError(t, err)
	require.False(t, allowed)

	time.Sleep(20 * time.Millisecond)

	allowed, err = l.Allow(ctx, "pub.dev", limit)
	require.NoError(t, err)
	assert.True(t, allowed, "token should refill after 1/rate seconds")
}

// TestAllowValidation 测试入参校验
func TestAllowValidation(t *testing.T) {
	l := newTestLimiter(t)
	ctx := context.Background()

	_, err := l.Allow(ctx, "", Limit{Rate: 1, Burst: 1})
	assert.ErrorIs(t, err, ErrKeyEmpty)

	_, err = l.Allow(ctx, "pub.dev", Limit{Rate: 0, Burst: 1})
	assert.ErrorIs(t, err, ErrInvalidLimit)

	_, err = l.AllowN(ctx, "pub.dev", Limit{Rate: 1, Burst: 1}, 0)
	assert.ErrorIs(t, err, ErrInvalidTokens)
}

// TestWaitRespectsContext 测试 Wait 在 context 取消后返回
func TestWaitRespectsContext(t *testing.T) {
	l := newTestLimiter(t)
	limit := Limit{Rate: 0.1, Burst: 1}

	// 耗尽桶里的令牌
	allowed, err := l.Allow(context.Background(), "pub.dev", limit)
	require.NoError(t, err)
	require.True(t, allowed)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = l.Wait(ctx, "pub.dev", limit)
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

// TestIdleCleanup 测试空闲限流器被后台清理
func TestIdleCleanup(t *testing.T) {
	l, err := New(&Config{
		CleanupInterval: 20 * time.Millisecond,
		IdleTimeout:     10 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	ctx := context.Background()
	limit := Limit{Rate: 1, Burst: 1}

	_, err = l.Allow(ctx, "pub.dev", limit)
	require.NoError(t, err)

	// 等待清理周期后，桶被重建，令牌重新可用
	time.Sleep(60 * time.Millisecond)
	allowed, err := l.Allow(ctx, "pub.dev", limit)
	require.NoError(t, err)
	assert.True(t, allowed)
}
