package xerrors

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestWrap 测试错误包装保留错误链
func TestWrap(t *testing.T) {
	base := New("base error")
	wrapped := Wrap(base, "context")

	assert.EqualError(t, wrapped, "context: base error")
	assert.True(t, Is(wrapped, base))
	assert.Nil(t, Wrap(nil, "context"))
}

// TestWithCode 测试错误码提取
func TestWithCode(t *testing.T) {
	base := New("boom")
	coded := WithCode(base, "ERR_CACHE_WRITE")

	assert.Equal(t, "ERR_CACHE_WRITE", GetCode(coded))
	assert.Equal(t, "", GetCode(base))
	assert.True(t, Is(coded, base))
}

// TestRetryable 测试错误分类的可重试性
func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", NewNetworkError(502, "bad gateway"), true},
		{"timeout", NewTimeoutError(time.Second), true},
		{"validation", NewValidationError("packageName", "must not be empty"), false},
		{"wrapped validation", Wrap(NewValidationError("url", "malformed"), "fetch docs"), false},
		{"plain", New("unknown"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

// TestTaxonomyMessages 测试错误信息包含关键上下文
func TestTaxonomyMessages(t *testing.T) {
	assert.Contains(t, NewNetworkError(404, "not found").Error(), "404")
	assert.Contains(t, NewValidationError("widgetName", "empty").Error(), "widgetName")
	assert.Contains(t, NewTimeoutError(1500*time.Millisecond).Error(), "1.5s")
}
