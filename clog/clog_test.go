package clog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNew 测试 Logger 创建
func TestNew(t *testing.T) {
	logger, err := New(&Config{Level: "debug", Format: "json", Output: "stdout"})
	require.NoError(t, err)
	require.NotNil(t, logger)

	// nil 配置使用默认值
	logger, err = New(nil)
	require.NoError(t, err)
	require.NotNil(t, logger)
}

// TestNewInvalidConfig 测试非法配置
func TestNewInvalidConfig(t *testing.T) {
	_, err := New(&Config{Level: "verbose"})
	assert.Error(t, err)

	_, err = New(&Config{Format: "xml"})
	assert.Error(t, err)
}

// TestParseLevel 测试级别解析
func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", DebugLevel, false},
		{"INFO", InfoLevel, false},
		{"warning", WarnLevel, false},
		{"error", ErrorLevel, false},
		{"fatal", FatalLevel, false},
		{"", InfoLevel, false},
		{"nope", InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
		} else {
			assert.NoError(t, err, tt.in)
		}
		assert.Equal(t, tt.want, got, tt.in)
	}
}

// TestWithNamespace 测试命名空间扩展不影响父 Logger
func TestWithNamespace(t *testing.T) {
	logger, err := New(&Config{Level: "info", Format: "json"}, WithNamespace("pipeline"))
	require.NoError(t, err)

	child := logger.WithNamespace("cache")
	require.NotNil(t, child)

	// 父子 Logger 都应可用
	logger.Info("parent")
	child.Info("child", String("key", "value"))
}

// TestDiscard 测试静默 Logger
func TestDiscard(t *testing.T) {
	logger := Discard()
	logger.Info("swallowed", String("k", "v"))
	logger.Error("also swallowed", Error(assert.AnError))
	assert.Equal(t, logger, logger.With(String("a", "b")))
}
