package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewSQLiteInvalidConfig 测试非法配置
func TestNewSQLiteInvalidConfig(t *testing.T) {
	_, err := NewSQLite(nil)
	assert.Error(t, err)

	_, err = NewSQLite(&SQLiteConfig{})
	assert.Error(t, err)
}

// TestSQLiteConnectLifecycle 测试连接生命周期
func TestSQLiteConnectLifecycle(t *testing.T) {
	conn, err := NewSQLite(&SQLiteConfig{
		Name: "test",
		Path: t.TempDir() + "/test.db",
	})
	require.NoError(t, err)

	ctx := context.Background()

	// 未连接时
	assert.Nil(t, conn.GetClient())
	assert.False(t, conn.IsHealthy())
	assert.Error(t, conn.HealthCheck(ctx))

	// 连接
	require.NoError(t, conn.Connect(ctx))
	assert.NotNil(t, conn.GetClient())
	assert.True(t, conn.IsHealthy())
	assert.NoError(t, conn.HealthCheck(ctx))

	// Connect 幂等
	require.NoError(t, conn.Connect(ctx))

	// 关闭
	require.NoError(t, conn.Close())
	assert.False(t, conn.IsHealthy())

	// Close 幂等
	require.NoError(t, conn.Close())
}

// TestSQLiteInMemory 测试内存数据库
func TestSQLiteInMemory(t *testing.T) {
	conn, err := NewSQLite(&SQLiteConfig{Path: "file::memory:?cache=shared"})
	require.NoError(t, err)
	require.NoError(t, conn.Connect(context.Background()))
	t.Cleanup(func() { _ = conn.Close() })

	assert.Equal(t, "default", conn.Name())
	assert.NotNil(t, conn.GetClient())
}
