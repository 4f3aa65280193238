package testkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tdikelt/flutter-mcp-2/clog"
	"github.com/tdikelt/flutter-mcp-2/connector"
)

// NewSQLiteConnector 获取 SQLite 连接器（临时文件数据库）
// 数据库文件存储在 t.TempDir() 中，生命周期由 t.Cleanup 管理
func NewSQLiteConnector(t *testing.T) connector.SQLiteConnector {
	cfg := &connector.SQLiteConfig{
		Name: "test",
		Path: t.TempDir() + "/test.db",
	}
	conn, err := connector.NewSQLite(cfg, connector.WithLogger(clog.Discard()))
	require.NoError(t, err, "failed to create sqlite connector")

	err = conn.Connect(context.Background())
	require.NoError(t, err, "failed to connect to sqlite")

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return conn
}

// NewSQLiteDB 获取 GORM DB 实例（临时文件数据库）
func NewSQLiteDB(t *testing.T) *gorm.DB {
	return NewSQLiteConnector(t).GetClient()
}
