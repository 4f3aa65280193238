// Package connector 提供持久化存储的连接管理。
//
// 设计原则：
//   - 借用模型：上层组件借用连接器的连接，连接生命周期由创建方管理
//   - 延迟连接：New 仅校验配置，实际连接在 Connect() 时建立
//   - 幂等操作：Connect/Close 可重复调用
//
// 管道的持久层（L2 缓存）是单进程内嵌的 SQLite 数据库，
// 因此本包只提供 SQLite 连接器。
//
// 基本使用：
//
//	conn, _ := connector.NewSQLite(&connector.SQLiteConfig{
//	    Name: "cache",
//	    Path: "/var/lib/fluttermcp/cache.db",
//	}, connector.WithLogger(logger))
//	_ = conn.Connect(ctx)
//	defer conn.Close()
//
//	gormDB := conn.GetClient()
package connector

import (
	"context"

	"gorm.io/gorm"
)

// SQLiteConnector SQLite 连接器接口。
//
// 基于 GORM ORM 框架，支持内存数据库和文件数据库。
type SQLiteConnector interface {
	// Connect 建立连接，幂等
	Connect(ctx context.Context) error

	// GetClient 获取底层 *gorm.DB 实例，未连接时返回 nil
	GetClient() *gorm.DB

	// HealthCheck 主动探测连接健康状态
	HealthCheck(ctx context.Context) error

	// IsHealthy 返回缓存的健康状态
	IsHealthy() bool

	// Name 返回连接器名称
	Name() string

	// Close 关闭连接，幂等
	Close() error
}
