package cache

import "github.com/tdikelt/flutter-mcp-2/xerrors"

var (
	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = xerrors.New("cache: invalid config")

	// ErrConnectorRequired SQLite 连接器未提供或未连接
	ErrConnectorRequired = xerrors.New("cache: sqlite connector is required and must be connected")

	// ErrSerialize 值序列化失败，错误向上传播，绝不缓存损坏的值
	ErrSerialize = xerrors.New("cache: failed to serialize value")

	// ErrDeserialize 缓存值反序列化失败
	ErrDeserialize = xerrors.New("cache: failed to deserialize cached value")
)
