package config

import "github.com/tdikelt/flutter-mcp-2/xerrors"

var (
	// ErrKeyEmpty 监听的配置 Key 为空
	ErrKeyEmpty = xerrors.New("config: watch key is empty")
)
