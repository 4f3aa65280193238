package connector

import "github.com/tdikelt/flutter-mcp-2/xerrors"

var (
	// ErrConnection 连接建立失败
	ErrConnection = xerrors.New("connector: connection failed")

	// ErrClientNil 连接尚未建立
	ErrClientNil = xerrors.New("connector: client is nil, call Connect first")

	// ErrHealthCheck 健康检查失败
	ErrHealthCheck = xerrors.New("connector: health check failed")
)
