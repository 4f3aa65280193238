package protect

import "github.com/tdikelt/flutter-mcp-2/xerrors"

var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("protect: config is nil")

	// ErrRateLimited 服务级限流拒绝，底层操作未被调用
	ErrRateLimited = xerrors.New("protect: rate limit exceeded")
)
