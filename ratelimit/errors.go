package ratelimit

import "github.com/tdikelt/flutter-mcp-2/xerrors"

var (
	// ErrKeyEmpty 限流 key 为空
	ErrKeyEmpty = xerrors.New("ratelimit: key is empty")

	// ErrInvalidLimit 限流规则无效
	ErrInvalidLimit = xerrors.New("ratelimit: rate and burst must be positive")

	// ErrInvalidTokens 请求的令牌数无效
	ErrInvalidTokens = xerrors.New("ratelimit: token count must be positive")
)
