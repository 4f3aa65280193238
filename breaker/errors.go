package breaker

import "github.com/tdikelt/flutter-mcp-2/xerrors"

var (
	// ErrConfigNil 配置为空
	ErrConfigNil = xerrors.New("breaker: config is nil")

	// ErrServiceEmpty 服务名为空
	ErrServiceEmpty = xerrors.New("breaker: service name is empty")

	// ErrOpenState 熔断器处于打开状态，底层操作未被调用
	ErrOpenState = xerrors.New("breaker: circuit breaker is open")
)
