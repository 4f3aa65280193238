package connector

import "github.com/tdikelt/flutter-mcp-2/clog"

// Option 连接器选项函数
type Option func(*options)

// options 选项结构（内部使用）
type options struct {
	logger clog.Logger
}

// applyDefaults 填充缺失的选项默认值
func (o *options) applyDefaults() {
	if o.logger == nil {
		o.logger = clog.Discard()
	}
}

// WithLogger 注入日志记录器
func WithLogger(l clog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l.WithNamespace("connector")
		}
	}
}
