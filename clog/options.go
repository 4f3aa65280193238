package clog

// Option 组件初始化选项函数
type Option func(*options)

// options 组件初始化选项配置（内部使用）
type options struct {
	namespaceParts []string
}

// WithNamespace 设置初始命名空间
//
// 示例：
//
//	logger, _ := clog.New(cfg, clog.WithNamespace("pipeline"))
func WithNamespace(parts ...string) Option {
	return func(o *options) {
		o.namespaceParts = append(o.namespaceParts, parts...)
	}
}
