// Package clog 提供基于 slog 的结构化日志组件。
//
// 特性：
//   - 抽象接口，不暴露底层实现（slog）
//   - 支持层级命名空间，便于区分管道内的各个组件
//   - 零外部依赖（仅依赖 Go 标准库）
//   - 采用函数式选项模式
//
// 基本使用：
//
//	logger, _ := clog.New(&clog.Config{
//	    Level:  "info",
//	    Format: "console",
//	    Output: "stdout",
//	})
//	logger.Info("pipeline ready", clog.String("category", "flutterDocs"))
//
// 创建子 Logger：
//
//	cacheLogger := logger.WithNamespace("cache")
//	cacheLogger.Info("cache hit", clog.String("key", key))
package clog

import "fmt"

// New 创建一个新的 Logger 实例
//
// config 为 nil 时使用默认配置（info 级别，console 格式，stdout 输出）。
func New(config *Config, opts ...Option) (Logger, error) {
	if config == nil {
		config = &Config{}
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}

	return newLogger(config, opt)
}
