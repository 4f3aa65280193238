package clog

import "context"

// Logger 日志接口，提供结构化日志记录功能
//
// 支持 Debug、Info、Warn、Error、Fatal 五个级别，
// 每个级别都有带 Context 和不带 Context 的版本。
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)

	DebugContext(ctx context.Context, msg string, fields ...Field)
	InfoContext(ctx context.Context, msg string, fields ...Field)
	WarnContext(ctx context.Context, msg string, fields ...Field)
	ErrorContext(ctx context.Context, msg string, fields ...Field)
	FatalContext(ctx context.Context, msg string, fields ...Field)

	// With 创建一个带有预设字段的子 Logger，预设字段出现在后续所有日志中。
	With(fields ...Field) Logger

	// WithNamespace 创建一个扩展命名空间的子 Logger。
	// 命名空间追加到现有命名空间之后，以 "." 连接，如 "pipeline.cache"。
	WithNamespace(parts ...string) Logger

	// SetLevel 动态调整日志级别，无需重新创建 Logger。
	SetLevel(level Level) error
}
