// Package config 提供应用配置管理能力。
// 支持多源配置加载与热更新，基于 Viper 实现。
//
// 特性：
//   - 多源配置加载：YAML/JSON 文件、环境变量、.env 文件
//   - 配置优先级：环境变量 > .env > 配置文件
//   - 热更新支持：监听配置文件变化，自动通知应用
//
// 基本使用：
//
//	loader, err := config.Load(
//	    config.WithConfigPaths("./config"),
//	    config.WithEnvPrefix("FLUTTERMCP"),
//	)
//	if err != nil {
//	    return err
//	}
//
//	settings, err := loader.Settings()
//	if err != nil {
//	    return err
//	}
package config

import (
	"context"
	"time"

	"github.com/tdikelt/flutter-mcp-2/clog"
	"github.com/tdikelt/flutter-mcp-2/connector"
	"github.com/tdikelt/flutter-mcp-2/metrics"
	"github.com/tdikelt/flutter-mcp-2/pipeline"
)

// Settings 应用的完整配置
type Settings struct {
	// App 应用基本信息
	App AppConfig `json:"app" yaml:"app"`

	// Log 日志配置
	Log clog.Config `json:"log" yaml:"log"`

	// Metrics 指标配置
	Metrics metrics.Config `json:"metrics" yaml:"metrics"`

	// Database 持久化缓存的 SQLite 配置
	Database connector.SQLiteConfig `json:"database" yaml:"database"`

	// Pipeline 执行管道配置
	Pipeline pipeline.Config `json:"pipeline" yaml:"pipeline"`
}

// AppConfig 应用基本信息
type AppConfig struct {
	// Name 应用名（默认 "flutter-mcp"）
	Name string `json:"name" yaml:"name"`

	// Env 运行环境：development | production
	Env string `json:"env" yaml:"env"`
}

// validate 设置默认值（内部使用）
func (s *Settings) validate() {
	if s.App.Name == "" {
		s.App.Name = "flutter-mcp"
	}
	if s.App.Env == "" {
		s.App.Env = "development"
	}
	if s.Database.Path == "" {
		s.Database.Path = "flutter_mcp_cache.db"
	}
}

// Loader 定义配置加载器的核心行为
type Loader interface {
	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Settings 反序列化为应用配置并填入默认值
	Settings() (*Settings, error)

	// Watch 监听指定 Key 的配置变化，通过 context 取消监听
	Watch(ctx context.Context, key string) (<-chan Event, error)
}

// Event 配置变更事件
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Timestamp time.Time
}

// Load 创建加载器并完成一次加载
func Load(opts ...Option) (Loader, error) {
	cfg := &Config{}
	for _, o := range opts {
		o(cfg)
	}
	cfg.validate()

	l := newLoader(cfg)
	if err := l.load(); err != nil {
		return nil, err
	}
	return l, nil
}
