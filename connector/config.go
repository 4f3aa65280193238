package connector

import "github.com/tdikelt/flutter-mcp-2/xerrors"

// SQLiteConfig SQLite 连接器配置
type SQLiteConfig struct {
	// Name 连接器名称，用于日志与错误信息（默认 "default"）
	Name string `json:"name" yaml:"name"`

	// Path 数据库路径。
	// 文件数据库使用文件路径；内存数据库使用 "file::memory:?cache=shared"。
	Path string `json:"path" yaml:"path"`
}

// validate 验证配置并设置默认值（内部使用）
func (c *SQLiteConfig) validate() error {
	if c == nil {
		return xerrors.New("connector: sqlite config is nil")
	}
	if c.Name == "" {
		c.Name = "default"
	}
	if c.Path == "" {
		return xerrors.New("connector: sqlite path is required")
	}
	return nil
}
