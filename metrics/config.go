package metrics

// Config 指标组件配置
type Config struct {
	// Enabled 是否启用指标收集（默认关闭，返回 noop Meter）
	Enabled bool `json:"enabled" yaml:"enabled"`

	// ServiceName 服务名，作为指标资源属性（默认 "flutter-mcp"）
	ServiceName string `json:"service_name" yaml:"service_name"`

	// Version 服务版本号
	Version string `json:"version" yaml:"version"`

	// Port Prometheus HTTP 端口，0 表示不启动内置服务器
	Port int `json:"port" yaml:"port"`

	// Path 指标暴露路径（默认 "/metrics"）
	Path string `json:"path" yaml:"path"`
}

// validate 设置默认值（内部使用）
func (c *Config) validate() {
	if c.ServiceName == "" {
		c.ServiceName = "flutter-mcp"
	}
	if c.Path == "" {
		c.Path = "/metrics"
	}
}
