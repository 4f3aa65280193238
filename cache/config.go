package cache

import (
	"time"

	"github.com/tdikelt/flutter-mcp-2/xerrors"
)

// Config 缓存组件配置
type Config struct {
	// TTL 按类别的 TTL 覆盖表，如 {"pubPackage": 1h, "flutterDocs": 24h}。
	// 未命中表中类别时使用 DefaultTTL。
	TTL map[string]time.Duration `json:"ttl" yaml:"ttl"`

	// DefaultTTL 默认条目生命周期（默认 30 分钟）
	DefaultTTL time.Duration `json:"default_ttl" yaml:"default_ttl"`

	// EphemeralTTL L2 命中回填 L1 时使用的短 TTL（默认 5 分钟）
	EphemeralTTL time.Duration `json:"ephemeral_ttl" yaml:"ephemeral_ttl"`

	// EphemeralCapacity L1 最大条目数（默认 10000）
	EphemeralCapacity int `json:"ephemeral_capacity" yaml:"ephemeral_capacity"`

	// CapacityBytes L2 总大小软上限，超过后触发 LRU 驱逐（默认 100MB）
	CapacityBytes int64 `json:"capacity_bytes" yaml:"capacity_bytes"`

	// LowWater 驱逐的低水位比例，驱逐至 CapacityBytes*LowWater（默认 0.8）
	LowWater float64 `json:"low_water" yaml:"low_water"`

	// MaintenanceEvery 每 N 次写入触发一次 Maintain（默认 100）
	MaintenanceEvery int `json:"maintenance_every" yaml:"maintenance_every"`

	// Serializer 序列化器: "json" | "msgpack"（默认 "json"）
	Serializer string `json:"serializer" yaml:"serializer"`
}

// validate 验证配置并设置默认值（内部使用）
func (c *Config) validate() error {
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = 30 * time.Minute
	}
	if c.EphemeralTTL <= 0 {
		c.EphemeralTTL = 5 * time.Minute
	}
	if c.EphemeralCapacity <= 0 {
		c.EphemeralCapacity = 10000
	}
	if c.CapacityBytes <= 0 {
		c.CapacityBytes = 100 * 1024 * 1024
	}
	if c.LowWater <= 0 || c.LowWater > 1 {
		c.LowWater = 0.8
	}
	if c.MaintenanceEvery <= 0 {
		c.MaintenanceEvery = 100
	}
	for category, ttl := range c.TTL {
		if ttl <= 0 {
			return xerrors.Wrapf(ErrInvalidConfig, "ttl for category %q must be positive", category)
		}
	}
	return nil
}

// ttlFor 返回类别的 TTL，未配置时回落到默认值
func (c *Config) ttlFor(category string) time.Duration {
	if ttl, ok := c.TTL[category]; ok {
		return ttl
	}
	return c.DefaultTTL
}
