// Package cache 提供管道的两级缓存组件。
//
// 缓存由两层构成：
//   - L1（EphemeralStore）：基于 otter 的进程内缓存，容量按条目数约束，
//     读写为纳秒级，进程重启后丢失；
//   - L2（DurableStore）：基于 GORM + SQLite 的持久化缓存，记录过期时间、
//     命中次数与字节大小，进程重启后仍然有效。
//
// 读路径为 L1 → L2 的穿透读：L2 命中时会以较短的固定 TTL 回填 L1。
// 写路径为双写：按类别 TTL 表决定条目生命周期。容量超限时由
// Maintain 执行过期清理和 LRU 批量驱逐。
//
// 两层各自持有值的独立序列化副本，瞬时可能不一致，这是设计取舍。
// 同一键的并发读写不做串行化，也没有 single-flight 去重：并发未命中
// 会各自触发上游调用。
//
// 基本使用：
//
//	conn, _ := connector.NewSQLite(&connector.SQLiteConfig{Path: "cache.db"})
//	_ = conn.Connect(ctx)
//	c, _ := cache.New(conn, &cache.Config{
//	    TTL: map[string]time.Duration{
//	        "pubPackage":  time.Hour,
//	        "flutterDocs": 24 * time.Hour,
//	    },
//	}, cache.WithLogger(logger))
//
//	_ = c.Set(ctx, "pubPackage", map[string]any{"packageName": "http"}, pkg)
//	ok, _ := c.Get(ctx, "pubPackage", map[string]any{"packageName": "http"}, &pkg)
package cache

import (
	"context"
	"time"

	"github.com/tdikelt/flutter-mcp-2/clog"
	"github.com/tdikelt/flutter-mcp-2/connector"
	"github.com/tdikelt/flutter-mcp-2/xerrors"

	"github.com/tdikelt/flutter-mcp-2/cache/serializer"
)

// Cache 定义两级缓存组件的核心能力
type Cache interface {
	// Get 按类别与参数查询缓存，命中时将值反序列化到 dest 并返回 true。
	// 未命中或已过期返回 false，不返回错误。
	Get(ctx context.Context, category string, params map[string]any, dest any) (bool, error)

	// Set 按类别 TTL 双写两级缓存。序列化失败时错误向上传播，不会写入损坏的值。
	Set(ctx context.Context, category string, params map[string]any, value any) error

	// Invalidate 删除缓存。
	// params 非 nil 时仅删除对应的单个键；params 为 nil 时删除该类别的
	// 全部 L2 行并清空整个 L1（L1 没有类别索引）。
	Invalidate(ctx context.Context, category string, params map[string]any) error

	// Maintain 执行维护：清理过期行；总大小超过容量上限时按 LRU
	// 批量驱逐至低水位。
	Maintain(ctx context.Context) error

	// Stats 返回缓存统计快照（只读）。
	Stats(ctx context.Context) (*Stats, error)

	// Close 关闭组件（不关闭借用的数据库连接）。
	Close() error
}

// Stats 缓存统计快照
type Stats struct {
	Entries        int64     `json:"entries"`
	TotalSizeBytes int64     `json:"total_size_bytes"`
	AverageHits    float64   `json:"average_hits"`
	MaxHits        int64     `json:"max_hits"`
	HitRate        float64   `json:"hit_rate"` // 百分比，0-100
	TotalHits      int64     `json:"total_hits"`
	TotalMisses    int64     `json:"total_misses"`
	TotalWrites    int64     `json:"total_writes"`
	TotalEvictions int64     `json:"total_evictions"`
	LastCleanupAt  time.Time `json:"last_cleanup_at"`
}

// New 创建两级缓存实例
//
// conn 为已连接的 SQLite 连接器（借用模型，生命周期由调用方管理）。
// 创建时会自动迁移缓存表结构。
func New(conn connector.SQLiteConnector, cfg *Config, opts ...Option) (Cache, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrap(err, "invalid cache config")
	}

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	opt.applyDefaults()

	if conn == nil || conn.GetClient() == nil {
		return nil, ErrConnectorRequired
	}

	ser, err := serializer.New(cfg.Serializer)
	if err != nil {
		return nil, xerrors.Wrapf(err, "cache: serializer %q", cfg.Serializer)
	}

	l1, err := newEphemeral(cfg.EphemeralCapacity)
	if err != nil {
		return nil, xerrors.Wrap(err, "cache: failed to build ephemeral store")
	}

	l2, err := newDurable(conn.GetClient())
	if err != nil {
		l1.close()
		return nil, xerrors.Wrap(err, "cache: failed to build durable store")
	}

	opt.logger.Info("cache created",
		clog.Int("ephemeral_capacity", cfg.EphemeralCapacity),
		clog.Int64("capacity_bytes", cfg.CapacityBytes),
		clog.Duration("default_ttl", cfg.DefaultTTL),
		clog.String("serializer", cfg.Serializer))

	return newCoordinator(cfg, l1, l2, ser, opt)
}
