package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tdikelt/flutter-mcp-2/clog"
	"github.com/tdikelt/flutter-mcp-2/metrics"
	"github.com/tdikelt/flutter-mcp-2/xerrors"

	"github.com/tdikelt/flutter-mcp-2/cache/serializer"
)

// coordinator 两级缓存的读写编排实现
type coordinator struct {
	cfg    *Config
	l1     *ephemeralStore
	l2     *durableStore
	ser    serializer.Serializer
	logger clog.Logger

	hits      metrics.Counter
	misses    metrics.Counter
	writes    metrics.Counter
	evictions metrics.Counter

	writeCount atomic.Int64
}

func newCoordinator(cfg *Config, l1 *ephemeralStore, l2 *durableStore, ser serializer.Serializer, opt *options) (Cache, error) {
	hits, err := opt.meter.Counter("cache_hits_total", "缓存命中总数")
	if err != nil {
		return nil, err
	}
	misses, err := opt.meter.Counter("cache_misses_total", "缓存未命中总数")
	if err != nil {
		return nil, err
	}
	writes, err := opt.meter.Counter("cache_writes_total", "缓存写入总数")
	if err != nil {
		return nil, err
	}
	evictions, err := opt.meter.Counter("cache_evictions_total", "缓存驱逐总数")
	if err != nil {
		return nil, err
	}

	return &coordinator{
		cfg:       cfg,
		l1:        l1,
		l2:        l2,
		ser:       ser,
		logger:    opt.logger,
		hits:      hits,
		misses:    misses,
		writes:    writes,
		evictions: evictions,
	}, nil
}

// Get 穿透读：L1 → L2，L2 命中时以短 TTL 回填 L1
func (c *coordinator) Get(ctx context.Context, category string, params map[string]any, dest any) (bool, error) {
	key, err := Fingerprint(category, params)
	if err != nil {
		return false, err
	}

	// L1
	if data, ok := c.l1.get(key); ok {
		if err := c.ser.Unmarshal(data, dest); err != nil {
			return false, xerrors.Wrapf(ErrDeserialize, "key %s: %v", key, err)
		}
		c.recordHit(ctx, "l1", key)
		return true, nil
	}

	// L2
	now := time.Now()
	row, err := c.l2.get(ctx, key)
	if err != nil {
		c.logger.Warn("durable store read failed", clog.String("key", key), clog.Error(err))
		c.recordMiss(ctx, key)
		return false, nil
	}
	if row == nil || !row.ExpiresAt.After(now) {
		c.recordMiss(ctx, key)
		return false, nil
	}

	if err := c.ser.Unmarshal(row.Value, dest); err != nil {
		return false, xerrors.Wrapf(ErrDeserialize, "key %s: %v", key, err)
	}

	// 回填 L1（短 TTL，不超过条目剩余寿命语义由 L2 的过期判断兜底）
	c.l1.set(key, row.Value, c.cfg.EphemeralTTL)

	if err := c.l2.touch(ctx, key, now); err != nil {
		c.logger.Warn("failed to update hit bookkeeping", clog.String("key", key), clog.Error(err))
	}
	c.recordHit(ctx, "l2", key)
	return true, nil
}

// Set 双写两级缓存，每 N 次写入触发一次维护
func (c *coordinator) Set(ctx context.Context, category string, params map[string]any, value any) error {
	key, err := Fingerprint(category, params)
	if err != nil {
		return err
	}

	data, err := c.ser.Marshal(value)
	if err != nil {
		// 序列化失败向上传播，绝不缓存损坏的值
		return xerrors.Wrapf(ErrSerialize, "key %s: %v", key, err)
	}

	ttl := c.cfg.ttlFor(category)
	now := time.Now()

	c.l1.set(key, data, ttl)

	row := &entryRow{
		Key:            key,
		Value:          data,
		Category:       category,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		HitCount:       0,
		LastAccessedAt: now,
		SizeBytes:      int64(len(data)),
	}
	if err := c.l2.put(ctx, row); err != nil {
		return xerrors.Wrapf(err, "cache: failed to persist key %s", key)
	}

	if err := c.l2.bump(ctx, "total_writes", 1); err != nil {
		c.logger.Warn("failed to bump write counter", clog.Error(err))
	}
	c.writes.Inc(ctx, metrics.L("category", category))

	if c.writeCount.Add(1)%int64(c.cfg.MaintenanceEvery) == 0 {
		if err := c.Maintain(ctx); err != nil {
			c.logger.Warn("periodic maintenance failed", clog.Error(err))
		}
	}
	return nil
}

// Invalidate 删除单键或整个类别
func (c *coordinator) Invalidate(ctx context.Context, category string, params map[string]any) error {
	if params != nil {
		key, err := Fingerprint(category, params)
		if err != nil {
			return err
		}
		c.l1.delete(key)
		return c.l2.delete(ctx, key)
	}

	deleted, err := c.l2.deleteCategory(ctx, category)
	if err != nil {
		return err
	}
	// L1 没有类别索引，只能整体清空
	c.l1.flush()

	c.logger.Info("category invalidated",
		clog.String("category", category),
		clog.Int64("rows_deleted", deleted))
	return nil
}

// Maintain 过期清理 + 容量驱逐
func (c *coordinator) Maintain(ctx context.Context) error {
	now := time.Now()

	swept, err := c.l2.sweepExpired(ctx, now)
	if err != nil {
		return xerrors.Wrap(err, "cache: expiry sweep failed")
	}

	var evicted int64
	total, err := c.l2.totalSize(ctx)
	if err != nil {
		return xerrors.Wrap(err, "cache: failed to compute total size")
	}
	if total > c.cfg.CapacityBytes {
		target := int64(float64(c.cfg.CapacityBytes) * c.cfg.LowWater)
		evicted, err = c.l2.evictLRU(ctx, target)
		if err != nil {
			return xerrors.Wrap(err, "cache: lru eviction failed")
		}
	}

	if swept+evicted > 0 {
		if err := c.l2.bump(ctx, "total_evictions", swept+evicted); err != nil {
			c.logger.Warn("failed to bump eviction counter", clog.Error(err))
		}
		c.evictions.Add(ctx, float64(swept+evicted))
	}
	if err := c.l2.markCleanup(ctx, now); err != nil {
		c.logger.Warn("failed to mark cleanup time", clog.Error(err))
	}

	c.logger.Debug("maintenance completed",
		clog.Int64("expired_swept", swept),
		clog.Int64("lru_evicted", evicted))
	return nil
}

// Stats 返回统计快照
func (c *coordinator) Stats(ctx context.Context) (*Stats, error) {
	entries, size, avgHits, maxHits, err := c.l2.entryStats(ctx)
	if err != nil {
		return nil, xerrors.Wrap(err, "cache: failed to aggregate entry stats")
	}

	m, err := c.l2.meta(ctx)
	if err != nil {
		return nil, xerrors.Wrap(err, "cache: failed to read metadata")
	}

	var hitRate float64
	if lookups := m.TotalHits + m.TotalMisses; lookups > 0 {
		hitRate = float64(m.TotalHits) / float64(lookups) * 100
	}

	return &Stats{
		Entries:        entries,
		TotalSizeBytes: size,
		AverageHits:    avgHits,
		MaxHits:        maxHits,
		HitRate:        hitRate,
		TotalHits:      m.TotalHits,
		TotalMisses:    m.TotalMisses,
		TotalWrites:    m.TotalWrites,
		TotalEvictions: m.TotalEvictions,
		LastCleanupAt:  m.LastCleanupAt,
	}, nil
}

// Close 关闭组件，数据库连接由连接器管理，这里不关闭
func (c *coordinator) Close() error {
	c.l1.close()
	return nil
}

func (c *coordinator) recordHit(ctx context.Context, tier, key string) {
	c.hits.Inc(ctx, metrics.L("tier", tier))
	if err := c.l2.bump(ctx, "total_hits", 1); err != nil {
		c.logger.Debug("failed to bump hit counter", clog.String("key", key), clog.Error(err))
	}
}

func (c *coordinator) recordMiss(ctx context.Context, key string) {
	c.misses.Inc(ctx)
	if err := c.l2.bump(ctx, "total_misses", 1); err != nil {
		c.logger.Debug("failed to bump miss counter", clog.String("key", key), clog.Error(err))
	}
}
