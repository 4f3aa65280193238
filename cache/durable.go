package cache

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tdikelt/flutter-mcp-2/xerrors"
)

// evictBatchSize LRU 驱逐时单批删除的行数
const evictBatchSize = 50

// entryRow L2 缓存条目，key 为唯一指纹
type entryRow struct {
	Key            string    `gorm:"primaryKey;column:key"`
	Value          []byte    `gorm:"column:value"`
	Category       string    `gorm:"column:category;index"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	ExpiresAt      time.Time `gorm:"column:expires_at;index"`
	HitCount       int64     `gorm:"column:hit_count"`
	LastAccessedAt time.Time `gorm:"column:last_accessed_at;index"`
	SizeBytes      int64     `gorm:"column:size_bytes"`
}

func (entryRow) TableName() string { return "cache_entries" }

// metaRow 单例元数据行，聚合计数器
type metaRow struct {
	ID             uint      `gorm:"primaryKey"`
	TotalHits      int64     `gorm:"column:total_hits"`
	TotalMisses    int64     `gorm:"column:total_misses"`
	TotalWrites    int64     `gorm:"column:total_writes"`
	TotalEvictions int64     `gorm:"column:total_evictions"`
	LastCleanupAt  time.Time `gorm:"column:last_cleanup_at"`
}

func (metaRow) TableName() string { return "cache_metadata" }

// durableStore L2 持久化缓存，独占拥有 entryRow 的生命周期
type durableStore struct {
	db *gorm.DB
}

func newDurable(db *gorm.DB) (*durableStore, error) {
	if err := db.AutoMigrate(&entryRow{}, &metaRow{}); err != nil {
		return nil, xerrors.Wrap(err, "failed to migrate cache tables")
	}

	// 确保单例元数据行存在
	meta := metaRow{ID: 1}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&meta).Error; err != nil {
		return nil, xerrors.Wrap(err, "failed to initialize cache metadata")
	}

	return &durableStore{db: db}, nil
}

// get 按键读取条目，不存在时返回 (nil, nil)
func (s *durableStore) get(ctx context.Context, key string) (*entryRow, error) {
	var row entryRow
	err := s.db.WithContext(ctx).First(&row, "key = ?", key).Error
	if xerrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// touch 命中记账：hit_count 自增、刷新 last_accessed_at
func (s *durableStore) touch(ctx context.Context, key string, now time.Time) error {
	return s.db.WithContext(ctx).Model(&entryRow{}).Where("key = ?", key).
		UpdateColumns(map[string]any{
			"hit_count":        gorm.Expr("hit_count + 1"),
			"last_accessed_at": now,
		}).Error
}

// put 写入或替换条目
func (s *durableStore) put(ctx context.Context, row *entryRow) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(row).Error
}

// delete 删除单个键，键不存在不报错
func (s *durableStore) delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Delete(&entryRow{}, "key = ?", key).Error
}

// deleteCategory 删除类别下的全部行，返回删除行数
func (s *durableStore) deleteCategory(ctx context.Context, category string) (int64, error) {
	res := s.db.WithContext(ctx).Delete(&entryRow{}, "category = ?", category)
	return res.RowsAffected, res.Error
}

// sweepExpired 删除所有已过期的行，返回删除行数
func (s *durableStore) sweepExpired(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Delete(&entryRow{}, "expires_at < ?", now)
	return res.RowsAffected, res.Error
}

// totalSize 返回所有条目的字节总大小
func (s *durableStore) totalSize(ctx context.Context) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&entryRow{}).
		Select("COALESCE(SUM(size_bytes), 0)").Scan(&total).Error
	return total, err
}

// evictLRU 按最久未访问顺序批量驱逐，直至总大小不超过 target，
// 返回驱逐的行数
func (s *durableStore) evictLRU(ctx context.Context, target int64) (int64, error) {
	var evicted int64

	for {
		total, err := s.totalSize(ctx)
		if err != nil {
			return evicted, err
		}
		if total <= target {
			return evicted, nil
		}
		excess := total - target

		var rows []entryRow
		err = s.db.WithContext(ctx).Model(&entryRow{}).
			Select("key", "size_bytes").
			Order("last_accessed_at ASC").
			Limit(evictBatchSize).
			Find(&rows).Error
		if err != nil {
			return evicted, err
		}
		if len(rows) == 0 {
			return evicted, nil
		}

		// 批大小只是上限：只收集刚好覆盖超出部分的最久未访问行，
		// 更新的行保留
		keys := make([]string, 0, len(rows))
		var freed int64
		for _, row := range rows {
			keys = append(keys, row.Key)
			freed += row.SizeBytes
			if freed >= excess {
				break
			}
		}

		res := s.db.WithContext(ctx).Delete(&entryRow{}, "key IN ?", keys)
		if res.Error != nil {
			return evicted, res.Error
		}
		evicted += res.RowsAffected
	}
}

// bump 元数据计数器自增
func (s *durableStore) bump(ctx context.Context, column string, n int64) error {
	return s.db.WithContext(ctx).Model(&metaRow{}).Where("id = ?", 1).
		UpdateColumn(column, gorm.Expr(column+" + ?", n)).Error
}

// markCleanup 更新上次清理时间
func (s *durableStore) markCleanup(ctx context.Context, now time.Time) error {
	return s.db.WithContext(ctx).Model(&metaRow{}).Where("id = ?", 1).
		UpdateColumn("last_cleanup_at", now).Error
}

// meta 读取单例元数据行
func (s *durableStore) meta(ctx context.Context) (*metaRow, error) {
	var m metaRow
	if err := s.db.WithContext(ctx).First(&m, "id = ?", 1).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// entryStats 聚合条目统计：行数、总大小、平均/最大命中数
func (s *durableStore) entryStats(ctx context.Context) (entries int64, size int64, avgHits float64, maxHits int64, err error) {
	type agg struct {
		Entries int64
		Size    int64
		AvgHits float64
		MaxHits int64
	}
	var a agg
	err = s.db.WithContext(ctx).Model(&entryRow{}).
		Select("COUNT(*) AS entries, COALESCE(SUM(size_bytes), 0) AS size, COALESCE(AVG(hit_count), 0) AS avg_hits, COALESCE(MAX(hit_count), 0) AS max_hits").
		Scan(&a).Error
	return a.Entries, a.Size, a.AvgHits, a.MaxHits, err
}
