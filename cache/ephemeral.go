package cache

import (
	"time"

	"github.com/maypok86/otter/v2"

	"github.com/tdikelt/flutter-mcp-2/xerrors"
)

// ephemeralDefaultTTL 未显式指定 TTL 时的兜底过期时间
const ephemeralDefaultTTL = 24 * time.Hour

// ephemeralStore L1 进程内缓存，基于 otter
//
// 存储的是序列化后的字节副本而非对象引用，与 L2 互相独立，
// 两层瞬时不一致是允许的。
type ephemeralStore struct {
	cache *otter.Cache[string, []byte]
}

func newEphemeral(capacity int) (*ephemeralStore, error) {
	cache, err := otter.New(&otter.Options[string, []byte]{
		MaximumSize: capacity,
		// 写入过期策略：过期时间从写入开始计算，读取不重置 TTL。
		// 具体 TTL 在 set 时通过 SetExpiresAfter 覆盖。
		ExpiryCalculator: otter.ExpiryWriting[string, []byte](ephemeralDefaultTTL),
	})
	if err != nil {
		return nil, xerrors.Wrap(err, "failed to build otter cache")
	}

	return &ephemeralStore{cache: cache}, nil
}

func (s *ephemeralStore) get(key string) ([]byte, bool) {
	return s.cache.GetIfPresent(key)
}

func (s *ephemeralStore) set(key string, value []byte, ttl time.Duration) {
	s.cache.Set(key, value)
	if ttl > 0 {
		s.cache.SetExpiresAfter(key, ttl)
	}
}

func (s *ephemeralStore) delete(key string) {
	s.cache.Invalidate(key)
}

// flush 清空整个 L1。L1 没有类别索引，按类别失效时只能整体清空。
func (s *ephemeralStore) flush() {
	s.cache.InvalidateAll()
}

func (s *ephemeralStore) close() {
	s.cache.StopAllGoroutines()
}
