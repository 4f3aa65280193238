package protect

import (
	"context"
	"sync"
	"time"

	"github.com/tdikelt/flutter-mcp-2/breaker"
	"github.com/tdikelt/flutter-mcp-2/xerrors"
)

// ErrorEntry 单条错误记录
type ErrorEntry struct {
	Time    time.Time `json:"time"`
	Service string    `json:"service"`
	Kind    string    `json:"kind"`
	Message string    `json:"message"`
}

// ErrorSummary 错误日志汇总（只读）
type ErrorSummary struct {
	// Recent 最近的错误记录，按时间顺序排列，最多保留配置的容量
	Recent []ErrorEntry `json:"recent"`

	// Counts 按错误类别累计的计数，不随环形缓冲淘汰而减少
	Counts map[string]int64 `json:"counts"`

	// Total 累计错误总数
	Total int64 `json:"total"`
}

// errorLog 有界错误日志，环形缓冲保留最近 N 条
type errorLog struct {
	mu      sync.Mutex
	entries []ErrorEntry
	next    int
	filled  bool
	counts  map[string]int64
	total   int64
}

func newErrorLog(size int) *errorLog {
	return &errorLog{
		entries: make([]ErrorEntry, size),
		counts:  make(map[string]int64),
	}
}

// kindOf 错误分类，用于计数与排障
func kindOf(err error) string {
	var te *xerrors.TimeoutError
	var ne *xerrors.NetworkError
	var ve *xerrors.ValidationError
	switch {
	case xerrors.Is(err, breaker.ErrOpenState):
		return "breaker_open"
	case xerrors.Is(err, ErrRateLimited):
		return "rate_limited"
	case xerrors.As(err, &te), xerrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case xerrors.As(err, &ne):
		return "network"
	case xerrors.As(err, &ve):
		return "validation"
	case xerrors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "other"
	}
}

func (l *errorLog) record(service string, err error) {
	entry := ErrorEntry{
		Time:    time.Now(),
		Service: service,
		Kind:    kindOf(err),
		Message: err.Error(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries[l.next] = entry
	l.next++
	if l.next == len(l.entries) {
		l.next = 0
		l.filled = true
	}
	l.counts[entry.Kind]++
	l.total++
}

// summary 导出按时间顺序的快照
func (l *errorLog) summary() *ErrorSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	var recent []ErrorEntry
	if l.filled {
		recent = make([]ErrorEntry, 0, len(l.entries))
		recent = append(recent, l.entries[l.next:]...)
		recent = append(recent, l.entries[:l.next]...)
	} else {
		recent = make([]ErrorEntry, l.next)
		copy(recent, l.entries[:l.next])
	}

	counts := make(map[string]int64, len(l.counts))
	for k, v := range l.counts {
		counts[k] = v
	}
	return &ErrorSummary{Recent: recent, Counts: counts, Total: l.total}
}
