package budget

import (
	"math"
	"strings"

	"github.com/tdikelt/flutter-mcp-2/clog"
)

const (
	ellipsis      = "..."
	elisionMarker = " [...] "
)

// truncator Truncator 接口实现
type truncator struct {
	cfg    *Config
	logger clog.Logger

	// priority 优先字段名 -> 配置顺序
	priority map[string]int

	// deprioritized 低优字段名集合
	deprioritized map[string]struct{}
}

// Cost 启发式令牌估算：ceil(单词数 × 平均令牌比)
func (t *truncator) Cost(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	return int(math.Ceil(float64(words) * t.cfg.AvgTokenRatio))
}

// TruncateText 按策略截断文本。
// 先按成本比例估算保留长度，再小步收缩直到满足预算，
// 防止估算偏差导致结果超限。
func (t *truncator) TruncateText(text string, limit int, policy Policy) string {
	if limit <= 0 {
		return ""
	}
	cost := t.Cost(text)
	if cost <= limit {
		return text
	}

	runes := []rune(text)
	keep := int(float64(len(runes)) * float64(limit) / float64(cost))
	for keep > 0 {
		result := t.cut(runes, keep, policy)
		if t.Cost(result) <= limit {
			return result
		}
		keep -= t.cfg.ShrinkStep
	}
	return ""
}

// cut 按策略保留 keep 个字符
func (t *truncator) cut(runes []rune, keep int, policy Policy) string {
	if keep >= len(runes) {
		return string(runes)
	}
	switch policy {
	case PolicyTail:
		return ellipsis + string(runes[len(runes)-keep:])
	case PolicyMiddle:
		head := keep / 2
		tail := keep - head
		return string(runes[:head]) + elisionMarker + string(runes[len(runes)-tail:])
	default:
		return string(runes[:keep]) + ellipsis
	}
}
