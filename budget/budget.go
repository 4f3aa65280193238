// Package budget 提供令牌预算截断组件。
//
// 工具响应在返回给调用方之前必须满足令牌预算上限。截断器提供两类
// 操作：对纯文本按策略（头部/尾部/中间）截断，对结构化值按字段
// 优先级分配预算后递归截断。
//
// 快速开始：
//
//	tr, _ := budget.New(&budget.Config{
//	    PriorityFields:      []string{"error", "summary"},
//	    DeprioritizedFields: []string{"examples", "see_also"},
//	})
//
//	out := tr.TruncateValue(budget.FromAny(payload), 4000)
//
// 保证：Cost(TruncateValue(v, L)) <= L 恒成立。预算不足以容纳任何
// 内容时输出退化为空结构而不是返回错误，截断操作永不失败。
package budget

import (
	"github.com/tdikelt/flutter-mcp-2/clog"
)

// Policy 文本截断策略
type Policy string

const (
	// PolicyHead 保留头部，结尾追加省略号
	PolicyHead Policy = "head"

	// PolicyTail 保留尾部，开头追加省略号
	PolicyTail Policy = "tail"

	// PolicyMiddle 保留首尾两端，中间插入省略标记
	PolicyMiddle Policy = "middle"
)

// Truncator 令牌预算截断器核心接口
type Truncator interface {
	// Cost 估算文本的令牌成本
	Cost(text string) int

	// CostValue 估算结构化值的令牌成本
	CostValue(v *Value) int

	// TruncateText 将文本截断到预算之内，limit <= 0 时返回空串
	TruncateText(text string, limit int, policy Policy) string

	// TruncateValue 将结构化值截断到预算之内。
	// 返回新的 Value，入参不会被修改；成本已在预算内时原样返回。
	TruncateValue(v *Value, limit int) *Value
}

// Config 截断器配置
type Config struct {
	// DefaultLimit 未显式指定时的默认令牌预算（默认 4000）
	DefaultLimit int `json:"default_limit" yaml:"default_limit"`

	// AvgTokenRatio 每个单词的平均令牌数，用于启发式估算（默认 1.3）
	AvgTokenRatio float64 `json:"avg_token_ratio" yaml:"avg_token_ratio"`

	// MaxSequenceItems 序列保留的最大元素数，超出部分替换为
	// "+N more" 标记（默认 10）
	MaxSequenceItems int `json:"max_sequence_items" yaml:"max_sequence_items"`

	// MaxDepth 结构化截断的最大递归深度，超深的子树折叠为
	// 截断后的文本标量（默认 8）
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// PriorityShare 单个优先字段最多占用剩余预算的比例（默认 0.3）
	PriorityShare float64 `json:"priority_share" yaml:"priority_share"`

	// SpareThreshold 低优字段的准入门槛：原始预算剩余比例不低于
	// 此值时才纳入低优字段（默认 0.9）
	SpareThreshold float64 `json:"spare_threshold" yaml:"spare_threshold"`

	// ShrinkStep 文本迭代收缩的步长（字符数，默认 20）
	ShrinkStep int `json:"shrink_step" yaml:"shrink_step"`

	// PriorityFields 优先字段名列表，优先分配预算
	PriorityFields []string `json:"priority_fields" yaml:"priority_fields"`

	// DeprioritizedFields 低优字段名列表，仅在预算充裕时保留
	DeprioritizedFields []string `json:"deprioritized_fields" yaml:"deprioritized_fields"`
}

// validate 设置默认值（内部使用）
func (c *Config) validate() {
	if c.DefaultLimit <= 0 {
		c.DefaultLimit = 4000
	}
	if c.AvgTokenRatio <= 0 {
		c.AvgTokenRatio = 1.3
	}
	if c.MaxSequenceItems <= 0 {
		c.MaxSequenceItems = 10
	}
	if c.MaxDepth <= 0 {
		c.MaxDepth = 8
	}
	if c.PriorityShare <= 0 || c.PriorityShare > 1 {
		c.PriorityShare = 0.3
	}
	if c.SpareThreshold <= 0 || c.SpareThreshold > 1 {
		c.SpareThreshold = 0.9
	}
	if c.ShrinkStep <= 0 {
		c.ShrinkStep = 20
	}
}

// New 创建截断器实例
func New(cfg *Config, opts ...Option) (Truncator, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.validate()

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	if opt.logger == nil {
		opt.logger = clog.Discard()
	}

	priority := make(map[string]int, len(cfg.PriorityFields))
	for i, name := range cfg.PriorityFields {
		priority[name] = i
	}
	deprioritized := make(map[string]struct{}, len(cfg.DeprioritizedFields))
	for _, name := range cfg.DeprioritizedFields {
		deprioritized[name] = struct{}{}
	}

	opt.logger.Debug("truncator created",
		clog.Int("default_limit", cfg.DefaultLimit),
		clog.Int("max_depth", cfg.MaxDepth),
		clog.Int("priority_fields", len(cfg.PriorityFields)))

	return &truncator{
		cfg:           cfg,
		logger:        opt.logger,
		priority:      priority,
		deprioritized: deprioritized,
	}, nil
}
