package budget

import (
	"fmt"
	"sort"
)

// CostValue 估算结构化值的令牌成本。
// 字符串标量按文本内容计，序列与映射对子节点求和并累加字段名
// 成本，结构符号（引号、括号）不计入，空结构成本为 0。
func (t *truncator) CostValue(v *Value) int {
	if v == nil {
		return 0
	}
	switch v.Kind() {
	case KindScalar:
		if s, ok := v.scalar.(string); ok {
			return t.Cost(s)
		}
		return t.Cost(v.render())
	case KindSequence:
		total := 0
		for _, item := range v.seq {
			total += t.CostValue(item)
		}
		return total
	default:
		total := 0
		for name, f := range v.fields {
			total += t.keyCost(name) + t.CostValue(f)
		}
		return total
	}
}

// keyCost 字段名的令牌成本，至少为 1
func (t *truncator) keyCost(name string) int {
	if c := t.Cost(name); c > 0 {
		return c
	}
	return 1
}

// TruncateValue 将结构化值截断到预算之内
func (t *truncator) TruncateValue(v *Value, limit int) *Value {
	if v == nil {
		return nil
	}
	if limit < 0 {
		limit = 0
	}
	return t.truncate(v, limit, 0)
}

func (t *truncator) truncate(v *Value, limit, depth int) *Value {
	// 成本已在预算内时原样返回，同时保证幂等
	if t.CostValue(v) <= limit {
		return v
	}
	// 超深子树折叠为截断后的文本标量
	if depth >= t.cfg.MaxDepth {
		return Scalar(t.TruncateText(v.render(), limit, PolicyHead))
	}

	switch v.Kind() {
	case KindScalar:
		return t.truncateScalar(v, limit)
	case KindSequence:
		return t.truncateSequence(v, limit, depth)
	default:
		return t.truncateMapping(v, limit, depth)
	}
}

func (t *truncator) truncateScalar(v *Value, limit int) *Value {
	if s, ok := v.scalar.(string); ok {
		return Scalar(t.TruncateText(s, limit, PolicyHead))
	}
	// 数字、布尔等无法按字符截断，超预算时退化为文本形式
	return Scalar(t.TruncateText(v.render(), limit, PolicyHead))
}

func (t *truncator) truncateSequence(v *Value, limit, depth int) *Value {
	items := v.Items()
	kept := items
	dropped := 0
	if len(kept) > t.cfg.MaxSequenceItems {
		dropped = len(kept) - t.cfg.MaxSequenceItems
		kept = kept[:t.cfg.MaxSequenceItems]
	}

	remaining := limit
	out := make([]*Value, 0, len(kept))
	for i, item := range kept {
		if remaining <= 0 {
			dropped += len(kept) - i
			break
		}
		// 剩余预算在未处理元素间均分
		alloc := remaining / (len(kept) - i)
		tv := t.truncate(item, alloc, depth+1)
		cost := t.CostValue(tv)
		if cost > remaining {
			dropped++
			continue
		}
		out = append(out, tv)
		remaining -= cost
	}

	result := t.assembleSequence(out, dropped)
	// 标记本身也占预算，超限时从尾部继续丢弃元素
	for t.CostValue(result) > limit && len(out) > 0 {
		out = out[:len(out)-1]
		dropped++
		result = t.assembleSequence(out, dropped)
	}
	if t.CostValue(result) > limit {
		return Sequence()
	}
	return result
}

// assembleSequence 组装截断结果，有元素被丢弃时追加 "+N more" 标记
func (t *truncator) assembleSequence(items []*Value, dropped int) *Value {
	if dropped <= 0 {
		return Sequence(items...)
	}
	out := make([]*Value, 0, len(items)+1)
	out = append(out, items...)
	out = append(out, Scalar(fmt.Sprintf("+%d more", dropped)))
	return Sequence(out...)
}

func (t *truncator) truncateMapping(v *Value, limit, depth int) *Value {
	priority, normal, deprioritized := t.classify(v.FieldNames())

	remaining := limit
	out := make(map[string]*Value)

	include := func(name string, alloc int) {
		if alloc <= 0 {
			return
		}
		child, _ := v.Field(name)
		key := t.keyCost(name)
		if key >= remaining {
			return
		}
		tv := t.truncate(child, alloc-key, depth+1)
		cost := key + t.CostValue(tv)
		// 截断后仍放不下的字段整体跳过
		if cost > remaining {
			return
		}
		out[name] = tv
		remaining -= cost
	}

	// 优先字段先分配，单个不超过剩余预算的固定比例
	for _, name := range priority {
		include(name, int(float64(remaining)*t.cfg.PriorityShare))
	}
	// 普通字段均分剩余预算
	for i, name := range normal {
		if remaining <= 0 {
			break
		}
		include(name, remaining/(len(normal)-i))
	}
	// 低优字段仅在预算基本未动时纳入
	if float64(remaining) >= t.cfg.SpareThreshold*float64(limit) {
		for i, name := range deprioritized {
			if remaining <= 0 {
				break
			}
			include(name, remaining/(len(deprioritized)-i))
		}
	}

	result := Mapping(out)
	// 兜底：按重要性从低到高移除字段直到满足预算
	for t.CostValue(result) > limit {
		name, ok := t.leastImportant(out, priority, normal, deprioritized)
		if !ok {
			return Mapping(nil)
		}
		delete(out, name)
		result = Mapping(out)
	}
	return result
}

// classify 将字段名分为优先/普通/低优三类。
// 优先字段按配置顺序排列，其余按字典序保证确定性。
func (t *truncator) classify(names []string) (priority, normal, deprioritized []string) {
	for _, name := range names {
		if _, ok := t.priority[name]; ok {
			priority = append(priority, name)
		} else if _, ok := t.deprioritized[name]; ok {
			deprioritized = append(deprioritized, name)
		} else {
			normal = append(normal, name)
		}
	}
	sort.Slice(priority, func(i, j int) bool {
		return t.priority[priority[i]] < t.priority[priority[j]]
	})
	return priority, normal, deprioritized
}

// leastImportant 返回当前保留字段中重要性最低的一个
func (t *truncator) leastImportant(out map[string]*Value, priority, normal, deprioritized []string) (string, bool) {
	for i := len(deprioritized) - 1; i >= 0; i-- {
		if _, ok := out[deprioritized[i]]; ok {
			return deprioritized[i], true
		}
	}
	for i := len(normal) - 1; i >= 0; i-- {
		if _, ok := out[normal[i]]; ok {
			return normal[i], true
		}
	}
	for i := len(priority) - 1; i >= 0; i-- {
		if _, ok := out[priority[i]]; ok {
			return priority[i], true
		}
	}
	return "", false
}
