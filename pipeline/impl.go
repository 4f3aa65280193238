package pipeline

import (
	"context"

	"github.com/tdikelt/flutter-mcp-2/budget"
	"github.com/tdikelt/flutter-mcp-2/cache"
	"github.com/tdikelt/flutter-mcp-2/clog"
	"github.com/tdikelt/flutter-mcp-2/protect"
	"github.com/tdikelt/flutter-mcp-2/xerrors"
)

// pipelineImpl Pipeline 接口实现
type pipelineImpl struct {
	cfg           *Config
	cache         cache.Cache
	exec          protect.Executor
	truncator     budget.Truncator
	logger        clog.Logger
	defaultBudget int
}

func (p *pipelineImpl) Run(ctx context.Context, category string, params map[string]any, produce Producer, opts ...CallOption) (any, error) {
	if category == "" {
		return nil, xerrors.NewValidationError("category", "must not be empty")
	}
	if produce == nil {
		return nil, xerrors.NewValidationError("produce", "must not be nil")
	}

	call := &callOptions{retry: true, useCache: true, budget: p.defaultBudget}
	for _, o := range opts {
		o(call)
	}

	if call.useCache {
		var cached any
		hit, err := p.cache.Get(ctx, category, params, &cached)
		if err != nil {
			// 缓存故障降级为未命中，不阻断调用
			p.logger.Warn("cache lookup failed, treating as miss",
				clog.String("category", category), clog.Error(err))
		}
		if hit {
			// 命中路径同样复查预算：预算可能比写入时更紧
			return p.shape(cached, call.budget), nil
		}
	}

	service := call.service
	if service == "" {
		service = category
	}

	var popts []protect.CallOption
	if call.timeoutSet {
		popts = append(popts, protect.WithTimeout(call.timeout))
	}
	if !call.retry {
		popts = append(popts, protect.WithoutRetry())
	}
	if call.fallback != nil {
		popts = append(popts, protect.WithFallback(call.fallback))
	}

	result, err := p.exec.Run(ctx, service, protect.Operation(produce), popts...)
	if err != nil {
		return nil, err
	}

	shaped := p.shape(result, call.budget)
	if call.useCache {
		// 序列化失败向上传播，不缓存损坏的值
		if err := p.cache.Set(ctx, category, params, shaped); err != nil {
			return nil, err
		}
	}
	return shaped, nil
}

// shape 按令牌预算截断结果，limit <= 0 表示不截断。
// 无法截断的类型原样返回。
func (p *pipelineImpl) shape(result any, limit int) any {
	if limit <= 0 || result == nil {
		return result
	}
	switch v := result.(type) {
	case string:
		return p.truncator.TruncateText(v, limit, budget.PolicyHead)
	case *budget.Value:
		return p.truncator.TruncateValue(v, limit)
	case map[string]any, []any:
		return p.truncator.TruncateValue(budget.FromAny(v), limit).ToAny()
	default:
		return v
	}
}

func (p *pipelineImpl) Invalidate(ctx context.Context, category string, params map[string]any) error {
	return p.cache.Invalidate(ctx, category, params)
}

func (p *pipelineImpl) Status(ctx context.Context) (*Status, error) {
	stats, err := p.cache.Stats(ctx)
	if err != nil {
		return nil, xerrors.Wrap(err, "pipeline: failed to collect cache stats")
	}
	global := p.exec.StatusAll()
	return &Status{
		Cache:    stats,
		Services: global.Services,
		Errors:   global.Errors,
	}, nil
}

func (p *pipelineImpl) Close() error {
	return xerrors.Join(p.exec.Close(), p.cache.Close())
}
