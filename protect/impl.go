package protect

import (
	"context"

	"github.com/tdikelt/flutter-mcp-2/breaker"
	"github.com/tdikelt/flutter-mcp-2/clog"
	"github.com/tdikelt/flutter-mcp-2/metrics"
	"github.com/tdikelt/flutter-mcp-2/ratelimit"
	"github.com/tdikelt/flutter-mcp-2/xerrors"
)

// executor Executor 接口实现
type executor struct {
	cfg    *Config
	brk    breaker.Breaker
	logger clog.Logger
	errlog *errorLog

	// limiter 服务级限流器，未启用时为 nil
	limiter ratelimit.Limiter

	retries   metrics.Counter
	timeouts  metrics.Counter
	fallbacks metrics.Counter
}

func newExecutor(cfg *Config, brk breaker.Breaker, opt *options) (*executor, error) {
	e := &executor{
		cfg:    cfg,
		brk:    brk,
		logger: opt.logger,
		errlog: newErrorLog(cfg.ErrorLogSize),
	}

	var err error
	if e.retries, err = opt.meter.Counter("protect_retries_total", "重试总次数"); err != nil {
		return nil, xerrors.Wrap(err, "protect: failed to create retries counter")
	}
	if e.timeouts, err = opt.meter.Counter("protect_timeouts_total", "超时总次数"); err != nil {
		return nil, xerrors.Wrap(err, "protect: failed to create timeouts counter")
	}
	if e.fallbacks, err = opt.meter.Counter("protect_fallbacks_total", "降级总次数"); err != nil {
		return nil, xerrors.Wrap(err, "protect: failed to create fallbacks counter")
	}

	if cfg.RateLimit != nil && cfg.RateLimit.Enabled {
		e.limiter, err = ratelimit.New(&ratelimit.Config{},
			ratelimit.WithLogger(opt.rawLogger), ratelimit.WithMeter(opt.meter))
		if err != nil {
			return nil, xerrors.Wrap(err, "protect: failed to create rate limiter")
		}
	}
	return e, nil
}

func (e *executor) Run(ctx context.Context, service string, op Operation, opts ...CallOption) (any, error) {
	if service == "" {
		return nil, breaker.ErrServiceEmpty
	}
	if op == nil {
		return nil, xerrors.New("protect: operation is nil")
	}

	call := &callOptions{timeout: e.cfg.DefaultTimeout, retry: true}
	for _, o := range opts {
		o(call)
	}

	if err := e.checkRateLimit(ctx, service); err != nil {
		e.errlog.record(service, err)
		return nil, err
	}

	chain := func(ctx context.Context) (any, error) {
		return e.brk.Execute(ctx, service, func() (any, error) {
			if call.retry {
				return e.runWithRetry(ctx, service, op, call.timeout)
			}
			return runWithTimeout(ctx, call.timeout, op)
		})
	}
	// 整体截止时间包住整条链，重试等待和每次尝试共享同一预算
	result, err := runWithTimeout(ctx, call.overall, chain)
	if err == nil {
		return result, nil
	}

	kind := kindOf(err)
	e.errlog.record(service, err)
	if kind == "timeout" {
		e.timeouts.Inc(ctx, metrics.L("service", service))
	}
	e.logger.Warn("protected operation failed",
		clog.String("service", service),
		clog.String("kind", kind),
		clog.Error(err))

	// 降级结果替代失败结果；熔断计数已在 Execute 内部完成，
	// 降级本身不计入熔断事件
	if call.fallback != nil {
		e.fallbacks.Inc(ctx, metrics.L("service", service))
		e.logger.Info("invoking fallback", clog.String("service", service))
		return call.fallback(ctx)
	}
	return nil, err
}

// checkRateLimit 限流检查，未启用时直接放行
func (e *executor) checkRateLimit(ctx context.Context, service string) error {
	if e.limiter == nil {
		return nil
	}
	allowed, err := e.limiter.Allow(ctx, service,
		ratelimit.Limit{Rate: e.cfg.RateLimit.RPS, Burst: e.cfg.RateLimit.Burst})
	if err != nil {
		return xerrors.Wrap(err, "protect: rate limit check failed")
	}
	if !allowed {
		return ErrRateLimited
	}
	return nil
}

func (e *executor) Status(service string) *breaker.Status {
	return e.brk.Status(service)
}

func (e *executor) StatusAll() *GlobalStatus {
	return &GlobalStatus{
		Services: e.brk.StatusAll(),
		Errors:   e.errlog.summary(),
	}
}

func (e *executor) Reset(service string) {
	e.brk.Reset(service)
}

func (e *executor) Close() error {
	if e.limiter != nil {
		return e.limiter.Close()
	}
	return nil
}
