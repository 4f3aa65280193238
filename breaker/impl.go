package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/tdikelt/flutter-mcp-2/clog"
	"github.com/tdikelt/flutter-mcp-2/xerrors"
)

// circuitBreaker 熔断器实现（非导出）
type circuitBreaker struct {
	cfg      *Config
	logger   clog.Logger
	fallback FallbackFunc

	// 服务级熔断器管理
	services sync.Map // map[string]*serviceBreaker
}

// serviceBreaker 单个依赖服务的熔断器与累计状态。
// gobreaker 的计数器在状态切换时清零，这里另行累计请求与成功数，
// 并记录最近失败时间与下次试探时间，供状态查询使用。
type serviceBreaker struct {
	name string
	gb   *gobreaker.CircuitBreaker[any]

	mu                  sync.Mutex
	consecutiveFailures int64
	successes           int64
	requests            int64
	lastFailureAt       time.Time
	nextAttemptAt       time.Time
}

func newBreaker(cfg *Config, logger clog.Logger, fallback FallbackFunc) Breaker {
	return &circuitBreaker{
		cfg:      cfg,
		logger:   logger,
		fallback: fallback,
	}
}

// Execute 执行受熔断保护的函数
func (cb *circuitBreaker) Execute(ctx context.Context, service string, fn func() (any, error)) (any, error) {
	if service == "" {
		return nil, ErrServiceEmpty
	}

	sb := cb.getOrCreate(service)

	sb.mu.Lock()
	sb.requests++
	sb.mu.Unlock()

	result, err := sb.gb.Execute(func() (any, error) {
		v, ferr := fn()
		sb.record(ferr)
		return v, ferr
	})

	if err != nil && (xerrors.Is(err, gobreaker.ErrOpenState) || xerrors.Is(err, gobreaker.ErrTooManyRequests)) {
		cb.logger.Info("circuit breaker open, request rejected",
			clog.String("service", service))

		if cb.fallback != nil {
			return cb.fallback(ctx, service, ErrOpenState)
		}
		return nil, ErrOpenState
	}

	return result, err
}

// State 获取指定服务的熔断器状态
func (cb *circuitBreaker) State(service string) State {
	val, ok := cb.services.Load(service)
	if !ok {
		return StateClosed
	}
	return fromGobreakerState(val.(*serviceBreaker).gb.State())
}

// Status 获取指定服务的状态快照
func (cb *circuitBreaker) Status(service string) *Status {
	val, ok := cb.services.Load(service)
	if !ok {
		return &Status{Service: service, State: StateClosed.String()}
	}
	return val.(*serviceBreaker).snapshot()
}

// StatusAll 获取所有已创建服务的状态快照
func (cb *circuitBreaker) StatusAll() map[string]*Status {
	all := make(map[string]*Status)
	cb.services.Range(func(key, val any) bool {
		all[key.(string)] = val.(*serviceBreaker).snapshot()
		return true
	})
	return all
}

// Reset 恢复为闭合状态并清零计数器。
// 通过丢弃旧实例实现，下次调用时惰性重建。
func (cb *circuitBreaker) Reset(service string) {
	cb.services.Delete(service)
	cb.logger.Info("circuit breaker reset", clog.String("service", service))
}

// getOrCreate 获取或创建指定服务的熔断器
func (cb *circuitBreaker) getOrCreate(service string) *serviceBreaker {
	if val, ok := cb.services.Load(service); ok {
		return val.(*serviceBreaker)
	}

	sb := &serviceBreaker{name: service}

	settings := gobreaker.Settings{
		Name: service,
		// 半开状态只放行一次试探调用
		MaxRequests: 1,
		Timeout:     cb.cfg.ResetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cb.cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			cb.onStateChange(sb, from, to)
		},
	}
	sb.gb = gobreaker.NewCircuitBreaker[any](settings)

	// 可能有并发创建，使用 LoadOrStore
	actual, _ := cb.services.LoadOrStore(service, sb)
	return actual.(*serviceBreaker)
}

// onStateChange 状态变更回调
func (cb *circuitBreaker) onStateChange(sb *serviceBreaker, from, to gobreaker.State) {
	now := time.Now()

	sb.mu.Lock()
	switch to {
	case gobreaker.StateOpen:
		sb.nextAttemptAt = now.Add(cb.cfg.ResetTimeout)
	case gobreaker.StateClosed:
		sb.consecutiveFailures = 0
		sb.nextAttemptAt = time.Time{}
	}
	sb.mu.Unlock()

	cb.logger.Info("circuit breaker state changed",
		clog.String("service", sb.name),
		clog.String("from", fromGobreakerState(from).String()),
		clog.String("to", fromGobreakerState(to).String()))
}

// record 记录一次实际执行的结果
func (sb *serviceBreaker) record(err error) {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	if err == nil {
		sb.successes++
		sb.consecutiveFailures = 0
		return
	}
	sb.consecutiveFailures++
	sb.lastFailureAt = time.Now()
}

// snapshot 生成状态快照
//
// 注意：gb.State() 必须在持有 sb.mu 之前读取。
// OnStateChange 在 gobreaker 内部锁内回调并获取 sb.mu，
// 反向的加锁顺序会造成死锁。
func (sb *serviceBreaker) snapshot() *Status {
	state := fromGobreakerState(sb.gb.State())

	sb.mu.Lock()
	defer sb.mu.Unlock()

	var rate float64
	if sb.requests > 0 {
		rate = float64(sb.successes) / float64(sb.requests) * 100
	}

	return &Status{
		Service:         sb.name,
		State:           state.String(),
		Failures:        sb.consecutiveFailures,
		SuccessCount:    sb.successes,
		RequestCount:    sb.requests,
		SuccessRate:     rate,
		LastFailureTime: sb.lastFailureAt,
		NextAttemptTime: sb.nextAttemptAt,
	}
}

// fromGobreakerState 将 gobreaker.State 转换为本包状态
func fromGobreakerState(s gobreaker.State) State {
	switch s {
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}
