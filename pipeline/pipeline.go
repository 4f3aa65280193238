// Package pipeline 提供带缓存保护的执行管道，是工具层调用的统一入口。
//
// 一次 Run 调用串联三个组件：先查两级缓存，未命中时经受保护执行器
// （熔断 + 重试 + 超时 + 降级）调用生产方，结果按令牌预算截断后回写
// 缓存。命中路径同样做预算复查，保证返回值永不超限。
//
// 快速开始：
//
//	conn, _ := connector.NewSQLite(&connector.SQLiteConfig{Path: "cache.db"})
//	_ = conn.Connect(ctx)
//	p, _ := pipeline.New(conn, &pipeline.Config{}, pipeline.WithLogger(logger))
//	defer p.Close()
//
//	result, err := p.Run(ctx, "pubPackage",
//	    map[string]any{"packageName": "http"},
//	    func(ctx context.Context) (any, error) {
//	        return fetchPackageInfo(ctx, "http")
//	    },
//	    pipeline.WithService("pub.dev"),
//	    pipeline.WithTimeout(5*time.Second))
//
// 管道实例不依赖任何全局单例，测试可以各自创建隔离实例。
package pipeline

import (
	"context"

	"github.com/tdikelt/flutter-mcp-2/breaker"
	"github.com/tdikelt/flutter-mcp-2/budget"
	"github.com/tdikelt/flutter-mcp-2/cache"
	"github.com/tdikelt/flutter-mcp-2/clog"
	"github.com/tdikelt/flutter-mcp-2/connector"
	"github.com/tdikelt/flutter-mcp-2/protect"
	"github.com/tdikelt/flutter-mcp-2/xerrors"
)

// Producer 上游生产方操作，未命中缓存时被调用
type Producer func(ctx context.Context) (any, error)

// Pipeline 执行管道核心接口
type Pipeline interface {
	// Run 执行一次受缓存保护的调用。
	// category 选择缓存类别与 TTL；params 参与缓存键推导，参数顺序
	// 不影响键；produce 仅在缓存未命中时经保护链调用。
	Run(ctx context.Context, category string, params map[string]any, produce Producer, opts ...CallOption) (any, error)

	// Invalidate 删除缓存，语义与 cache.Cache.Invalidate 一致
	Invalidate(ctx context.Context, category string, params map[string]any) error

	// Status 返回只读状态快照：缓存统计 + 各服务熔断状态 + 错误日志
	Status(ctx context.Context) (*Status, error)

	// Close 关闭管道（不关闭借用的数据库连接）
	Close() error
}

// Status 管道状态快照，供健康检查消费
type Status struct {
	Cache    *cache.Stats               `json:"cache"`
	Services map[string]*breaker.Status `json:"services"`
	Errors   *protect.ErrorSummary      `json:"errors"`
}

// Config 管道聚合配置
type Config struct {
	// Cache 两级缓存配置，nil 时使用默认值
	Cache *cache.Config `json:"cache" yaml:"cache"`

	// Protect 受保护执行器配置，nil 时使用默认值
	Protect *protect.Config `json:"protect" yaml:"protect"`

	// Budget 令牌预算截断配置，nil 时使用默认值
	Budget *budget.Config `json:"budget" yaml:"budget"`

	// DefaultBudget 结果的默认令牌预算，0 时取 Budget.DefaultLimit，
	// 负值表示默认不截断
	DefaultBudget int `json:"default_budget" yaml:"default_budget"`
}

// validate 设置默认值（内部使用）
func (c *Config) validate() {
	if c.Cache == nil {
		c.Cache = &cache.Config{}
	}
	if c.Protect == nil {
		c.Protect = &protect.Config{}
	}
	if c.Budget == nil {
		c.Budget = &budget.Config{}
	}
}

// New 创建管道实例
//
// conn 为已连接的 SQLite 连接器（借用模型，生命周期由调用方管理）。
func New(conn connector.SQLiteConnector, cfg *Config, opts ...Option) (Pipeline, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	cfg.validate()

	opt := &options{}
	for _, o := range opts {
		o(opt)
	}
	opt.applyDefaults()

	c, err := cache.New(conn, cfg.Cache,
		cache.WithLogger(opt.rawLogger), cache.WithMeter(opt.meter))
	if err != nil {
		return nil, xerrors.Wrap(err, "pipeline: failed to create cache")
	}

	exec, err := protect.New(cfg.Protect,
		protect.WithLogger(opt.rawLogger), protect.WithMeter(opt.meter))
	if err != nil {
		_ = c.Close()
		return nil, xerrors.Wrap(err, "pipeline: failed to create executor")
	}

	tr, err := budget.New(cfg.Budget, budget.WithLogger(opt.rawLogger))
	if err != nil {
		_ = exec.Close()
		_ = c.Close()
		return nil, xerrors.Wrap(err, "pipeline: failed to create truncator")
	}

	// budget.New 已为 cfg.Budget 填入默认值
	defaultBudget := cfg.DefaultBudget
	if defaultBudget == 0 {
		defaultBudget = cfg.Budget.DefaultLimit
	}

	opt.logger.Info("pipeline created",
		clog.Int("default_budget", defaultBudget))

	return &pipelineImpl{
		cfg:           cfg,
		cache:         c,
		exec:          exec,
		truncator:     tr,
		logger:        opt.logger,
		defaultBudget: defaultBudget,
	}, nil
}
