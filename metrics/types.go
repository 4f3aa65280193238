// Package metrics 提供统一的指标收集能力。
// 基于 OpenTelemetry 标准构建，通过 Prometheus Exporter 暴露指标。
//
// 快速开始：
//
//	meter, _ := metrics.New(&metrics.Config{
//	    Enabled:     true,
//	    ServiceName: "flutter-mcp",
//	    Port:        9090,
//	    Path:        "/metrics",
//	})
//	defer meter.Shutdown(ctx)
//
//	counter, _ := meter.Counter("cache_hits_total", "缓存命中总数")
//	counter.Inc(ctx, metrics.L("tier", "l1"))
package metrics

import "context"

// Counter 计数器接口
// 用于记录只能增加的累计值，例如缓存命中数、重试次数等
type Counter interface {
	// Inc 将计数器增加 1
	Inc(ctx context.Context, labels ...Label)

	// Add 将计数器增加给定的值
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 仪表盘接口
// 用于记录可以任意增减的瞬时值，例如缓存条目数、存储字节数等
type Gauge interface {
	// Set 设置仪表盘的当前值
	Set(ctx context.Context, val float64, labels ...Label)
}

// Meter 指标工厂接口
type Meter interface {
	// Counter 创建计数器
	Counter(name string, desc string) (Counter, error)

	// Gauge 创建仪表盘
	Gauge(name string, desc string) (Gauge, error)

	// Shutdown 关闭 Meter，刷新所有指标
	Shutdown(ctx context.Context) error
}

// Label 指标标签
type Label struct {
	Key   string
	Value string
}

// L 创建标签的快捷函数
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}
