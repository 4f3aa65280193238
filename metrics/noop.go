package metrics

import "context"

// Nop 返回一个空操作 Meter
//
// 指标未启用或测试场景下使用，所有记录操作不产生任何副作用。
func Nop() Meter {
	return &noopMeter{}
}

type noopMeter struct{}

func (m *noopMeter) Counter(name string, desc string) (Counter, error) {
	return &noopCounter{}, nil
}

func (m *noopMeter) Gauge(name string, desc string) (Gauge, error) {
	return &noopGauge{}, nil
}

func (m *noopMeter) Shutdown(ctx context.Context) error { return nil }

type noopCounter struct{}

func (c *noopCounter) Inc(ctx context.Context, labels ...Label)              {}
func (c *noopCounter) Add(ctx context.Context, val float64, labels ...Label) {}

type noopGauge struct{}

func (g *noopGauge) Set(ctx context.Context, val float64, labels ...Label) {}
