package service

import (
	"context"
	"sync"
	"time"
)

// Metrics 引擎指标（observability.Metrics 实现；nil 时不记录）
type Metrics interface {
	ExperienceApplied(reason string, delta int64)
	LevelUp()
	CurrencyRecorded(direction string, amount int64)
	BadgeAwarded(code string)
	MissionCompleted()
	ConcurrencyRetry(op string)
	ObserveEvent(op, outcome string, d time.Duration)
}

type noopMetrics struct{}

func (noopMetrics) ExperienceApplied(string, int64)            {}
func (noopMetrics) LevelUp()                                   {}
func (noopMetrics) CurrencyRecorded(string, int64)             {}
func (noopMetrics) BadgeAwarded(string)                        {}
func (noopMetrics) MissionCompleted()                          {}
func (noopMetrics) ConcurrencyRetry(string)                    {}
func (noopMetrics) ObserveEvent(string, string, time.Duration) {}

func metricsOrNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}

// metricsBuffer 事务内产生的业务指标，提交后再统一上报；回滚时丢弃
type metricsBuffer struct {
	mu      sync.Mutex
	pending []func()
}

func (b *metricsBuffer) add(fn func()) {
	b.mu.Lock()
	b.pending = append(b.pending, fn)
	b.mu.Unlock()
}

func (b *metricsBuffer) flush() {
	b.mu.Lock()
	pending := b.pending
	b.pending = nil
	b.mu.Unlock()
	for _, fn := range pending {
		fn()
	}
}

type metricsBufferKey struct{}

func withMetricsBuffer(ctx context.Context) (context.Context, *metricsBuffer) {
	b := &metricsBuffer{}
	return context.WithValue(ctx, metricsBufferKey{}, b), b
}

// metricsFor ctx 中有缓冲时返回延迟上报的包装，否则直接返回 m
func metricsFor(ctx context.Context, m Metrics) Metrics {
	b, ok := ctx.Value(metricsBufferKey{}).(*metricsBuffer)
	if !ok {
		return m
	}
	return bufferedMetrics{buf: b, target: m}
}

// bufferedMetrics 重试次数与事件耗时照常立即上报
type bufferedMetrics struct {
	buf    *metricsBuffer
	target Metrics
}

func (m bufferedMetrics) ExperienceApplied(reason string, delta int64) {
	m.buf.add(func() { m.target.ExperienceApplied(reason, delta) })
}

func (m bufferedMetrics) LevelUp() {
	m.buf.add(m.target.LevelUp)
}

func (m bufferedMetrics) CurrencyRecorded(direction string, amount int64) {
	m.buf.add(func() { m.target.CurrencyRecorded(direction, amount) })
}

func (m bufferedMetrics) BadgeAwarded(code string) {
	m.buf.add(func() { m.target.BadgeAwarded(code) })
}

func (m bufferedMetrics) MissionCompleted() {
	m.buf.add(m.target.MissionCompleted)
}

func (m bufferedMetrics) ConcurrencyRetry(op string) {
	m.target.ConcurrencyRetry(op)
}

func (m bufferedMetrics) ObserveEvent(op, outcome string, d time.Duration) {
	m.target.ObserveEvent(op, outcome, d)
}
