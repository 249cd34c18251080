package observability

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
)

const namespace = "schoolquest"

// Metrics 进度引擎指标，使用独立 Registry，避免测试之间互相污染
type Metrics struct {
	registry *prometheus.Registry

	experienceApplied *prometheus.CounterVec
	levelUps          prometheus.Counter
	currencyAmount    *prometheus.CounterVec
	badgesAwarded     *prometheus.CounterVec
	missionsCompleted prometheus.Counter
	casRetries        *prometheus.CounterVec
	eventsTotal       *prometheus.CounterVec
	eventDuration     *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		experienceApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "experience_applied_total",
			Help:      "Experience applied to characters, by reason (negative deltas counted as absolute value)",
		}, []string{"reason", "sign"}),
		levelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "level_ups_total",
			Help:      "Character level-up transitions",
		}),
		currencyAmount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "currency_amount_total",
			Help:      "Currency moved through the ledger, by direction",
		}, []string{"direction"}),
		badgesAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "badges_awarded_total",
			Help:      "Badges awarded, by badge code",
		}, []string{"badge"}),
		missionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "missions_completed_total",
			Help:      "Mission completion transitions",
		}),
		casRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "concurrency_retries_total",
			Help:      "Optimistic-lock retries, by operation",
		}, []string{"op"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Progression events handled, by operation and outcome",
		}, []string{"op", "outcome"}),
		eventDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_duration_seconds",
			Help:      "Progression event latency including lock wait",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"op"}),
	}

	m.registry.MustRegister(
		m.experienceApplied,
		m.levelUps,
		m.currencyAmount,
		m.badgesAwarded,
		m.missionsCompleted,
		m.casRetries,
		m.eventsTotal,
		m.eventDuration,
		collectors.NewGoCollector(),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ExperienceApplied(reason string, delta int64) {
	sign := "positive"
	if delta < 0 {
		sign = "negative"
		delta = -delta
	}
	m.experienceApplied.WithLabelValues(reason, sign).Add(float64(delta))
}

func (m *Metrics) LevelUp() {
	m.levelUps.Inc()
}

func (m *Metrics) CurrencyRecorded(direction string, amount int64) {
	m.currencyAmount.WithLabelValues(direction).Add(float64(amount))
}

func (m *Metrics) BadgeAwarded(code string) {
	m.badgesAwarded.WithLabelValues(code).Inc()
}

func (m *Metrics) MissionCompleted() {
	m.missionsCompleted.Inc()
}

func (m *Metrics) ConcurrencyRetry(op string) {
	m.casRetries.WithLabelValues(op).Inc()
}

func (m *Metrics) ObserveEvent(op, outcome string, d time.Duration) {
	m.eventsTotal.WithLabelValues(op, outcome).Inc()
	m.eventDuration.WithLabelValues(op).Observe(d.Seconds())
}

// WriteText 以 Prometheus 文本格式输出当前指标（CLI 使用）
func (m *Metrics) WriteText(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("采集指标失败: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("输出指标失败: %w", err)
		}
	}
	return nil
}
