// Package metrics provides internal metrics collection for batch runs.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector aggregates per-item counters for a batch run. A nil *Collector
// is valid and records nothing.
type Collector struct {
	itemsTotal        *prometheus.CounterVec
	stepFailures      *prometheus.CounterVec
	itemDuration      prometheus.Histogram
	annotatorFailures prometheus.Counter

	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

// NewCollector creates a collector registered on reg. A nil reg uses the
// default registerer.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// A *prometheus.Registry is both sides; fall back to the default
	// gatherer when handed a bare Registerer.
	gatherer, _ := reg.(prometheus.Gatherer)
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	factory := promauto.With(reg)
	return &Collector{
		itemsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_total",
				Help:      "Total number of processed items by result",
			},
			[]string{"result"},
		),
		stepFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "step_failures_total",
				Help:      "Total number of failed sequence steps by step name",
			},
			[]string{"step"},
		),
		itemDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "item_duration_seconds",
				Help:      "Wall-clock duration of one item's sequence",
				Buckets:   prometheus.DefBuckets,
			},
		),
		annotatorFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "annotator_failures_total",
				Help:      "Total number of failed advisory annotation calls",
			},
		),
		gatherer: gatherer,
		logger:   logger.With(zap.String("component", "metrics")),
	}
}

// LogValues gathers the registry and logs the final sample values, one line
// per metric. Called once after a batch run so the counters land in the
// run's log output next to the summary.
func (c *Collector) LogValues() {
	if c == nil {
		return
	}

	families, err := c.gatherer.Gather()
	if err != nil {
		c.logger.Warn("gathering metrics", zap.Error(err))
		return
	}

	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			fields := []zap.Field{zap.String("metric", fam.GetName())}
			for _, lp := range m.GetLabel() {
				fields = append(fields, zap.String(lp.GetName(), lp.GetValue()))
			}
			switch {
			case m.GetCounter() != nil:
				fields = append(fields, zap.Float64("value", m.GetCounter().GetValue()))
			case m.GetHistogram() != nil:
				fields = append(fields,
					zap.Uint64("count", m.GetHistogram().GetSampleCount()),
					zap.Float64("sum", m.GetHistogram().GetSampleSum()))
			default:
				continue
			}
			c.logger.Info("run metric", fields...)
		}
	}
}

// ObserveItem records one finished item.
func (c *Collector) ObserveItem(success bool, d time.Duration) {
	if c == nil {
		return
	}
	result := "failure"
	if success {
		result = "success"
	}
	c.itemsTotal.WithLabelValues(result).Inc()
	c.itemDuration.Observe(d.Seconds())
}

// ObserveStepFailure records a failed required step.
func (c *Collector) ObserveStepFailure(step string) {
	if c == nil {
		return
	}
	c.stepFailures.WithLabelValues(step).Inc()
}

// ObserveAnnotatorFailure records a failed annotation call.
func (c *Collector) ObserveAnnotatorFailure() {
	if c == nil {
		return
	}
	c.annotatorFailures.Inc()
}
