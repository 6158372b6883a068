package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestObserveItem(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("test", reg, nil)

	c.ObserveItem(true, 100*time.Millisecond)
	c.ObserveItem(false, 200*time.Millisecond)
	c.ObserveItem(false, 300*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.itemsTotal.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.itemsTotal.WithLabelValues("failure")))
}

func TestObserveStepFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("test", reg, nil)

	c.ObserveStepFailure("submit_url")
	c.ObserveStepFailure("submit_url")
	c.ObserveStepFailure("enter_email")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.stepFailures.WithLabelValues("submit_url")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.stepFailures.WithLabelValues("enter_email")))
}

func TestObserveAnnotatorFailure(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector("test", reg, nil)

	c.ObserveAnnotatorFailure()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.annotatorFailures))
}

func TestLogValues(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	reg := prometheus.NewRegistry()
	c := NewCollector("test", reg, zap.New(core))

	c.ObserveItem(true, 100*time.Millisecond)
	c.ObserveItem(false, 200*time.Millisecond)
	c.ObserveStepFailure("submit_url")
	c.LogValues()

	var successes, failures, stepFailures float64
	var durationCount uint64
	for _, entry := range logs.All() {
		assert.Equal(t, "run metric", entry.Message)
		m := entry.ContextMap()
		switch m["metric"] {
		case "test_items_total":
			if m["result"] == "success" {
				successes = m["value"].(float64)
			} else {
				failures = m["value"].(float64)
			}
		case "test_step_failures_total":
			assert.Equal(t, "submit_url", m["step"])
			stepFailures = m["value"].(float64)
		case "test_item_duration_seconds":
			durationCount = m["count"].(uint64)
		}
	}

	assert.Equal(t, 1.0, successes)
	assert.Equal(t, 1.0, failures)
	assert.Equal(t, 1.0, stepFailures)
	assert.Equal(t, uint64(2), durationCount)
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.ObserveItem(true, time.Second)
	c.ObserveStepFailure("enter_url")
	c.ObserveAnnotatorFailure()
	c.LogValues()
}
