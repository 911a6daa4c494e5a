package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Timer records the time elapsed since it was created into a histogram.
type Timer struct {
	histogram prometheus.Observer
	startTime time.Time
}

func NewTimer(histogram prometheus.Observer) *Timer {
	return &Timer{
		histogram: histogram,
		startTime: time.Now(),
	}
}

// ObserveDuration records and returns the duration since the timer was created.
func (t *Timer) ObserveDuration() time.Duration {
	d := time.Since(t.startTime)
	t.histogram.Observe(d.Seconds())
	return d
}
