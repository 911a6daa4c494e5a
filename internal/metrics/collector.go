package metrics

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StartRuntimeMetricsCollector periodically refreshes the runtime gauges until
// ctx is done or the returned stop function is called.
func StartRuntimeMetricsCollector(ctx context.Context, interval time.Duration) func() {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	collectorCtx, cancel := context.WithCancel(ctx)
	go collectRuntimeMetrics(collectorCtx, interval)

	return cancel
}

func collectRuntimeMetrics(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	updateRuntimeMetrics()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateRuntimeMetrics()
		}
	}
}

func updateRuntimeMetrics() {
	GoroutinesCount.Set(float64(runtime.NumGoroutine()))

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	MemoryAllocBytes.Set(float64(memStats.Alloc))
	HeapObjectsCount.Set(float64(memStats.HeapObjects))
	GCPauseNanosTotal.Set(float64(memStats.PauseTotalNs))
}

// UpdateChannelMetrics updates metrics for a given channel
func UpdateChannelMetrics(chanLen, chanCap int, sizeGauge, capGauge prometheus.Gauge) {
	sizeGauge.Set(float64(chanLen))
	capGauge.Set(float64(chanCap))
}
