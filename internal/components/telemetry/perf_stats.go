package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
)

const perfStatsInterval = 30 * time.Second

// InstrumentPerfStats samples cpu usage, heap size and goroutine count into
// gauges until ctx is done.
func InstrumentPerfStats(ctx context.Context) {
	meter := otel.Meter("kingo-scraper/perf_stats")
	cpuGauge, _ := meter.Float64Gauge("cpu_usage")
	heapGauge, _ := meter.Int64Gauge("allocated_mb")
	goroutineGauge, _ := meter.Int64Gauge("goroutine_count")

	sample := func() {
		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		heapGauge.Record(ctx, int64(mem.Alloc/1_000_000))
		goroutineGauge.Record(ctx, int64(runtime.NumGoroutine()))

		usage, err := cpu.PercentWithContext(ctx, time.Second, false)
		if err != nil {
			slog.Debug("failed to read cpu usage", "err", err)
			return
		}
		if len(usage) > 0 {
			cpuGauge.Record(ctx, usage[0])
		}
	}

	go func() {
		ticker := time.NewTicker(perfStatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				sample()
			case <-ctx.Done():
				return
			}
		}
	}()
}
