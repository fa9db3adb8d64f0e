package metrics

import (
	"fmt"
	"net/http"
)

// PrometheusHandler renders every tracked series as Prometheus gauges,
// generalized from the teacher's monitoring.PrometheusHandler (which
// walked a sync.Map of ad-hoc Counter/Gauge/Histogram metrics) to this
// package's fixed Series set.
func (c *Collector) PrometheusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		c.mu.RLock()
		defer c.mu.RUnlock()
		for name, series := range c.series {
			stats := series.Stats(0)
			fmt.Fprintf(w, "# TYPE browsergate_%s gauge\n", name)
			fmt.Fprintf(w, "browsergate_%s{stat=\"mean\"} %g\n", name, stats.Mean)
			fmt.Fprintf(w, "browsergate_%s{stat=\"p95\"} %g\n", name, stats.P95)
			fmt.Fprintf(w, "browsergate_%s{stat=\"p99\"} %g\n", name, stats.P99)
			fmt.Fprintf(w, "browsergate_%s{stat=\"count\"} %d\n", name, stats.Count)
		}
	}
}
