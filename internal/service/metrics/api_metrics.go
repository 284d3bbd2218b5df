package metrics

import (
    "sync"
    "time"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    APILatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "cropvol",
            Subsystem: "api",
            Name:      "latency_seconds",
            Help:      "Latency of analysis endpoints",
            Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
        },
        []string{"endpoint"},
    )

    APIErrors = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "cropvol",
            Subsystem: "api",
            Name:      "errors_total",
            Help:      "Errors by analysis endpoint and kind",
        },
        []string{"endpoint", "kind"},
    )
)

func Register() {
    once.Do(func() {
        prometheus.MustRegister(APILatency, APIErrors)
    })
}

// ObserveEndpoint records latency for endpoint since start.
func ObserveEndpoint(endpoint string, start time.Time) {
    APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// ObserveError counts a failed call to endpoint.
func ObserveError(endpoint, kind string) {
    APIErrors.WithLabelValues(endpoint, kind).Inc()
}
