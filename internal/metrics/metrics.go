// Package metrics exposes the engine's operational counters over a
// Prometheus endpoint.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	logx "spacecat/pkg/logx"
)

var (
	PollCycles = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spacecat",
		Name:      "poll_cycles_total",
		Help:      "Completed poll cycles.",
	})
	FetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spacecat",
		Name:      "fetch_errors_total",
		Help:      "Fetch failures by category.",
	}, []string{"category"})
	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spacecat",
		Name:      "deliveries_total",
		Help:      "Notification deliveries by sink and outcome.",
	}, []string{"sink", "outcome"})
	EventsDeduped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spacecat",
		Name:      "events_deduped_total",
		Help:      "Events suppressed as already seen.",
	})
	ImagesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spacecat",
		Name:      "images_skipped_total",
		Help:      "Image notifications suppressed by the cooldown.",
	})
	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "spacecat",
		Name:      "poll_cycle_seconds",
		Help:      "Wall time of one poll cycle.",
		Buckets:   prometheus.DefBuckets,
	})
)

// RecordOutcome maps a delivery error to the outcome label.
func RecordOutcome(sink string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	Deliveries.WithLabelValues(sink, outcome).Inc()
}

// Serve runs the /metrics listener until ctx is canceled.
func Serve(ctx context.Context, addr string, log logx.Logger) error {
	if log.IsZero() {
		log = logx.Nop()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("metrics listener started", logx.String("addr", addr))

	select {
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
