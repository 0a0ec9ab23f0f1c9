package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder holds the counters reported by the metadata recorder.
type Recorder struct {
	RecordsWritten   prometheus.Counter
	MalformedEvents  prometheus.Counter
	StoreWriteErrors prometheus.Counter
	StoreWriteTime   prometheus.Histogram
}

// NewRecorder creates the recorder metrics and registers them with reg.
// A nil reg leaves the collectors unregistered.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	m := &Recorder{
		RecordsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "records_written_total",
			Help: "Total number of metadata records upserted",
		}),
		MalformedEvents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "malformed_events_total",
			Help: "Total number of notifications rejected as malformed",
		}),
		StoreWriteErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "store_write_errors_total",
			Help: "Total number of failed metadata store writes",
		}),
		StoreWriteTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "store_write_seconds",
			Help:    "Latency of a single metadata store write",
			Buckets: prometheus.DefBuckets,
		}),
	}

	if reg != nil {
		reg.MustRegister(m.RecordsWritten, m.MalformedEvents, m.StoreWriteErrors, m.StoreWriteTime)
	}
	return m
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
