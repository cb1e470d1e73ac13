// Package metrics exposes the Prometheus collectors of the registry node and
// the oracle, and a small HTTP server serving them.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ruteri/package-registry/common"
)

var (
	registry = prometheus.NewRegistry()
	factory  = promauto.With(registry)

	storeTransactions = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: common.PackageName,
		Subsystem: "store",
		Name:      "transactions_total",
		Help:      "Registry store transactions by instruction and result code",
	}, []string{"instruction", "result"})

	storeAccounts = factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: common.PackageName,
		Subsystem: "store",
		Name:      "live_records",
		Help:      "Live record accounts by kind",
	}, []string{"kind"})

	oracleAttestations = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: common.PackageName,
		Subsystem: "oracle",
		Name:      "attestations_total",
		Help:      "Oracle attestation requests by outcome",
	}, []string{"outcome"})

	profileFetchDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: common.PackageName,
		Subsystem: "oracle",
		Name:      "profile_fetch_duration_seconds",
		Help:      "Latency of external identity profile fetches",
		Buckets:   prometheus.DefBuckets,
	})
)

// RecordStoreTransaction counts a processed store instruction. result is the
// error code, or "ok".
func RecordStoreTransaction(instruction, result string) {
	storeTransactions.WithLabelValues(instruction, result).Inc()
}

// SetLiveRecords reports the number of live records of a kind.
func SetLiveRecords(kind string, n int) {
	storeAccounts.WithLabelValues(kind).Set(float64(n))
}

// RecordAttestation counts an oracle attestation outcome.
func RecordAttestation(outcome string) {
	oracleAttestations.WithLabelValues(outcome).Inc()
}

// ObserveProfileFetch records how long an external profile fetch took.
func ObserveProfileFetch(d time.Duration) {
	profileFetchDuration.Observe(d.Seconds())
}

// Gatherer exposes the collectors, mostly for tests.
func Gatherer() prometheus.Gatherer {
	return registry
}

type MetricsServer struct {
	srv *http.Server
}

// New creates a metrics server listening on listenAddr. Process and Go
// runtime collectors are registered under namespace once.
func New(namespace, listenAddr string) (*MetricsServer, error) {
	if err := registerRuntimeCollectors(namespace); err != nil {
		return nil, err
	}

	mux := chi.NewRouter()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	return &MetricsServer{
		srv: &http.Server{
			Addr:              listenAddr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}, nil
}

func registerRuntimeCollectors(namespace string) error {
	for _, c := range []prometheus.Collector{
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: namespace}),
		collectors.NewGoCollector(),
	} {
		if err := registry.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

func (m *MetricsServer) ListenAndServe() error {
	return m.srv.ListenAndServe()
}

func (m *MetricsServer) Shutdown(ctx context.Context) error {
	return m.srv.Shutdown(ctx)
}
