package downloader

import (
	"github.com/ValerySidorin/disclosure/pkg/report"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	documents *prometheus.CounterVec
	attempts  prometheus.Counter
	rotations *prometheus.CounterVec
	inFlight  prometheus.Gauge
}

// newMetrics registers with reg. A nil reg leaves the metrics unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		documents: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "disclosure_documents_total",
			Help: "Documents that reached a terminal outcome.",
		}, []string{"outcome"}),
		attempts: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "disclosure_fetch_attempts_total",
			Help: "Remote fetch attempts made.",
		}),
		rotations: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "disclosure_identity_rotations_total",
			Help: "Identity rotations requested between attempts.",
		}, []string{"result"}),
		inFlight: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "disclosure_fetch_in_flight",
			Help: "Fetch attempts currently running.",
		}),
	}

	for _, o := range []report.Outcome{report.Success, report.NotFound, report.Blocked, report.Failed} {
		m.documents.WithLabelValues(o.String())
	}

	return m
}
