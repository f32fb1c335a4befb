package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Application-wide Prometheus metrics. Registered once at package init via
// promauto; labels keep cardinality to the five document types.
var (
	AcquisitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certhub_acquisitions_total",
		Help: "Acquisition outcomes by document type",
	}, []string{"type", "outcome"})

	AcquisitionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "certhub_acquisition_duration_seconds",
		Help:    "Wall time of one document acquisition including retries",
		Buckets: []float64{5, 15, 30, 60, 120, 240, 480},
	}, []string{"type"})

	SolverRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certhub_solver_requests_total",
		Help: "Challenge solver task outcomes",
	}, []string{"kind", "outcome"})

	SyncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "certhub_sync_runs_total",
		Help: "Reconciliation runs by outcome",
	}, []string{"outcome"})

	ArtifactUploadsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "certhub_artifact_uploads_skipped_total",
		Help: "Artifacts not pushed to the remote store because they exceed the size cap",
	})

	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "certhub_notifications_sent_total",
		Help: "Expiry alert emails sent",
	})
)
