package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersCreated counts orders accepted and persisted.
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders accepted and persisted.",
	})

	// OrderIntakeFailures counts rejected order submissions by the
	// workflow stage that rejected them.
	OrderIntakeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_intake_failures_total",
		Help: "Order submissions rejected, by failure stage.",
	}, []string{"stage"})

	// BlobUploads counts blob store uploads by kind and outcome.
	BlobUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blob_uploads_total",
		Help: "Blob store uploads, by kind and outcome.",
	}, []string{"kind", "outcome"})

	// CompensationDeletes counts compensating blob deletes by outcome.
	CompensationDeletes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "blob_compensation_deletes_total",
		Help: "Compensating blob deletes, by outcome.",
	}, []string{"outcome"})
)
