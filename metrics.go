// metrics.go: Prometheus instrumentation for lifecycle operations
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package arbor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// operationTotal counts lifecycle operations by name and result
	operationTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "arbor_operation_total",
		Help: "Total lifecycle operations by operation and result",
	}, []string{"operation", "result"})

	// operationDuration tracks lifecycle operation latency
	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "arbor_operation_duration_seconds",
		Help:    "Lifecycle operation duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10), // 10us to ~2.6s
	}, []string{"operation"})

	// copiedLeaves counts leaves written by Copy
	copiedLeaves = promauto.NewCounter(prometheus.CounterOpts{
		Name: "arbor_copied_leaves_total",
		Help: "Total leaves written by structural copies",
	})

	// savedSnapshots reports non-archived snapshots per server
	savedSnapshots = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "arbor_saved_snapshots",
		Help: "Number of non-archived snapshots held in the tree",
	}, []string{"server_id"})
)

// observeOperation records the outcome and latency of one operation.
func observeOperation(operation string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	operationTotal.WithLabelValues(operation, result).Inc()
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
