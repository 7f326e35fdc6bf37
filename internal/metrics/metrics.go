// Package metrics exposes Prometheus counters for the blind-signing roles.
package metrics

import (
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Verification results used as the "result" label.
const (
	ResultValid   = "valid"
	ResultInvalid = "invalid"
)

// Operations used as the "operation" label of Failures.
const (
	OpBlind   = "blind"
	OpSign    = "sign"
	OpUnblind = "unblind"
	OpVerify  = "verify"
)

// Metrics contains all Prometheus metrics for the blind-signing roles.
type Metrics struct {
	// Owner side
	Blindings     prometheus.Counter
	Unblindings   prometheus.Counter
	Verifications *prometheus.CounterVec

	// Signer side
	BlindSignatures prometheus.Counter
	SignBatchSize   prometheus.Histogram

	// Failures by operation
	Failures *prometheus.CounterVec
}

// NewMetrics initializes and registers metrics with the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(nil)
}

// NewMetricsWithRegistry initializes and registers metrics with a custom registry.
func NewMetricsWithRegistry(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Metrics{
		Blindings: factory.NewCounter(prometheus.CounterOpts{
			Name: "blindsig_blindings_total",
			Help: "Number of messages blinded by the owner",
		}),
		Unblindings: factory.NewCounter(prometheus.CounterOpts{
			Name: "blindsig_unblindings_total",
			Help: "Number of blind signatures unblinded by the owner",
		}),
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blindsig_verifications_total",
			Help: "Number of signature verifications by result",
		}, []string{"result"}),
		BlindSignatures: factory.NewCounter(prometheus.CounterOpts{
			Name: "blindsig_blind_signatures_total",
			Help: "Number of blinded values signed",
		}),
		SignBatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "blindsig_sign_batch_size",
			Help:    "Number of blinded values per signing batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "blindsig_failures_total",
			Help: "Number of failed protocol operations",
		}, []string{"operation"}),
	}
}

// RecordVerification counts a verification outcome.
func (m *Metrics) RecordVerification(valid bool) {
	result := ResultInvalid
	if valid {
		result = ResultValid
	}
	m.Verifications.WithLabelValues(result).Inc()
}

// RecordFailure counts a failed operation.
func (m *Metrics) RecordFailure(operation string) {
	m.Failures.WithLabelValues(operation).Inc()
}

// WriteTextfile writes all metrics gathered by g to path in the text exposition format,
// for pickup by a node-exporter textfile collector after a CLI run.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", path)
	}
	return nil
}
