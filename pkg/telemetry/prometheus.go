// Package telemetry exposes Prometheus metrics for model fitting.
//
// A nil *Collector is valid and records nothing, so estimators can call it
// unconditionally.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/YuminosukeSato/unipls/pkg/errors"
)

// Fit results used as the "result" label.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Collector holds the fitting metrics of unipls estimators.
type Collector struct {
	// FitDuration records wall-clock time of Fit by solver and result.
	FitDuration *prometheus.HistogramVec

	// ComponentsExtracted counts latent components committed by successful fits.
	ComponentsExtracted *prometheus.CounterVec

	// NIPALSIterations records the inner-loop iterations per NIPALS component.
	NIPALSIterations prometheus.Histogram

	// FitErrors counts failed fits by solver and error type.
	FitErrors *prometheus.CounterVec
}

// NewCollector creates the metric set. Nothing is registered until Register is called.
func NewCollector() *Collector {
	return &Collector{
		FitDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "unipls_fit_duration_seconds",
				Help:    "Duration of MBPLS fits in seconds",
				Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"method", "result"},
		),

		ComponentsExtracted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unipls_components_extracted_total",
				Help: "Total number of latent components extracted by successful fits",
			},
			[]string{"method"},
		),

		NIPALSIterations: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "unipls_nipals_iterations",
				Help:    "Inner iterations needed by NIPALS per component",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000},
			},
		),

		FitErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "unipls_fit_errors_total",
				Help: "Total number of failed fits by error type",
			},
			[]string{"method", "error_type"},
		),
	}
}

// Register adds every metric to reg.
func (c *Collector) Register(reg prometheus.Registerer) error {
	if c == nil {
		return nil
	}
	for _, m := range []prometheus.Collector{c.FitDuration, c.ComponentsExtracted, c.NIPALSIterations, c.FitErrors} {
		if err := reg.Register(m); err != nil {
			return errors.Wrap(err, "failed to register unipls metrics")
		}
	}
	return nil
}

// Handler serves the metrics of reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// ObserveFit records one successful fit.
func (c *Collector) ObserveFit(method string, elapsed time.Duration, components int) {
	if c == nil {
		return
	}
	c.FitDuration.WithLabelValues(method, ResultSuccess).Observe(elapsed.Seconds())
	c.ComponentsExtracted.WithLabelValues(method).Add(float64(components))
}

// ObserveFitError records one failed fit. The error type label is the
// taxonomy name of err (DimensionError, ConvergenceError, ...).
func (c *Collector) ObserveFitError(method string, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	c.FitDuration.WithLabelValues(method, ResultError).Observe(elapsed.Seconds())
	c.FitErrors.WithLabelValues(method, errors.TypeName(err)).Inc()
}

// ObserveIterations records the NIPALS iterations used for one component.
func (c *Collector) ObserveIterations(iterations int) {
	if c == nil {
		return
	}
	c.NIPALSIterations.Observe(float64(iterations))
}

// FitCount returns the number of fits observed for method and result.
func (c *Collector) FitCount(method, result string) uint64 {
	if c == nil {
		return 0
	}
	obs, err := c.FitDuration.GetMetricWithLabelValues(method, result)
	if err != nil {
		return 0
	}
	m := &dto.Metric{}
	if err := obs.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	return m.GetHistogram().GetSampleCount()
}

// ComponentCount returns the components extracted so far by method.
func (c *Collector) ComponentCount(method string) float64 {
	if c == nil {
		return 0
	}
	counter, err := c.ComponentsExtracted.GetMetricWithLabelValues(method)
	if err != nil {
		return 0
	}
	m := &dto.Metric{}
	if err := counter.Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
