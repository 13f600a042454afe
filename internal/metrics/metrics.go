// Package metrics exposes Prometheus collectors for document processing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "taxdoc"

// UnknownType is the document_type label used for unregistered types, so
// arbitrary caller input cannot grow label cardinality.
const UnknownType = "unknown"

// Metrics owns a private registry and the collectors registered on it.
// All methods are safe on a nil receiver, which disables recording.
type Metrics struct {
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	fields    *prometheus.CounterVec
	missing   *prometheus.CounterVec
	pages     *prometheus.CounterVec
	textBytes prometheus.Histogram
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Processing requests by operation and outcome.",
		}, []string{"operation", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Processing latency by operation.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"operation"}),
		fields: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fields_extracted_total",
			Help:      "Fields extracted by document type.",
		}, []string{"document_type"}),
		missing: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_issues_total",
			Help:      "Missing required fields reported by document type.",
		}, []string{"document_type"}),
		pages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_total",
			Help:      "Pages recognized by method (text_layer, ocr, failed).",
		}, []string{"method"}),
		textBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "normalized_text_bytes",
			Help:      "Size of the normalized text handed to extraction.",
			Buckets:   prometheus.ExponentialBuckets(64, 4, 10),
		}),
	}

	m.registry.MustRegister(
		m.requests, m.duration, m.fields, m.missing, m.pages, m.textBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest records one finished operation.
func (m *Metrics) ObserveRequest(operation, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, status).Inc()
	m.duration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveExtraction records the outcome of extracting one document.
func (m *Metrics) ObserveExtraction(documentType string, known bool, fields, issues, textBytes int) {
	if m == nil {
		return
	}
	if !known {
		documentType = UnknownType
	}
	m.fields.WithLabelValues(documentType).Add(float64(fields))
	m.missing.WithLabelValues(documentType).Add(float64(issues))
	m.textBytes.Observe(float64(textBytes))
}

// ObservePages records n pages recognized with method.
func (m *Metrics) ObservePages(method string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.pages.WithLabelValues(method).Add(float64(n))
}
