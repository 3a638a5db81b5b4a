package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"underway-hq/underway/pkg/config"
	"underway-hq/underway/pkg/topology"
)

// Include forms used as label values.
const (
	FormBare      = "bare"
	FormFiltered  = "filtered"
	FormExtracted = "extracted"
)

// IncludeForm classifies a reference by which suffixes it carries.
func IncludeForm(ref topology.Reference) string {
	switch {
	case ref.HasExtract():
		return FormExtracted
	case ref.HasFilter():
		return FormFiltered
	default:
		return FormBare
	}
}

// IncludeMetrics tracks include resolution and world size.
//
// Metrics:
//   - underway_includes_total: resolved include directives by form
//   - underway_documents: documents loaded per source
type IncludeMetrics struct {
	includesTotal *prometheus.CounterVec
	documents     *prometheus.GaugeVec
}

// NewIncludeMetrics creates and registers include metrics with the provided registry.
func NewIncludeMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *IncludeMetrics {
	im := &IncludeMetrics{
		includesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "includes_total",
				Help:      "Total number of include directives resolved",
			},
			[]string{"form"},
		),
		documents: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "documents",
				Help:      "Number of documents loaded from the source",
			},
			[]string{"source"},
		),
	}

	registry.MustRegister(im.includesTotal, im.documents)
	return im
}

// RecordInclude counts one resolved include of the given form.
func (im *IncludeMetrics) RecordInclude(form string) {
	im.includesTotal.WithLabelValues(form).Inc()
}

// UpdateDocuments sets the document count for a source.
func (im *IncludeMetrics) UpdateDocuments(source string, count int) {
	im.documents.WithLabelValues(source).Set(float64(count))
}
