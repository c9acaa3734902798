package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ModelInfo describes one registered species model
type ModelInfo struct {
	Species        string
	Features       int
	Classes        int
	Bytes          int64
	HasFrequencies bool
}

// ModelSource exposes the current registry snapshot to the collector
type ModelSource interface {
	ModelInfos() []ModelInfo
	LoadedAt() time.Time
}

// ModelCollector reports per-species model shape from the live registry snapshot
type ModelCollector struct {
	source ModelSource

	// Descriptors
	schemaFeatures  *prometheus.Desc
	modelClasses    *prometheus.Desc
	artifactBytes   *prometheus.Desc
	frequencyTables *prometheus.Desc
	snapshotAge     *prometheus.Desc
}

// NewModelCollector creates a new model collector
func NewModelCollector(source ModelSource) *ModelCollector {
	return &ModelCollector{
		source: source,

		schemaFeatures: prometheus.NewDesc(
			"vetml_model_schema_features",
			"Number of features in the species schema",
			[]string{"species"}, nil,
		),
		modelClasses: prometheus.NewDesc(
			"vetml_model_classes",
			"Number of diagnosis labels the species model predicts",
			[]string{"species"}, nil,
		),
		artifactBytes: prometheus.NewDesc(
			"vetml_model_artifact_bytes",
			"Size of the loaded artifacts on disk",
			[]string{"species"}, nil,
		),
		frequencyTables: prometheus.NewDesc(
			"vetml_model_frequency_table_loaded",
			"Whether a frequency table was loaded (0=fallback, 1=loaded)",
			[]string{"species"}, nil,
		),
		snapshotAge: prometheus.NewDesc(
			"vetml_registry_snapshot_age_seconds",
			"Seconds since the current registry snapshot was built",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *ModelCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.schemaFeatures
	ch <- c.modelClasses
	ch <- c.artifactBytes
	ch <- c.frequencyTables
	ch <- c.snapshotAge
}

// Collect implements prometheus.Collector
func (c *ModelCollector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range c.source.ModelInfos() {
		ch <- prometheus.MustNewConstMetric(c.schemaFeatures, prometheus.GaugeValue, float64(m.Features), m.Species)
		ch <- prometheus.MustNewConstMetric(c.modelClasses, prometheus.GaugeValue, float64(m.Classes), m.Species)
		ch <- prometheus.MustNewConstMetric(c.artifactBytes, prometheus.GaugeValue, float64(m.Bytes), m.Species)

		loaded := 0.0
		if m.HasFrequencies {
			loaded = 1
		}
		ch <- prometheus.MustNewConstMetric(c.frequencyTables, prometheus.GaugeValue, loaded, m.Species)
	}

	if at := c.source.LoadedAt(); !at.IsZero() {
		ch <- prometheus.MustNewConstMetric(c.snapshotAge, prometheus.GaugeValue, time.Since(at).Seconds())
	}
}
