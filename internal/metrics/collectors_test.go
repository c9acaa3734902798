package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	infos []ModelInfo
}

func (f *fakeSource) ModelInfos() []ModelInfo { return f.infos }
func (f *fakeSource) LoadedAt() time.Time     { return time.Time{} }

func TestModelCollector(t *testing.T) {
	c := NewModelCollector(&fakeSource{infos: []ModelInfo{
		{Species: "dog", Features: 42, Classes: 12, Bytes: 2048, HasFrequencies: true},
	}})

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP vetml_model_schema_features Number of features in the species schema
# TYPE vetml_model_schema_features gauge
vetml_model_schema_features{species="dog"} 42
# HELP vetml_model_classes Number of diagnosis labels the species model predicts
# TYPE vetml_model_classes gauge
vetml_model_classes{species="dog"} 12
`
	err := testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"vetml_model_schema_features", "vetml_model_classes")
	assert.NoError(t, err)
}

func TestRecordHelpers(t *testing.T) {
	RecordTier("cat", "heuristic")
	assert.Equal(t, 1.0, testutil.ToFloat64(TierServed.WithLabelValues("cat", "heuristic")))

	RecordRegistryReload(3, nil)
	assert.Equal(t, 3.0, testutil.ToFloat64(ModelsRegistered))
}

func TestRecordOutcomeHelpers(t *testing.T) {
	RecordKafkaMessage("predictions.generated", "published")
	assert.Equal(t, 1.0, testutil.ToFloat64(KafkaMessages.WithLabelValues("predictions.generated", "published")))

	RecordReportStoreOp("memory", "get", "not_found")
	RecordReportStoreOp("memory", "get", "not_found")
	assert.Equal(t, 2.0, testutil.ToFloat64(ReportStoreOps.WithLabelValues("memory", "get", "not_found")))
}
