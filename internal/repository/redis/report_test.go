package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetml/internal/domain/diagnosis"
	"vetml/internal/testsupport"
	"vetml/pkg/errors"
)

func TestReportRepository(t *testing.T) {
	cfg := testsupport.LoadRedisConfigFromEnv(t)
	client := testsupport.NewRedisClient(t, cfg)
	repo := NewReportRepository(client, "test:report:")
	ctx := context.Background()

	report := &diagnosis.ClinicalReport{
		PatientInfo: map[string]interface{}{"age": 4.0},
		Predictions: []diagnosis.RankedPrediction{
			{Rank: 1, Disease: "Otitis Externa", Probability: 0.62, ConfidenceLevel: diagnosis.ConfidenceMedium},
		},
		Diagnostics: []string{"Complete Blood Count (CBC)"},
		Timestamp:   "2026-03-01T12:00:00Z",
		ReportID:    "r-1",
	}

	require.NoError(t, repo.Save(ctx, report, time.Minute))

	got, err := repo.Get(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, report, got)

	ttl, err := client.TTL(ctx, "test:report:r-1").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))

	_, err = repo.Get(ctx, "missing")
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}
