package bootstrap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetml/internal/adapters/config"
	"vetml/internal/repository/memory"
	"vetml/pkg/logger"
)

func TestProvideWorkers(t *testing.T) {
	cfg := &config.Config{}

	s := provideWorkers(cfg, &Models{}, memory.NewReportRepository(), logger.NewNop())
	require.Len(t, s.GetWorkers(), 1)
	assert.Equal(t, "report_sweep", s.GetWorkers()[0].Name())

	s = provideWorkers(cfg, &Models{}, nil, logger.NewNop())
	assert.Empty(t, s.GetWorkers(), "no watcher and no memory store means nothing to schedule")
}
