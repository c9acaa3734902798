package reports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetml/internal/domain/diagnosis"
	"vetml/internal/repository/memory"
)

func TestSweepWorkerEvictsExpired(t *testing.T) {
	store := memory.NewReportRepository()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &diagnosis.ClinicalReport{ReportID: "short"}, time.Millisecond))
	require.NoError(t, store.Save(ctx, &diagnosis.ClinicalReport{ReportID: "forever"}, 0))
	time.Sleep(5 * time.Millisecond)

	w := NewSweepWorker(store, time.Minute, true)
	assert.Equal(t, "report_sweep", w.Name())
	assert.Equal(t, time.Minute, w.Interval())

	require.NoError(t, w.Run(ctx))
	assert.Equal(t, 1, store.Len())

	_, err := store.Get(ctx, "forever")
	assert.NoError(t, err)
}
