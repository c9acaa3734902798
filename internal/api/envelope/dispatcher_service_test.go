package envelope

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vetml/internal/domain/diagnosis"
	"vetml/internal/repository/memory"
	diagnosisservice "vetml/internal/services/diagnosis"
	reportservice "vetml/internal/services/report"
	"vetml/pkg/logger"
)

type slowPredictor struct {
	delay time.Duration
}

func (p slowPredictor) Predict(ctx context.Context, species string, data map[string]interface{}) (*diagnosis.Result, error) {
	time.Sleep(p.delay)
	return &diagnosis.Result{
		Species:     diagnosis.NormalizeSpecies(species),
		Predictions: []diagnosis.Prediction{{Disease: "Kennel Cough", Probability: 0.9}},
		Tier:        diagnosis.TierComposite,
	}, nil
}

type countingPublisher struct {
	mu    sync.Mutex
	count int
}

func (p *countingPublisher) PublishPredictionGenerated(context.Context, *diagnosis.PredictionGenerated) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count++
	return nil
}

func (p *countingPublisher) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

func TestTimedOutPredictionLeavesNoTrace(t *testing.T) {
	store := memory.NewReportRepository()
	pub := &countingPublisher{}
	svc := diagnosisservice.NewService(
		slowPredictor{delay: 60 * time.Millisecond},
		reportservice.NewBuilder(),
		store,
		pub,
		diagnosisservice.Config{ReportTTL: time.Hour},
		logger.NewNop(),
	)
	d := NewDispatcher(svc, 20*time.Millisecond, nil, logger.NewNop())

	r := d.Dispatch(context.Background(), []byte(`{"species":"dog","pet_id":"p1"}`))
	require.Error(t, r.Err)
	assert.Equal(t, ErrorResponse{Error: "Request timed out after 20ms"}, r.Body)

	// let the abandoned computation finish
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, svc.Close(context.Background()))

	assert.Equal(t, 0, pub.total())
	assert.Equal(t, 0, store.Len())
}
