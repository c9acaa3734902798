package memory

import (
	"context"
	"sync"
	"time"

	"vetml/internal/domain/diagnosis"
	"vetml/internal/metrics"
	"vetml/pkg/errors"
)

const backend = "memory"

type storedReport struct {
	report    *diagnosis.ClinicalReport
	expiresAt time.Time
}

// ReportRepository keeps reports in process memory.
// Expired entries are dropped lazily on access and by Sweep.
type ReportRepository struct {
	mu      sync.RWMutex
	reports map[string]storedReport
	now     func() time.Time
}

// NewReportRepository creates an empty in-memory store
func NewReportRepository() *ReportRepository {
	return &ReportRepository{
		reports: make(map[string]storedReport),
		now:     time.Now,
	}
}

// Save stores a report. A zero ttl keeps it until the process exits.
func (r *ReportRepository) Save(_ context.Context, report *diagnosis.ClinicalReport, ttl time.Duration) error {
	if report == nil || report.ReportID == "" {
		metrics.RecordReportStoreOp(backend, "save", "error")
		return errors.Wrap(errors.ErrInvalidInput, "report id required")
	}

	var expires time.Time
	if ttl > 0 {
		expires = r.now().Add(ttl)
	}

	r.mu.Lock()
	r.reports[report.ReportID] = storedReport{report: report, expiresAt: expires}
	r.mu.Unlock()

	metrics.RecordReportStoreOp(backend, "save", "ok")
	return nil
}

// Get returns a stored report or ErrNotFound
func (r *ReportRepository) Get(_ context.Context, reportID string) (*diagnosis.ClinicalReport, error) {
	r.mu.RLock()
	stored, ok := r.reports[reportID]
	r.mu.RUnlock()

	if ok && r.expired(stored) {
		r.mu.Lock()
		delete(r.reports, reportID)
		r.mu.Unlock()
		ok = false
	}
	if !ok {
		metrics.RecordReportStoreOp(backend, "get", "not_found")
		return nil, errors.Wrapf(errors.ErrNotFound, "report not found: report_id=%s", reportID)
	}

	metrics.RecordReportStoreOp(backend, "get", "ok")
	return stored.report, nil
}

// Sweep removes expired reports and returns how many were dropped
func (r *ReportRepository) Sweep() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	dropped := 0
	for id, stored := range r.reports {
		if r.expired(stored) {
			delete(r.reports, id)
			dropped++
		}
	}
	return dropped
}

// Len returns the number of stored reports, expired ones included
func (r *ReportRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.reports)
}

func (r *ReportRepository) expired(s storedReport) bool {
	return !s.expiresAt.IsZero() && !r.now().Before(s.expiresAt)
}

var _ diagnosis.ReportStore = (*ReportRepository)(nil)
