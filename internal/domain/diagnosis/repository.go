package diagnosis

import (
	"context"
	"time"
)

// ReportStore keeps recently built reports so clients and the record-keeping
// application can fetch them by id after the response was sent
type ReportStore interface {
	Save(ctx context.Context, report *ClinicalReport, ttl time.Duration) error
	Get(ctx context.Context, reportID string) (*ClinicalReport, error)
}
