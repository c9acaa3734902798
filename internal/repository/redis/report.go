package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"vetml/internal/domain/diagnosis"
	"vetml/internal/metrics"
	"vetml/pkg/errors"
)

const backend = "redis"

// ReportRepository implements diagnosis.ReportStore using Redis
type ReportRepository struct {
	client *redis.Client
	prefix string
}

// NewReportRepository creates a new report repository
func NewReportRepository(client *redis.Client, prefix string) *ReportRepository {
	return &ReportRepository{
		client: client,
		prefix: prefix,
	}
}

// Save stores a report under its id with TTL
func (r *ReportRepository) Save(ctx context.Context, report *diagnosis.ClinicalReport, ttl time.Duration) error {
	data, err := json.Marshal(report)
	if err != nil {
		metrics.RecordReportStoreOp(backend, "save", "error")
		return errors.Wrapf(err, "failed to marshal report: report_id=%s", report.ReportID)
	}

	if err := r.client.Set(ctx, r.key(report.ReportID), data, ttl).Err(); err != nil {
		metrics.RecordReportStoreOp(backend, "save", "error")
		return errors.Wrapf(err, "failed to save report to redis: report_id=%s", report.ReportID)
	}

	metrics.RecordReportStoreOp(backend, "save", "ok")
	return nil
}

// Get retrieves a report by id
func (r *ReportRepository) Get(ctx context.Context, reportID string) (*diagnosis.ClinicalReport, error) {
	data, err := r.client.Get(ctx, r.key(reportID)).Bytes()
	if err == redis.Nil {
		metrics.RecordReportStoreOp(backend, "get", "not_found")
		return nil, errors.Wrapf(errors.ErrNotFound, "report not found: report_id=%s", reportID)
	}
	if err != nil {
		metrics.RecordReportStoreOp(backend, "get", "error")
		return nil, errors.Wrapf(err, "failed to get report from redis: report_id=%s", reportID)
	}

	var report diagnosis.ClinicalReport
	if err := json.Unmarshal(data, &report); err != nil {
		metrics.RecordReportStoreOp(backend, "get", "error")
		return nil, errors.Wrapf(err, "failed to unmarshal report: report_id=%s", reportID)
	}

	metrics.RecordReportStoreOp(backend, "get", "ok")
	return &report, nil
}

func (r *ReportRepository) key(reportID string) string {
	return r.prefix + reportID
}

var _ diagnosis.ReportStore = (*ReportRepository)(nil)
