package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"invplan-backend/internal/logger"
	"invplan-backend/internal/models"

	"gorm.io/gorm"
)

// RunEntry describes one finished pipeline phase.
type RunEntry struct {
	RunID    string
	Phase    models.SyncPhase
	Source   string
	Trigger  string
	Status   models.SyncStatus
	Fetched  int
	Updated  int
	Forked   int
	Inserted int
	Skipped  int
	Failed   int
	Err      error
	Detail   any
	Started  time.Time
	Finished time.Time
}

// RunFilter narrows List. Zero fields match everything.
type RunFilter struct {
	RunID  string
	Phase  string
	Source string
	Status string
	Limit  int
}

// Recorder persists the run history.
type Recorder struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRecorder(db *gorm.DB, baseLog *logger.Logger) *Recorder {
	return &Recorder{db: db, log: baseLog.With("component", "AuditRecorder")}
}

func (r *Recorder) Record(ctx context.Context, e RunEntry) error {
	detail := "null"
	if e.Detail != nil {
		if b, err := json.Marshal(e.Detail); err == nil {
			detail = string(b)
		}
	}
	if e.Finished.IsZero() {
		e.Finished = time.Now().UTC()
	}

	row := models.SyncRun{
		RunID:      e.RunID,
		Phase:      e.Phase,
		Source:     e.Source,
		Trigger:    e.Trigger,
		Status:     e.Status,
		Fetched:    e.Fetched,
		Updated:    e.Updated,
		Forked:     e.Forked,
		Inserted:   e.Inserted,
		Skipped:    e.Skipped,
		Failed:     e.Failed,
		Detail:     detail,
		StartedAt:  e.Started.UTC(),
		FinishedAt: e.Finished.UTC(),
		DurationMS: e.Finished.Sub(e.Started).Milliseconds(),
	}
	if e.Err != nil {
		row.Error = truncate(e.Err.Error(), 1000)
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		r.log.Error("sync run not recorded", "run_id", e.RunID, "phase", e.Phase, "error", err)
		return fmt.Errorf("record sync run: %w", err)
	}
	return nil
}

// List returns the newest runs first.
func (r *Recorder) List(ctx context.Context, f RunFilter) ([]models.SyncRun, error) {
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	q := r.db.WithContext(ctx).Model(&models.SyncRun{})
	if f.RunID != "" {
		q = q.Where("run_id = ?", f.RunID)
	}
	if f.Phase != "" {
		q = q.Where("phase = ?", f.Phase)
	}
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	var rows []models.SyncRun
	if err := q.Order("started_at DESC").Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
