package store

import (
	"context"
	"errors"
	"time"

	"invplan-backend/internal/logger"
	"invplan-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SnapshotRepo interface {
	// Upsert inserts the (ean, date) row or overwrites its derived fields.
	Upsert(ctx context.Context, snap *models.PlanningSnapshot) error
	Get(ctx context.Context, ean string, date time.Time) (*models.PlanningSnapshot, error)
	ListByDate(ctx context.Context, date time.Time) ([]models.PlanningSnapshot, error)
	LatestDate(ctx context.Context) (time.Time, bool, error)
}

type snapshotRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSnapshotRepo(db *gorm.DB, baseLog *logger.Logger) SnapshotRepo {
	return &snapshotRepo{db: db, log: baseLog.With("repo", "SnapshotRepo")}
}

func (r *snapshotRepo) Upsert(ctx context.Context, snap *models.PlanningSnapshot) error {
	snap.SnapshotDate = DateOnly(snap.SnapshotDate)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ean_code"}, {Name: "snapshot_date"}},
			DoUpdates: clause.AssignmentColumns(models.SnapshotDerivedColumns),
		}).
		Create(snap).Error
}

func (r *snapshotRepo) Get(ctx context.Context, ean string, date time.Time) (*models.PlanningSnapshot, error) {
	var snap models.PlanningSnapshot
	err := r.db.WithContext(ctx).
		Where("ean_code = ? AND snapshot_date = ?", ean, DateOnly(date)).
		Take(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *snapshotRepo) ListByDate(ctx context.Context, date time.Time) ([]models.PlanningSnapshot, error) {
	var rows []models.PlanningSnapshot
	err := r.db.WithContext(ctx).
		Where("snapshot_date = ?", DateOnly(date)).
		Order("ean_code ASC").
		Find(&rows).Error
	return rows, err
}

func (r *snapshotRepo) LatestDate(ctx context.Context) (time.Time, bool, error) {
	var dates []time.Time
	err := r.db.WithContext(ctx).
		Model(&models.PlanningSnapshot{}).
		Order("snapshot_date DESC").
		Limit(1).
		Pluck("snapshot_date", &dates).Error
	if err != nil {
		return time.Time{}, false, err
	}
	if len(dates) == 0 {
		return time.Time{}, false, nil
	}
	return DateOnly(dates[0]), true, nil
}

// DateOnly truncates t to midnight UTC of its calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
