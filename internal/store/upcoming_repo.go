package store

import (
	"context"
	"strings"
	"time"

	"invplan-backend/internal/logger"
	"invplan-backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Pending holds net pending quantities of one EAN's latest order batch.
type Pending struct {
	BatchDate time.Time
	Upcoming  float64
	InTransit float64
}

type UpcomingRepo interface {
	// Ingest stores rows not seen before, keyed on (ean, source_record_id),
	// and returns how many were new.
	Ingest(ctx context.Context, rows []models.UpcomingStock) (int64, error)
	// Pending nets the latest batch of an EAN. No rows yields a zero value.
	Pending(ctx context.Context, ean string) (Pending, error)
}

type upcomingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUpcomingRepo(db *gorm.DB, baseLog *logger.Logger) UpcomingRepo {
	return &upcomingRepo{db: db, log: baseLog.With("repo", "UpcomingRepo")}
}

func (r *upcomingRepo) Ingest(ctx context.Context, rows []models.UpcomingStock) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	for i := range rows {
		rows[i].BatchDate = DateOnly(rows[i].BatchDate)
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ean"}, {Name: "source_record_id"}},
			DoNothing: true,
		}).
		CreateInBatches(rows, 500)
	return res.RowsAffected, res.Error
}

func (r *upcomingRepo) Pending(ctx context.Context, ean string) (Pending, error) {
	var dates []time.Time
	err := r.db.WithContext(ctx).
		Model(&models.UpcomingStock{}).
		Where("ean = ?", ean).
		Order("batch_date DESC").
		Limit(1).
		Pluck("batch_date", &dates).Error
	if err != nil || len(dates) == 0 {
		return Pending{}, err
	}

	var rows []models.UpcomingStock
	if err := r.db.WithContext(ctx).
		Where("ean = ? AND batch_date = ?", ean, DateOnly(dates[0])).
		Find(&rows).Error; err != nil {
		return Pending{}, err
	}
	return NetPending(rows), nil
}

// NetPending adds order quantities of "main" orders, subtracts those of
// "sub" orders (order codes matched case-insensitively) and floors the
// result at zero.
func NetPending(rows []models.UpcomingStock) Pending {
	var p Pending
	var mainQty, subQty float64
	for _, row := range rows {
		code := strings.ToLower(row.ExternalOrderCode)
		if strings.Contains(code, "main") {
			mainQty += row.OrderQuantity
		}
		if strings.Contains(code, "sub") {
			subQty += row.OrderQuantity
		}
		p.InTransit += row.InTransitQuantity
		if row.BatchDate.After(p.BatchDate) {
			p.BatchDate = DateOnly(row.BatchDate)
		}
	}
	p.Upcoming = mainQty - subQty
	if p.Upcoming < 0 {
		p.Upcoming = 0
	}
	return p
}
