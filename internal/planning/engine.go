package planning

import (
	"context"
	"fmt"
	"time"

	"invplan-backend/internal/logger"
	"invplan-backend/internal/metrics"
	"invplan-backend/internal/models"
	"invplan-backend/internal/store"
)

// BuildResult reports how many EANs were written and how many failed.
type BuildResult struct {
	Date      time.Time `json:"date"`
	Processed int       `json:"processed"`
	Failed    int       `json:"failed"`
	// Systemic is set when the build stopped early because the store
	// became unreachable.
	Systemic error `json:"-"`
}

type Engine struct {
	facts     store.FactRepo
	upcoming  store.UpcomingRepo
	snapshots store.SnapshotRepo
	policy    Policy
	log       *logger.Logger
}

func NewEngine(facts store.FactRepo, upcoming store.UpcomingRepo, snapshots store.SnapshotRepo, policy Policy, baseLog *logger.Logger) *Engine {
	return &Engine{
		facts:     facts,
		upcoming:  upcoming,
		snapshots: snapshots,
		policy:    policy,
		log:       baseLog.With("component", "SnapshotEngine"),
	}
}

func (e *Engine) Policy() Policy { return e.policy }

// BuildDailySnapshot writes one snapshot row per EAN for date, or only for
// ean when it is not empty. Rebuilding a date overwrites its rows.
func (e *Engine) BuildDailySnapshot(ctx context.Context, date time.Time, ean string) (BuildResult, error) {
	res := BuildResult{Date: store.DateOnly(date)}

	rows, err := e.facts.LatestPerEAN(ctx, ean)
	if err != nil {
		return res, fmt.Errorf("load latest facts: %w", err)
	}

	for i := range rows {
		if err := ctx.Err(); err != nil {
			res.Systemic = err
			break
		}
		row := &rows[i]
		if err := e.buildOne(ctx, res.Date, row); err != nil {
			res.Failed++
			metrics.SnapshotRows.WithLabelValues("failed").Inc()
			e.log.Warn("snapshot failed", "ean", row.EANCode, "error", err)
			if store.IsSystemic(err) {
				res.Systemic = err
				break
			}
			continue
		}
		res.Processed++
		metrics.SnapshotRows.WithLabelValues("written").Inc()
	}

	e.log.Info("snapshot finished",
		"date", res.Date.Format("2006-01-02"),
		"processed", res.Processed,
		"failed", res.Failed,
	)
	return res, nil
}

func (e *Engine) buildOne(ctx context.Context, date time.Time, row *models.SKUFact) error {
	pending, err := e.upcoming.Pending(ctx, row.EANCode)
	if err != nil {
		return fmt.Errorf("upcoming stock: %w", err)
	}
	snap := e.Snapshot(row, pending.Upcoming, date)
	if err := e.snapshots.Upsert(ctx, snap); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}
	return nil
}

// Snapshot derives the snapshot row for one fact version without writing it.
func (e *Engine) Snapshot(row *models.SKUFact, upcoming float64, date time.Time) *models.PlanningSnapshot {
	in := InputsFromFact(row, upcoming)
	out := Classify(in, e.policy)
	return &models.PlanningSnapshot{
		EANCode:           row.EANCode,
		SnapshotDate:      store.DateOnly(date),
		Brand:             row.Brand,
		VendorName:        row.VendorName,
		Category:          row.Category,
		Location:          row.SwiggyCity,
		ProductTitle:      row.ProductTitle,
		COGS:              row.COGS,
		DRR30d:            in.DRR30d,
		LeadTimeDays:      in.LeadTimeDays,
		SafetyStockDays:   e.policy.SafetyStockDays,
		CurrentStock:      in.CurrentStock,
		InTransitStock:    in.InTransitStock,
		UpcomingStock:     in.UpcomingStock,
		ReorderLevel:      out.ReorderLevel,
		POIntentUnits:     out.POIntentUnits,
		DaysOfCover:       out.DaysOfCover,
		DaysOfCoverWithPO: out.DaysOfCoverWithPO,
		InventoryStatus:   out.Status,
	}
}
