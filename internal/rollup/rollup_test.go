package rollup

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"invplan-backend/internal/logger"
	"invplan-backend/internal/models"
	"invplan-backend/internal/store/memory"
	"invplan-backend/internal/velocity"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func seed(t *testing.T, repo *memory.FactRepo, ean string, age time.Duration, mutate func(*models.SKUFact)) {
	t.Helper()
	row := &models.SKUFact{EANCode: ean, CreatedAt: now.Add(-age)}
	mutate(row)
	if err := repo.Insert(context.Background(), row); err != nil {
		t.Fatalf("insert: %v", err)
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func newService(repo *memory.FactRepo) *Service {
	calc := velocity.NewCalculator(repo).WithClock(func() time.Time { return now })
	return New(repo, calc, []int{7, 15, 30}, logger.Nop())
}

func TestRunRecomputesTotalsAndRollingSpeeds(t *testing.T) {
	repo := memory.NewFactRepo()
	seed(t, repo, "e1", 10*24*time.Hour, func(f *models.SKUFact) { f.WarehouseTotalStock = 70 })
	seed(t, repo, "e1", 3*24*time.Hour, func(f *models.SKUFact) { f.WarehouseTotalStock = 14; f.QuickCommTotalStock = 7 })
	seed(t, repo, "e1", time.Hour, func(f *models.SKUFact) {
		f.IncreffUnits = 21
		f.SwiggyStock = 7
		f.DRR = 3
		f.COGS = 2
		f.WarehouseTotalStock = 999 // stale
	})

	res, err := newService(repo).Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Processed != 1 || res.Failed != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	versions := repo.Versions("e1")
	latest := versions[len(versions)-1]
	if latest.WarehouseTotalStock != 21 || latest.QuickCommTotalStock != 7 || latest.TotalStock != 28 {
		t.Fatalf("totals not recomputed: wh=%v qc=%v total=%v",
			latest.WarehouseTotalStock, latest.QuickCommTotalStock, latest.TotalStock)
	}
	if latest.WarehouseTotalDaysOfCover != 7 || latest.TotalCOGSValue != 56 {
		t.Fatalf("cover=%v cogs=%v", latest.WarehouseTotalDaysOfCover, latest.TotalCOGSValue)
	}

	// 7d sees 14+21, 15d and 30d also see the 70 row.
	if !near(latest.WarehouseSpeed7d, 5) || !near(latest.WarehouseSpeed15d, 7) || !near(latest.WarehouseSpeed30d, 3.5) {
		t.Fatalf("warehouse speeds %v %v %v", latest.WarehouseSpeed7d, latest.WarehouseSpeed15d, latest.WarehouseSpeed30d)
	}
	if !near(latest.QuickCommSpeed7d, 2) || !near(latest.QuickCommSpeed15d, 14.0/15) {
		t.Fatalf("quick-comm speeds %v %v", latest.QuickCommSpeed7d, latest.QuickCommSpeed15d)
	}

	// older versions keep their stored values
	if versions[0].WarehouseTotalStock != 70 || versions[0].WarehouseSpeed7d != 0 {
		t.Fatalf("older version touched: %+v", versions[0].SKUMetrics)
	}
}

func TestRunFilterAndRecordFailure(t *testing.T) {
	repo := memory.NewFactRepo()
	seed(t, repo, "a", time.Hour, func(f *models.SKUFact) { f.IncreffUnits = 1 })
	seed(t, repo, "b", time.Hour, func(f *models.SKUFact) { f.IncreffUnits = 2 })
	seed(t, repo, "c", time.Hour, func(f *models.SKUFact) { f.IncreffUnits = 3 })
	repo.FailOn = map[string]error{"b": errors.New("value out of range")}

	res, err := newService(repo).Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Processed != 2 || res.Failed != 1 || res.Systemic != nil {
		t.Fatalf("unexpected result %+v", res)
	}

	only, err := newService(repo).Run(context.Background(), "c")
	if err != nil || only.Processed != 1 {
		t.Fatalf("filtered run %+v %v", only, err)
	}
}

func TestRunStopsOnSystemicFailure(t *testing.T) {
	repo := memory.NewFactRepo()
	seed(t, repo, "a", time.Hour, func(f *models.SKUFact) {})
	seed(t, repo, "b", time.Hour, func(f *models.SKUFact) {})
	repo.FailOn = map[string]error{"a": errors.New("dial tcp 10.0.0.1:5432: connection refused")}

	res, err := newService(repo).Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Systemic == nil || res.Processed != 0 || res.Failed != 1 {
		t.Fatalf("want stop after first systemic failure, got %+v", res)
	}
}

func TestRunRejectsWrongWindowCount(t *testing.T) {
	repo := memory.NewFactRepo()
	calc := velocity.NewCalculator(repo)
	if _, err := New(repo, calc, []int{7, 30}, logger.Nop()).Run(context.Background(), ""); err == nil {
		t.Fatal("two windows must be rejected")
	}
}
