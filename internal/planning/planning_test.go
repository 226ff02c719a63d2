package planning

import (
	"context"
	"errors"
	"testing"
	"time"

	"invplan-backend/internal/logger"
	"invplan-backend/internal/models"
	"invplan-backend/internal/store/memory"
)

func TestClassifyBoundaries(t *testing.T) {
	p := DefaultPolicy()
	testCases := []struct {
		name       string
		in         Inputs
		wantStatus models.InventoryStatus
	}{
		{"over stock", Inputs{DRR30d: 10, LeadTimeDays: 5, CurrentStock: 500}, models.StatusOverStock},
		{"low stock without orders is po required", Inputs{DRR30d: 10, LeadTimeDays: 5, CurrentStock: 400}, models.StatusPORequired},
		{"low stock rescued by orders", Inputs{DRR30d: 10, LeadTimeDays: 5, CurrentStock: 400, UpcomingStock: 100}, models.StatusLowStock},
		{"orders not enough", Inputs{DRR30d: 10, LeadTimeDays: 5, CurrentStock: 400, UpcomingStock: 50}, models.StatusPORequired},
		{"exactly at reorder level", Inputs{DRR30d: 10, LeadTimeDays: 5, CurrentStock: 300, InTransitStock: 150}, models.StatusPORequired},
		{"in transit counts as available", Inputs{DRR30d: 10, LeadTimeDays: 5, CurrentStock: 300, InTransitStock: 151}, models.StatusOverStock},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.in, p)
			if got.ReorderLevel != 450 {
				t.Fatalf("reorder level want=450 got=%v", got.ReorderLevel)
			}
			if got.Status != tc.wantStatus {
				t.Fatalf("status want=%s got=%s", tc.wantStatus, got.Status)
			}
		})
	}
}

func TestClassifyDerivedValues(t *testing.T) {
	got := Classify(Inputs{DRR30d: 3, LeadTimeDays: 7, CurrentStock: 100, InTransitStock: 10, UpcomingStock: 50}, DefaultPolicy())
	if got.POIntentUnits != 66 {
		t.Fatalf("po intent want=ceil(3*22)=66 got=%v", got.POIntentUnits)
	}
	if got.DaysOfCover != 36.67 {
		t.Fatalf("days of cover want=36.67 got=%v", got.DaysOfCover)
	}
	if got.DaysOfCoverWithPO != 53.33 {
		t.Fatalf("days of cover with po want=53.33 got=%v", got.DaysOfCoverWithPO)
	}

	frac := Classify(Inputs{DRR30d: 1.1, LeadTimeDays: 5}, DefaultPolicy())
	if frac.POIntentUnits != 22 {
		t.Fatalf("po intent want=ceil(22.0)=22 got=%v", frac.POIntentUnits)
	}
}

func TestClassifyZeroDRR(t *testing.T) {
	got := Classify(Inputs{DRR30d: 0, LeadTimeDays: 10, CurrentStock: 900, InTransitStock: 50, UpcomingStock: 20}, DefaultPolicy())
	if got.DaysOfCover != 0 || got.DaysOfCoverWithPO != 0 {
		t.Fatalf("zero drr must give zero cover, got=%v/%v", got.DaysOfCover, got.DaysOfCoverWithPO)
	}
	if got.ReorderLevel != 0 || got.Status != models.StatusOverStock {
		t.Fatalf("unexpected result %+v", got)
	}
	if empty := Classify(Inputs{}, DefaultPolicy()); empty.Status != models.StatusPORequired {
		t.Fatalf("no stock and no demand sits at the reorder level, got=%s", empty.Status)
	}
}

func factRow(ean string, at time.Time) *models.SKUFact {
	f := &models.SKUFact{EANCode: ean, CreatedAt: at}
	f.Brand = "Acme"
	f.LeadTimeDays = 5
	f.IncreffUnits = 300
	f.SwiggyStock = 100
	f.DRR = 6
	f.SwiggyDRR30d = 4
	f.VendorToFBA = 40
	f.PCToFBF = 10
	// stale stored totals must not be used
	f.WarehouseTotalSpeed = 999
	f.TotalStock = 1
	return f
}

func newEngine(facts *memory.FactRepo, upcoming *memory.UpcomingRepo, snaps *memory.SnapshotRepo) *Engine {
	return NewEngine(facts, upcoming, snaps, DefaultPolicy(), logger.Nop())
}

func TestBuildDailySnapshot(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	facts := memory.NewFactRepo()
	upcoming := memory.NewUpcomingRepo()
	snaps := memory.NewSnapshotRepo()

	old := factRow("e1", now.Add(-48*time.Hour))
	old.IncreffUnits = 5000
	_ = facts.Insert(ctx, old)
	_ = facts.Insert(ctx, factRow("e1", now.Add(-time.Hour)))
	_ = facts.Insert(ctx, factRow("e2", now.Add(-time.Hour)))
	_, _ = upcoming.Ingest(ctx, []models.UpcomingStock{
		{EAN: "e1", SourceRecordID: "1", ExternalOrderCode: "x-main", OrderQuantity: 80, BatchDate: now},
		{EAN: "e1", SourceRecordID: "2", ExternalOrderCode: "x-sub", OrderQuantity: 30, BatchDate: now},
	})

	res, err := newEngine(facts, upcoming, snaps).BuildDailySnapshot(ctx, now, "")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.Processed != 2 || res.Failed != 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	snap, _ := snaps.Get(ctx, "e1", now)
	if snap == nil {
		t.Fatalf("snapshot missing")
	}
	if snap.DRR30d != 10 || snap.CurrentStock != 400 || snap.InTransitStock != 50 || snap.UpcomingStock != 50 {
		t.Fatalf("inputs: drr=%v current=%v transit=%v upcoming=%v", snap.DRR30d, snap.CurrentStock, snap.InTransitStock, snap.UpcomingStock)
	}
	if snap.ReorderLevel != 450 || snap.InventoryStatus != models.StatusLowStock {
		t.Fatalf("classification: reorder=%v status=%s", snap.ReorderLevel, snap.InventoryStatus)
	}
	if snap.SafetyStockDays != 40 || snap.Brand != "Acme" {
		t.Fatalf("copied fields: %+v", snap)
	}
}

func TestBuildDailySnapshotIsIdempotent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	facts := memory.NewFactRepo()
	snaps := memory.NewSnapshotRepo()
	_ = facts.Insert(ctx, factRow("e1", now))
	engine := newEngine(facts, memory.NewUpcomingRepo(), snaps)

	if _, err := engine.BuildDailySnapshot(ctx, now, ""); err != nil {
		t.Fatalf("first build: %v", err)
	}
	first, _ := snaps.Get(ctx, "e1", now)
	if _, err := engine.BuildDailySnapshot(ctx, now.Add(3*time.Hour), ""); err != nil {
		t.Fatalf("second build: %v", err)
	}
	second, _ := snaps.Get(ctx, "e1", now)

	rows, _ := snaps.ListByDate(ctx, now)
	if len(rows) != 1 {
		t.Fatalf("want one row per ean and date got=%d", len(rows))
	}
	first.UpdatedAt, second.UpdatedAt = time.Time{}, time.Time{}
	if *first != *second {
		t.Fatalf("derived fields changed:\n%+v\n%+v", first, second)
	}
}

func TestBuildDailySnapshotFilterAndFailures(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC()
	facts := memory.NewFactRepo()
	snaps := memory.NewSnapshotRepo()
	for _, ean := range []string{"a", "b", "c"} {
		_ = facts.Insert(ctx, factRow(ean, now))
	}
	engine := newEngine(facts, memory.NewUpcomingRepo(), snaps)

	res, err := engine.BuildDailySnapshot(ctx, now, "b")
	if err != nil || res.Processed != 1 {
		t.Fatalf("filtered build: %+v %v", res, err)
	}

	snaps.FailOn = map[string]error{"b": errors.New("value too long for column")}
	res, err = engine.BuildDailySnapshot(ctx, now, "")
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if res.Processed != 2 || res.Failed != 1 || res.Systemic != nil {
		t.Fatalf("want partial success, got %+v", res)
	}
}
