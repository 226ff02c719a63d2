package report

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"invplan-backend/internal/logger"
	"invplan-backend/internal/models"
	"invplan-backend/internal/planning"
	"invplan-backend/internal/store/memory"
)

type mapCache struct {
	data map[string][]byte
	gets int
	hits int
}

func (c *mapCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.gets++
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(b, dst)
}

func (c *mapCache) Set(_ context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

func (c *mapCache) Invalidate(context.Context) error {
	c.data = map[string][]byte{}
	return nil
}

var day = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

type fixture struct {
	facts *memory.FactRepo
	snaps *memory.SnapshotRepo
	up    *memory.UpcomingRepo
	cache *mapCache
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		facts: memory.NewFactRepo(),
		snaps: memory.NewSnapshotRepo(),
		up:    memory.NewUpcomingRepo(),
		cache: &mapCache{data: map[string][]byte{}},
	}
	f.svc = NewService(f.facts, f.snaps, f.up, planning.DefaultPolicy(), f.cache, logger.Nop())
	return f
}

func (f *fixture) snap(t *testing.T, date time.Time, ean, brand, vendor string, status models.InventoryStatus, cover, current float64) {
	t.Helper()
	err := f.snaps.Upsert(context.Background(), &models.PlanningSnapshot{
		EANCode:         ean,
		SnapshotDate:    date,
		Brand:           brand,
		VendorName:      vendor,
		Category:        "Skincare",
		Location:        "Mumbai",
		CurrentStock:    current,
		InTransitStock:  10,
		UpcomingStock:   5,
		POIntentUnits:   100,
		DaysOfCover:     cover,
		InventoryStatus: status,
	})
	if err != nil {
		t.Fatalf("upsert snapshot: %v", err)
	}
}

func TestPlanningWithoutSnapshots(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Planning(context.Background(), Query{}); !errors.Is(err, ErrNoSnapshot) {
		t.Fatalf("want ErrNoSnapshot, got %v", err)
	}
}

func TestPlanningSummaryOrderingAndFilters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.snap(t, day.AddDate(0, 0, -1), "1", "Acme", "V1", models.StatusOverStock, 100, 50)
	f.snap(t, day, "1", "Acme", "V1", models.StatusOverStock, 90, 500)
	f.snap(t, day, "2", "Acme", "", models.StatusPORequired, 5, 20)
	f.snap(t, day, "3", "Acme", "V2", models.StatusLowStock, 20, 30)
	f.snap(t, day, "4", "Other", "V1", models.StatusLowStock, 10, 40)

	fact := &models.SKUFact{EANCode: "1", CreatedAt: day}
	fact.TotalCOGSValue = 1234.567
	fact.SwiggyDRR30d = 2
	fact.ZeptoDRR30d = 3
	fact.FBAUnits, fact.FBABundledUnits = 7, 1
	if err := f.facts.Insert(ctx, fact); err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.Planning(ctx, Query{Brand: "acme"})
	if err != nil {
		t.Fatalf("planning: %v", err)
	}
	if got.SnapshotDate != "2026-03-10" {
		t.Fatalf("snapshot date: %s", got.SnapshotDate)
	}

	s := got.Summary
	if s.CurrentStock != 550 || s.InTransit != 30 || s.UpcomingStock != 15 || s.TotalStock != 595 {
		t.Fatalf("stock totals: %+v", s)
	}
	if s.OverInventory != 500 || s.StockAlert != 1 || s.PORequired != 1 || s.TotalPOIntentUnits != 100 {
		t.Fatalf("status totals: %+v", s)
	}
	if s.AvgDaysCover != 38.33 {
		t.Fatalf("avg days cover: %v", s.AvgDaysCover)
	}
	if s.InventoryCOGS != 1234.57 {
		t.Fatalf("inventory cogs: %v", s.InventoryCOGS)
	}
	if got.QuickCommerceSpeed.Total != 5 || got.Distribution.FBA != 8 {
		t.Fatalf("channels: %+v %+v", got.QuickCommerceSpeed, got.Distribution)
	}

	wantOrder := []string{"3", "2", "1"}
	if len(got.Rows) != len(wantOrder) {
		t.Fatalf("rows: %d", len(got.Rows))
	}
	for i, ean := range wantOrder {
		if got.Rows[i].EANCode != ean {
			t.Fatalf("row %d: want %s got %s", i, ean, got.Rows[i].EANCode)
		}
	}

	// The brand list ignores the brand filter; vendors honour it.
	if len(got.Filters.Brands) != 2 {
		t.Fatalf("brands: %v", got.Filters.Brands)
	}
	wantVendors := []string{"No Vendor", "V1", "V2"}
	if len(got.Filters.Vendors) != 3 {
		t.Fatalf("vendors: %v", got.Filters.Vendors)
	}
	for i := range wantVendors {
		if got.Filters.Vendors[i] != wantVendors[i] {
			t.Fatalf("vendors: %v", got.Filters.Vendors)
		}
	}

	if len(got.DaysCoverTrend) != 2 || got.DaysCoverTrend[0].Date != "2026-03-09" || got.DaysCoverTrend[1].AvgDaysCover != 31.25 {
		t.Fatalf("trend: %+v", got.DaysCoverTrend)
	}

	noVendorRows, err := f.svc.Planning(ctx, Query{Vendor: "No Vendor"})
	if err != nil {
		t.Fatal(err)
	}
	if noVendorRows.Pagination.Total != 1 || noVendorRows.Rows[0].EANCode != "2" {
		t.Fatalf("no vendor filter: %+v", noVendorRows.Pagination)
	}
}

func TestPlanningPaginationAndCache(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i, ean := range []string{"a", "b", "c", "d", "e"} {
		f.snap(t, day, ean, "Acme", "V", models.StatusOverStock, float64(i), 1)
	}

	got, err := f.svc.Planning(ctx, Query{Page: 2, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	p := got.Pagination
	if p.Total != 5 || p.TotalPages != 3 || p.Returned != 2 || got.Rows[0].EANCode != "c" {
		t.Fatalf("page 2: %+v first=%s", p, got.Rows[0].EANCode)
	}

	last, err := f.svc.Planning(ctx, Query{Page: 9, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if last.Pagination.Returned != 0 {
		t.Fatalf("past the end: %+v", last.Pagination)
	}

	def, err := f.svc.Planning(ctx, Query{})
	if err != nil {
		t.Fatal(err)
	}
	if def.Pagination.Limit != 15 || def.Pagination.Page != 1 {
		t.Fatalf("defaults: %+v", def.Pagination)
	}

	again, err := f.svc.Planning(ctx, Query{Page: 2, Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if f.cache.hits != 1 || again.Rows[0].EANCode != "c" {
		t.Fatalf("cache hits=%d", f.cache.hits)
	}
}

func TestInfo(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	if _, err := f.svc.Info(ctx, "8901"); !errors.Is(err, ErrNoFact) {
		t.Fatalf("want ErrNoFact, got %v", err)
	}

	fact := &models.SKUFact{EANCode: "8901", CreatedAt: day}
	fact.LeadTimeDays = 5
	fact.IncreffUnits = 400
	fact.DRR = 6
	fact.ZeptoDRR30d = 4
	if err := f.facts.Insert(ctx, fact); err != nil {
		t.Fatal(err)
	}
	if _, err := f.up.Ingest(ctx, []models.UpcomingStock{
		{EAN: "8901", SourceRecordID: "r1", ExternalOrderCode: "PO-MAIN-1", OrderQuantity: 100, InTransitQuantity: 3, BatchDate: day},
	}); err != nil {
		t.Fatal(err)
	}

	got, err := f.svc.Info(ctx, " 8901 ")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	if got.DRR30d != 10 || got.ReorderLevel != 450 || got.UpcomingStock != 100 {
		t.Fatalf("info: %+v", got)
	}
	if got.Status != models.StatusLowStock || got.SafetyStockDays != 40 || got.StagedInTransit != 3 {
		t.Fatalf("info status: %+v", got)
	}
}
