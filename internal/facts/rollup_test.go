package facts

import (
	"reflect"
	"testing"

	"invplan-backend/internal/models"
)

func TestRecompute(t *testing.T) {
	row := &models.SKUFact{EANCode: "890100"}
	row.COGS = 12.5
	m := &row.SKUMetrics
	m.IncreffUnits = 100
	m.PCUnits = 20
	m.AllocatedOnHold = 5
	m.BlinkitMarketplaceStock = 15
	m.FBAUnits = 10
	m.WebsiteDRR = 1
	m.FBADRR = 2
	m.BlinkitMarketplaceSpeed30d = 1.5
	m.MyntraDRR = 0.5
	m.ZeptoStock = 8
	m.SwiggyStock = 12
	m.ZeptoDRR30d = 1
	m.SwiggyDRR30d = 3

	Recompute(row)

	if m.WarehouseTotalStock != 150 {
		t.Fatalf("warehouse stock want=150 got=%v", m.WarehouseTotalStock)
	}
	if m.WarehouseTotalSpeed != 5 {
		t.Fatalf("warehouse speed want=5 got=%v", m.WarehouseTotalSpeed)
	}
	if m.WarehouseTotalDaysOfCover != 30 {
		t.Fatalf("warehouse cover want=30 got=%v", m.WarehouseTotalDaysOfCover)
	}
	if m.QuickCommTotalStock != 20 || m.QuickCommTotalSpeed != 4 {
		t.Fatalf("quick comm want=20/4 got=%v/%v", m.QuickCommTotalStock, m.QuickCommTotalSpeed)
	}
	if m.TotalStock != 170 || m.TotalSpeed != 9 {
		t.Fatalf("total want=170/9 got=%v/%v", m.TotalStock, m.TotalSpeed)
	}
	if m.TotalDaysOfCover != 18.89 {
		t.Fatalf("total cover want=18.89 got=%v", m.TotalDaysOfCover)
	}
	if m.TotalCOGSValue != 2125 {
		t.Fatalf("cogs value want=2125 got=%v", m.TotalCOGSValue)
	}
}

func TestDaysOfCoverZeroSpeed(t *testing.T) {
	for _, speed := range []float64{0, -1} {
		if got := DaysOfCover(500, speed); got != 0 {
			t.Fatalf("speed=%v want=0 got=%v", speed, got)
		}
	}
}

func TestInTransitSumsAllFlowColumns(t *testing.T) {
	m := &models.SKUMetrics{
		VendorIncreff: 1, VendorToPC: 2, VendorToFBA: 3, VendorToFBF: 4, VendorToKV: 5,
		PCToIncreff: 6, PCToFBA: 7, PCToFBF: 8, KVToFBA: 9, KVToFBF: 10,
	}
	if got := InTransit(m); got != 55 {
		t.Fatalf("want=55 got=%v", got)
	}
	if len(FlowColumns) != 10 {
		t.Fatalf("want 10 flow columns got=%d", len(FlowColumns))
	}
}

func TestForkKeepsDescriptors(t *testing.T) {
	prev := &models.SKUFact{ID: 7, EANCode: "e1"}
	prev.Brand = "Acme"
	prev.LeadTimeDays = 12
	prev.ZeptoStock = 4

	next := Fork(prev)
	if next.ID != 0 {
		t.Fatalf("fork must clear id, got=%d", next.ID)
	}
	if !reflect.DeepEqual(next.SKUDescriptor, prev.SKUDescriptor) {
		t.Fatalf("descriptors changed: %+v", next.SKUDescriptor)
	}
	next.ZeptoStock = 9
	if prev.ZeptoStock != 4 {
		t.Fatalf("fork must not alias the previous row")
	}
}

func TestWithTotalsDeduplicates(t *testing.T) {
	cols := WithTotals([]string{"zepto_stock", "total_stock"})
	if cols[0] != "zepto_stock" || cols[1] != "total_stock" {
		t.Fatalf("own columns must lead, got=%v", cols)
	}
	if len(cols) != 1+len(TotalColumns) {
		t.Fatalf("want=%d got=%d (%v)", 1+len(TotalColumns), len(cols), cols)
	}
}

func TestNormalizeEAN(t *testing.T) {
	if got := NormalizeEAN(" 8901234567890.0 "); got != "8901234567890" {
		t.Fatalf("got=%q", got)
	}
}
