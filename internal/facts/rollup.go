package facts

import (
	"invplan-backend/internal/models"
	"invplan-backend/internal/numeric"
)

// Flow column names in the order they are summed and reported.
var FlowColumns = []string{
	"vendor_increff",
	"vendor_to_pc",
	"vendor_to_fba",
	"vendor_to_fbf",
	"vendor_to_kv",
	"pc_to_increff",
	"pc_to_fba",
	"pc_to_fbf",
	"kv_to_fba",
	"kv_to_fbf",
}

// TotalColumns are rewritten by Recompute.
var TotalColumns = []string{
	"warehouse_total_stock",
	"warehouse_total_speed",
	"warehouse_total_days_of_cover",
	"quick_comm_total_stock",
	"quick_comm_total_speed",
	"quick_comm_total_days_of_cover",
	"total_stock",
	"total_speed",
	"total_days_of_cover",
	"total_cogs_value",
}

// RollingColumns are the short, medium and long window averages, paired
// with the configured rolling windows by position.
var RollingColumns = struct {
	Warehouse []string
	QuickComm []string
}{
	Warehouse: []string{"warehouse_speed_7_days", "warehouse_speed_15_days", "warehouse_speed_30_days"},
	QuickComm: []string{"quickcomm_speed_7_days", "quickcomm_speed_15_days", "quickcomm_speed_30_days"},
}

func WarehouseStock(m *models.SKUMetrics) float64 {
	return numeric.Sum(
		m.IncreffUnits,
		m.KVTUnits,
		m.PCUnits,
		m.AllocatedOnHold,
		m.AllocatedOnHoldPCUnits,
		m.BlinkitMarketplaceStock,
		m.FBAUnits,
		m.FBABundledUnits,
		m.FBFUnits,
		m.FBFBundledUnits,
		m.MyntraUnits,
		m.MyntraBundledUnits,
	)
}

func WarehouseSpeed(m *models.SKUMetrics) float64 {
	return numeric.Sum(
		m.WebsiteDRR,
		m.DRR,
		m.FBADRR,
		m.FBFDRR,
		m.BlinkitMarketplaceSpeed30d,
		m.MyntraDRR,
	)
}

func QuickCommStock(m *models.SKUMetrics) float64 {
	return numeric.Sum(m.ZeptoStock, m.BlinkitB2BStock, m.SwiggyStock)
}

// QuickCommSpeed uses each quick-commerce channel's 30 day demand rate.
func QuickCommSpeed(m *models.SKUMetrics) float64 {
	return numeric.Sum(m.ZeptoDRR30d, m.BlinkitB2BDRR30d, m.SwiggyDRR30d)
}

// InTransit is the sum of every directional transfer column.
func InTransit(m *models.SKUMetrics) float64 {
	return numeric.Sum(
		m.VendorIncreff,
		m.VendorToPC,
		m.VendorToFBA,
		m.VendorToFBF,
		m.VendorToKV,
		m.PCToIncreff,
		m.PCToFBA,
		m.PCToFBF,
		m.KVToFBA,
		m.KVToFBF,
	)
}

// DaysOfCover divides stock by speed, returning 0 when speed is not positive.
func DaysOfCover(stock, speed float64) float64 {
	if speed <= 0 {
		return 0
	}
	return numeric.Round2(stock / speed)
}

// Recompute refreshes every column in TotalColumns from the component
// columns of row.
func Recompute(row *models.SKUFact) {
	m := &row.SKUMetrics

	m.WarehouseTotalStock = WarehouseStock(m)
	m.WarehouseTotalSpeed = WarehouseSpeed(m)
	m.WarehouseTotalDaysOfCover = DaysOfCover(m.WarehouseTotalStock, m.WarehouseTotalSpeed)

	m.QuickCommTotalStock = QuickCommStock(m)
	m.QuickCommTotalSpeed = QuickCommSpeed(m)
	m.QuickCommTotalDaysOfCover = DaysOfCover(m.QuickCommTotalStock, m.QuickCommTotalSpeed)

	m.TotalStock = numeric.Sum(m.WarehouseTotalStock, m.QuickCommTotalStock)
	m.TotalSpeed = numeric.Sum(m.WarehouseTotalSpeed, m.QuickCommTotalSpeed)
	m.TotalDaysOfCover = DaysOfCover(m.TotalStock, m.TotalSpeed)
	m.TotalCOGSValue = numeric.Round2(m.TotalStock * numeric.ToNumber(row.COGS))
}

// WithTotals appends TotalColumns to a patch's own column list without
// duplicating entries.
func WithTotals(cols []string) []string {
	seen := make(map[string]struct{}, len(cols)+len(TotalColumns))
	out := make([]string, 0, len(cols)+len(TotalColumns))
	for _, c := range append(append([]string{}, cols...), TotalColumns...) {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
