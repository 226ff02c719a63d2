// Package planning derives the daily reorder snapshot from the latest
// fact version of each EAN.
package planning

import (
	"invplan-backend/internal/facts"
	"invplan-backend/internal/models"
	"invplan-backend/internal/numeric"
)

type Policy struct {
	SafetyStockDays float64
	POBufferDays    float64
}

func DefaultPolicy() Policy {
	return Policy{SafetyStockDays: 40, POBufferDays: 15}
}

// Inputs are the stock positions of one EAN.
type Inputs struct {
	DRR30d         float64
	LeadTimeDays   float64
	CurrentStock   float64
	InTransitStock float64
	UpcomingStock  float64
}

type Result struct {
	ReorderLevel      float64
	POIntentUnits     float64
	DaysOfCover       float64
	DaysOfCoverWithPO float64
	Status            models.InventoryStatus
}

// Classify is pure. Status precedence: PO_REQUIRED when even pending
// orders leave stock at or under the reorder level, LOW_STOCK when only
// pending orders lift it above, OVER_STOCK otherwise. There is no "OK".
func Classify(in Inputs, p Policy) Result {
	drr := numeric.ToNumber(in.DRR30d)
	lead := numeric.ToNumber(in.LeadTimeDays)
	availableNow := numeric.Sum(in.CurrentStock, in.InTransitStock)
	availableWithPO := numeric.Sum(availableNow, in.UpcomingStock)

	r := Result{
		ReorderLevel:      drr * (lead + p.SafetyStockDays),
		POIntentUnits:     numeric.Ceil(drr * (lead + p.POBufferDays)),
		DaysOfCover:       facts.DaysOfCover(availableNow, drr),
		DaysOfCoverWithPO: facts.DaysOfCover(availableWithPO, drr),
	}

	switch {
	case availableWithPO <= r.ReorderLevel:
		r.Status = models.StatusPORequired
	case availableNow <= r.ReorderLevel:
		r.Status = models.StatusLowStock
	default:
		r.Status = models.StatusOverStock
	}
	return r
}

// InputsFromFact reads the stock positions off the latest fact version.
// The demand rate is rebuilt from component channel speeds rather than the
// stored totals.
func InputsFromFact(f *models.SKUFact, upcoming float64) Inputs {
	m := &f.SKUMetrics
	return Inputs{
		DRR30d:         numeric.Sum(facts.QuickCommSpeed(m), facts.WarehouseSpeed(m)),
		LeadTimeDays:   f.LeadTimeDays,
		CurrentStock:   numeric.Sum(facts.WarehouseStock(m), facts.QuickCommStock(m)),
		InTransitStock: facts.InTransit(m),
		UpcomingStock:  upcoming,
	}
}
