package models

import "time"

type InventoryStatus string

const (
	StatusPORequired InventoryStatus = "PO_REQUIRED"
	StatusLowStock   InventoryStatus = "LOW_STOCK"
	StatusOverStock  InventoryStatus = "OVER_STOCK"
)

// PlanningSnapshot is the derived reorder view of one EAN on one date.
// (ean_code, snapshot_date) is unique; rebuilding a date overwrites it.
type PlanningSnapshot struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	EANCode      string    `gorm:"column:ean_code;size:64;not null;uniqueIndex:idx_snapshot_ean_date,priority:1" json:"ean_code"`
	SnapshotDate time.Time `gorm:"column:snapshot_date;type:date;not null;uniqueIndex:idx_snapshot_ean_date,priority:2;index" json:"snapshot_date"`

	Brand        string  `gorm:"column:brand;size:120;index" json:"brand"`
	VendorName   string  `gorm:"column:vendor_name;size:120;index" json:"vendor_name"`
	Category     string  `gorm:"column:category;size:120;index" json:"category"`
	Location     string  `gorm:"column:location;size:80" json:"location"`
	ProductTitle string  `gorm:"column:product_title;size:255" json:"product_title"`
	COGS         float64 `gorm:"column:cogs;default:0" json:"cogs"`

	DRR30d            float64         `gorm:"column:drr_30d;default:0" json:"drr_30d"`
	LeadTimeDays      float64         `gorm:"column:lead_time_days;default:0" json:"lead_time_days"`
	SafetyStockDays   float64         `gorm:"column:safety_stock_days;default:0" json:"safety_stock_days"`
	CurrentStock      float64         `gorm:"column:current_stock;default:0" json:"current_stock"`
	InTransitStock    float64         `gorm:"column:in_transit_stock;default:0" json:"in_transit_stock"`
	UpcomingStock     float64         `gorm:"column:upcoming_stock;default:0" json:"upcoming_stock"`
	ReorderLevel      float64         `gorm:"column:reorder_level;default:0" json:"reorder_level"`
	POIntentUnits     float64         `gorm:"column:po_intent_units;default:0" json:"po_intent_units"`
	DaysOfCover       float64         `gorm:"column:days_of_cover;default:0" json:"days_of_cover"`
	DaysOfCoverWithPO float64         `gorm:"column:days_of_cover_with_po;default:0" json:"days_of_cover_with_po"`
	InventoryStatus   InventoryStatus `gorm:"column:inventory_status;size:20;index" json:"inventory_status"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PlanningSnapshot) TableName() string { return "inventory_planning_snapshot" }

// SnapshotDerivedColumns are overwritten when a (ean, date) row already exists.
var SnapshotDerivedColumns = []string{
	"brand", "vendor_name", "category", "location", "product_title", "cogs",
	"drr_30d", "lead_time_days", "safety_stock_days",
	"current_stock", "in_transit_stock", "upcoming_stock",
	"reorder_level", "po_intent_units",
	"days_of_cover", "days_of_cover_with_po", "inventory_status",
	"updated_at",
}
