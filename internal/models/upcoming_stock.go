package models

import "time"

// UpcomingStock is one staged B2B order line. Rows are append-only and
// deduplicated on (ean, source_record_id) at ingestion.
type UpcomingStock struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	EAN               string    `gorm:"column:ean;size:64;not null;uniqueIndex:idx_upcoming_ean_record,priority:1;index:idx_upcoming_ean_batch,priority:1" json:"ean"`
	SourceRecordID    string    `gorm:"column:source_record_id;size:128;not null;uniqueIndex:idx_upcoming_ean_record,priority:2" json:"source_record_id"`
	ExternalOrderCode string    `gorm:"column:external_order_code;size:128" json:"external_order_code"`
	SupplierName      string    `gorm:"column:supplier_name;size:160" json:"supplier_name"`
	SupplierTag       string    `gorm:"column:supplier_wh_vendor;size:160" json:"supplier_wh_vendor"`
	BuyerName         string    `gorm:"column:buyer_name;size:160" json:"buyer_name"`
	BuyerTag          string    `gorm:"column:buyer_wh_vendor;size:160" json:"buyer_wh_vendor"`
	OrderQuantity     float64   `gorm:"column:order_quantity;default:0" json:"order_quantity"`
	InTransitQuantity float64   `gorm:"column:in_transit_quantity;default:0" json:"in_transit_quantity"`
	BatchDate         time.Time `gorm:"column:batch_date;type:date;not null;index:idx_upcoming_ean_batch,priority:2" json:"batch_date"`
	CreatedAt         time.Time `json:"created_at"`
}

func (UpcomingStock) TableName() string { return "upcoming_stocks" }
