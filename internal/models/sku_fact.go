package models

import "time"

// SKUFact is one version of the wide per-EAN fact record. A new version is
// forked from the latest one whenever a source writes outside its recency
// window, so the table doubles as the historical series.
type SKUFact struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EANCode   string    `gorm:"column:ean_code;size:64;not null;index:idx_sku_fact_ean_created,priority:1" json:"ean_code"`
	CreatedAt time.Time `gorm:"column:created_at;not null;index:idx_sku_fact_ean_created,priority:2;index" json:"created_at"`

	SKUDescriptor
	SKUMetrics
}

func (SKUFact) TableName() string { return "sku_inventory_report" }

// SKUDescriptor holds product attributes that are copied forward unchanged
// when a version is forked.
type SKUDescriptor struct {
	Brand        string  `gorm:"column:brand;size:120;index" json:"brand"`
	GBSKU        string  `gorm:"column:gb_sku;size:120" json:"gb_sku"`
	ASIN         string  `gorm:"column:asin;size:32" json:"asin"`
	ProductTitle string  `gorm:"column:product_title;size:255" json:"product_title"`
	Category     string  `gorm:"column:category;size:120;index" json:"category"`
	MRP          float64 `gorm:"column:mrp;default:0" json:"mrp"`
	SellingPrice float64 `gorm:"column:selling_price;default:0" json:"selling_price"`
	COGS         float64 `gorm:"column:cogs;default:0" json:"cogs"`
	PackSize     float64 `gorm:"column:pack_size;default:0" json:"pack_size"`
	LeadTimeDays float64 `gorm:"column:lead_time_vendor_lt;default:0" json:"lead_time_days"`
	VendorName   string  `gorm:"column:vendor_name;size:120;index" json:"vendor_name"`
	IsBundle     bool    `gorm:"column:is_bundle;default:false" json:"is_bundle"`
}

// SKUMetrics holds per-channel stock and velocity, transfer flows and the
// derived roll-ups.
type SKUMetrics struct {
	// Warehouse nodes and marketplace fulfilment stock.
	IncreffUnits           float64 `gorm:"column:increff_units;default:0" json:"increff_units"`
	KVTUnits               float64 `gorm:"column:kvt_units;default:0" json:"kvt_units"`
	PCUnits                float64 `gorm:"column:pc_units;default:0" json:"pc_units"`
	AllocatedOnHold        float64 `gorm:"column:allocated_on_hold;default:0" json:"allocated_on_hold"`
	AllocatedOnHoldPCUnits float64 `gorm:"column:allocated_on_hold_pc_units;default:0" json:"allocated_on_hold_pc_units"`
	FBAUnits               float64 `gorm:"column:fba_units_gb;default:0" json:"fba_units_gb"`
	FBABundledUnits        float64 `gorm:"column:fba_bundled_units;default:0" json:"fba_bundled_units"`
	FBFUnits               float64 `gorm:"column:fbf_units_gb;default:0" json:"fbf_units_gb"`
	FBFBundledUnits        float64 `gorm:"column:fbf_bundled_units;default:0" json:"fbf_bundled_units"`
	MyntraUnits            float64 `gorm:"column:myntra_units_gb;default:0" json:"myntra_units_gb"`
	MyntraBundledUnits     float64 `gorm:"column:myntra_bundled_units;default:0" json:"myntra_bundled_units"`

	// Channel demand rates.
	WebsiteDRR float64 `gorm:"column:website_drr;default:0" json:"website_drr"`
	DRR        float64 `gorm:"column:drr;default:0" json:"drr"`
	FBADRR     float64 `gorm:"column:fba_drr;default:0" json:"fba_drr"`
	FBFDRR     float64 `gorm:"column:fbf_drr;default:0" json:"fbf_drr"`
	MyntraDRR  float64 `gorm:"column:myntra_drr;default:0" json:"myntra_drr"`

	BlinkitMarketplaceStock    float64 `gorm:"column:blinkit_marketplace_stock;default:0" json:"blinkit_marketplace_stock"`
	BlinkitMarketplaceSpeed7d  float64 `gorm:"column:blinkit_marketplace_speed_7_days;default:0" json:"blinkit_marketplace_speed_7_days"`
	BlinkitMarketplaceSpeed15d float64 `gorm:"column:blinkit_marketplace_speed_15_days;default:0" json:"blinkit_marketplace_speed_15_days"`
	BlinkitMarketplaceSpeed30d float64 `gorm:"column:blinkit_marketplace_speed_30_days;default:0" json:"blinkit_marketplace_speed_30_days"`

	// Quick commerce.
	ZeptoStock         float64 `gorm:"column:zepto_stock;default:0" json:"zepto_stock"`
	ZeptoDRR7d         float64 `gorm:"column:zepto_drr_7d;default:0" json:"zepto_drr_7d"`
	ZeptoDRR15d        float64 `gorm:"column:zepto_drr_15d;default:0" json:"zepto_drr_15d"`
	ZeptoDRR30d        float64 `gorm:"column:zepto_drr_30d;default:0" json:"zepto_drr_30d"`
	BlinkitB2BStock    float64 `gorm:"column:blinkit_b2b_stock;default:0" json:"blinkit_b2b_stock"`
	BlinkitB2BDRR7d    float64 `gorm:"column:blinkit_b2b_drr_7d;default:0" json:"blinkit_b2b_drr_7d"`
	BlinkitB2BDRR15d   float64 `gorm:"column:blinkit_b2b_drr_15d;default:0" json:"blinkit_b2b_drr_15d"`
	BlinkitB2BDRR30d   float64 `gorm:"column:blinkit_b2b_drr_30d;default:0" json:"blinkit_b2b_drr_30d"`
	SwiggyStock        float64 `gorm:"column:swiggy_stock;default:0" json:"swiggy_stock"`
	SwiggyDRR7d        float64 `gorm:"column:swiggy_drr_7d;default:0" json:"swiggy_drr_7d"`
	SwiggyDRR15d       float64 `gorm:"column:swiggy_drr_15d;default:0" json:"swiggy_drr_15d"`
	SwiggyDRR30d       float64 `gorm:"column:swiggy_drr_30d;default:0" json:"swiggy_drr_30d"`
	SwiggyState        string  `gorm:"column:swiggy_state;size:80" json:"swiggy_state"`
	SwiggyCity         string  `gorm:"column:swiggy_city;size:80;index" json:"swiggy_city"`
	SwiggyAreaName     string  `gorm:"column:swiggy_area_name;size:120" json:"swiggy_area_name"`
	SwiggyStoreID      string  `gorm:"column:swiggy_store_id;size:64" json:"swiggy_store_id"`

	// Directional transfer quantities.
	VendorIncreff float64 `gorm:"column:vendor_increff;default:0" json:"vendor_increff"`
	VendorToPC    float64 `gorm:"column:vendor_to_pc;default:0" json:"vendor_to_pc"`
	VendorToFBA   float64 `gorm:"column:vendor_to_fba;default:0" json:"vendor_to_fba"`
	VendorToFBF   float64 `gorm:"column:vendor_to_fbf;default:0" json:"vendor_to_fbf"`
	VendorToKV    float64 `gorm:"column:vendor_to_kv;default:0" json:"vendor_to_kv"`
	PCToIncreff   float64 `gorm:"column:pc_to_increff;default:0" json:"pc_to_increff"`
	PCToFBA       float64 `gorm:"column:pc_to_fba;default:0" json:"pc_to_fba"`
	PCToFBF       float64 `gorm:"column:pc_to_fbf;default:0" json:"pc_to_fbf"`
	KVToFBA       float64 `gorm:"column:kv_to_fba;default:0" json:"kv_to_fba"`
	KVToFBF       float64 `gorm:"column:kv_to_fbf;default:0" json:"kv_to_fbf"`

	// Roll-ups.
	WarehouseTotalStock       float64 `gorm:"column:warehouse_total_stock;default:0" json:"warehouse_total_stock"`
	WarehouseTotalSpeed       float64 `gorm:"column:warehouse_total_speed;default:0" json:"warehouse_total_speed"`
	WarehouseTotalDaysOfCover float64 `gorm:"column:warehouse_total_days_of_cover;default:0" json:"warehouse_total_days_of_cover"`
	WarehouseSpeed7d          float64 `gorm:"column:warehouse_speed_7_days;default:0" json:"warehouse_speed_7_days"`
	WarehouseSpeed15d         float64 `gorm:"column:warehouse_speed_15_days;default:0" json:"warehouse_speed_15_days"`
	WarehouseSpeed30d         float64 `gorm:"column:warehouse_speed_30_days;default:0" json:"warehouse_speed_30_days"`
	QuickCommTotalStock       float64 `gorm:"column:quick_comm_total_stock;default:0" json:"quick_comm_total_stock"`
	QuickCommTotalSpeed       float64 `gorm:"column:quick_comm_total_speed;default:0" json:"quick_comm_total_speed"`
	QuickCommTotalDaysOfCover float64 `gorm:"column:quick_comm_total_days_of_cover;default:0" json:"quick_comm_total_days_of_cover"`
	QuickCommSpeed7d          float64 `gorm:"column:quickcomm_speed_7_days;default:0" json:"quickcomm_speed_7_days"`
	QuickCommSpeed15d         float64 `gorm:"column:quickcomm_speed_15_days;default:0" json:"quickcomm_speed_15_days"`
	QuickCommSpeed30d         float64 `gorm:"column:quickcomm_speed_30_days;default:0" json:"quickcomm_speed_30_days"`
	TotalStock                float64 `gorm:"column:total_stock;default:0" json:"total_stock"`
	TotalSpeed                float64 `gorm:"column:total_speed;default:0" json:"total_speed"`
	TotalDaysOfCover          float64 `gorm:"column:total_days_of_cover;default:0" json:"total_days_of_cover"`
	TotalCOGSValue            float64 `gorm:"column:total_cogs_value;default:0" json:"total_cogs_value"`
}
