package source

import (
	"invplan-backend/internal/models"
)

// Definition describes one fact-writing feed: where it reads from, which
// fact columns it owns and how a record maps onto them.
type Definition struct {
	Name  string
	Query string
	// Daily feeds keep history upstream; the query takes the bounds of the
	// current local day as its two arguments.
	Daily   bool
	Columns []string
	Apply   func(Record, *models.SKUFact)
}

const (
	Catalog            = "catalog"
	InventoryDetails   = "inventory_details"
	ChannelDRR         = "channel_drr"
	BlinkitMarketplace = "blinkit_marketplace"
	BlinkitB2B         = "blinkit_b2b"
	Zepto              = "zepto"
	Swiggy             = "swiggy"
	B2BOrders          = "b2b_orders"
)

var catalogDef = Definition{
	Name:  Catalog,
	Query: `SELECT ean, brand, gb_sku, asin, product_title, category, mrp,
		selling_price, cogs, pack_size, lead_time_vendor_lt, vendor_name, is_bundle,
		website_drr, drr
	FROM view_sku_master
	WHERE ean IS NOT NULL`,
	Columns: []string{
		"brand", "gb_sku", "asin", "product_title", "category", "mrp",
		"selling_price", "cogs", "pack_size", "lead_time_vendor_lt", "vendor_name", "is_bundle",
		"website_drr", "drr",
	},
	Apply: func(r Record, f *models.SKUFact) {
		f.Brand = r.Str("brand")
		f.GBSKU = r.Str("gb_sku")
		f.ASIN = r.Str("asin")
		f.ProductTitle = r.Str("product_title")
		f.Category = r.Str("category")
		f.MRP = r.Num("mrp")
		f.SellingPrice = r.Num("selling_price")
		f.COGS = r.Num("cogs")
		f.PackSize = r.Num("pack_size")
		f.LeadTimeDays = r.Num("lead_time_vendor_lt")
		f.VendorName = r.Str("vendor_name")
		f.IsBundle = r.Bool("is_bundle")
		f.WebsiteDRR = r.Num("website_drr")
		f.DRR = r.Num("drr")
	},
}

// The upstream view uses spaced, mixed-case headers; keys are normalized
// on read so the same mapping serves the spreadsheet export.
var inventoryDetailsDef = Definition{
	Name:  InventoryDetails,
	Query: `SELECT * FROM view_sku_level_inventory_details`,
	Columns: []string{
		"increff_units", "kvt_units", "pc_units", "allocated_on_hold_pc_units",
		"fba_units_gb", "fba_bundled_units", "fbf_units_gb", "fbf_bundled_units",
		"myntra_units_gb", "myntra_bundled_units",
	},
	Apply: func(r Record, f *models.SKUFact) {
		f.IncreffUnits = r.Num("increff_units")
		f.KVTUnits = r.Num("kvt_units")
		f.PCUnits = r.Num("pc_units")
		f.AllocatedOnHoldPCUnits = r.Num("allocated_on_hold_pc_units")
		f.FBAUnits = r.Num("fba_units_gb")
		f.FBABundledUnits = r.Num("bundled_fba_units_gb")
		f.FBFUnits = r.Num("fbf_units_gb")
		f.FBFBundledUnits = r.Num("bundled_fbf_units_gb")
		f.MyntraUnits = r.Num("myntra_units_gb")
		f.MyntraBundledUnits = r.Num("bundled_myntra_units_gb")
	},
}

var channelDRRDef = Definition{
	Name:  ChannelDRR,
	Query: `SELECT ean, allocated_on_hold_increff_units, amazon_drr, flipkart_drr, myntra_drr
	FROM view_sku_level_inventory_details_channel_drr`,
	Columns: []string{"allocated_on_hold", "fba_drr", "fbf_drr", "myntra_drr"},
	Apply: func(r Record, f *models.SKUFact) {
		f.AllocatedOnHold = r.Num("allocated_on_hold_increff_units")
		f.FBADRR = r.Num("amazon_drr")
		f.FBFDRR = r.Num("flipkart_drr")
		f.MyntraDRR = r.Num("myntra_drr")
	},
}

var blinkitMarketplaceDef = Definition{
	Name:  BlinkitMarketplace,
	Query: `SELECT ean, feeder_store_inventory, dark_store_inventory, drr_7_days, drr_15_days, drr_30_days
	FROM replica_blinkit_marketplace_inventory
	WHERE ean IS NOT NULL`,
	Columns: []string{
		"blinkit_marketplace_stock",
		"blinkit_marketplace_speed_7_days",
		"blinkit_marketplace_speed_15_days",
		"blinkit_marketplace_speed_30_days",
	},
	Apply: func(r Record, f *models.SKUFact) {
		f.BlinkitMarketplaceStock = r.Num("feeder_store_inventory") + r.Num("dark_store_inventory")
		f.BlinkitMarketplaceSpeed7d = r.Num("drr_7_days")
		f.BlinkitMarketplaceSpeed15d = r.Num("drr_15_days")
		f.BlinkitMarketplaceSpeed30d = r.Num("drr_30_days")
	},
}

// Quick-commerce feeds report a 14 day rate; it fills the medium window
// column.
var blinkitB2BDef = Definition{
	Name:  BlinkitB2B,
	Query: `SELECT ean, stock, drr_7d, drr_14d, drr_30d
	FROM blinkit_inventory_drr
	WHERE created_at >= ? AND created_at < ?`,
	Daily:   true,
	Columns: []string{"blinkit_b2b_stock", "blinkit_b2b_drr_7d", "blinkit_b2b_drr_15d", "blinkit_b2b_drr_30d"},
	Apply: func(r Record, f *models.SKUFact) {
		f.BlinkitB2BStock = r.Num("stock")
		f.BlinkitB2BDRR7d = r.Num("drr_7d")
		f.BlinkitB2BDRR15d = r.Num("drr_14d")
		f.BlinkitB2BDRR30d = r.Num("drr_30d")
	},
}

var zeptoDef = Definition{
	Name:  Zepto,
	Query: `SELECT ean, stock, drr_7d, drr_14d, drr_30d
	FROM zepto_inventory_drr
	WHERE created_at >= ? AND created_at < ?`,
	Daily:   true,
	Columns: []string{"zepto_stock", "zepto_drr_7d", "zepto_drr_15d", "zepto_drr_30d"},
	Apply: func(r Record, f *models.SKUFact) {
		f.ZeptoStock = r.Num("stock")
		f.ZeptoDRR7d = r.Num("drr_7d")
		f.ZeptoDRR15d = r.Num("drr_14d")
		f.ZeptoDRR30d = r.Num("drr_30d")
	},
}

var swiggyDef = Definition{
	Name:  Swiggy,
	Query: `SELECT ean, state, city, area_name, store_id, stock, drr_7d, drr_14d, drr_30d
	FROM swiggy_inventory_drr
	WHERE created_at >= ? AND created_at < ?`,
	Daily:   true,
	Columns: []string{
		"swiggy_state", "swiggy_city", "swiggy_area_name", "swiggy_store_id",
		"swiggy_stock", "swiggy_drr_7d", "swiggy_drr_15d", "swiggy_drr_30d",
	},
	Apply: func(r Record, f *models.SKUFact) {
		f.SwiggyState = r.Str("state")
		f.SwiggyCity = r.Str("city")
		f.SwiggyAreaName = r.Str("area_name")
		f.SwiggyStoreID = r.Str("store_id")
		f.SwiggyStock = r.Num("stock")
		f.SwiggyDRR7d = r.Num("drr_7d")
		f.SwiggyDRR15d = r.Num("drr_14d")
		f.SwiggyDRR30d = r.Num("drr_30d")
	},
}

// Definitions lists every fact-writing feed except b2b_orders, which is
// folded through the flow rules first.
func Definitions() []Definition {
	return []Definition{
		catalogDef,
		inventoryDetailsDef,
		channelDRRDef,
		blinkitMarketplaceDef,
		blinkitB2BDef,
		zeptoDef,
		swiggyDef,
	}
}

// Lookup returns the definition for name.
func Lookup(name string) (Definition, bool) {
	for _, d := range Definitions() {
		if d.Name == name {
			return d, true
		}
	}
	return Definition{}, false
}
