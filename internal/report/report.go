// Package report serves the read side: the filtered planning dashboard
// built from the latest snapshot date and the live per-EAN plan.
package report

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"invplan-backend/internal/cache"
	"invplan-backend/internal/facts"
	"invplan-backend/internal/logger"
	"invplan-backend/internal/models"
	"invplan-backend/internal/planning"
	"invplan-backend/internal/store"
)

const (
	defaultLimit = 15
	trendDays    = 7
	noVendor     = "No Vendor"
)

var (
	ErrNoSnapshot = errors.New("no planning snapshot has been built yet")
	ErrNoFact     = errors.New("no fact row for ean")
)

// Query filters the planning dashboard. Empty fields do not filter.
type Query struct {
	Brand    string
	Vendor   string
	Category string
	Location string
	Page     int
	Limit    int
}

func (q Query) cacheKey(date time.Time) string {
	return cache.Key("planning", date.Format("2006-01-02"),
		strings.ToLower(q.Brand), strings.ToLower(q.Vendor),
		strings.ToLower(q.Category), strings.ToLower(q.Location),
		fmt.Sprint(q.Page), fmt.Sprint(q.Limit))
}

type Summary struct {
	CurrentStock       float64 `json:"current_stock"`
	InTransit          float64 `json:"in_transit"`
	UpcomingStock      float64 `json:"upcoming_stock"`
	TotalStock         float64 `json:"total_stock"`
	OverInventory      float64 `json:"over_inventory"`
	StockAlert         int     `json:"stock_alert"`
	PORequired         int     `json:"po_required"`
	TotalPOIntentUnits float64 `json:"total_po_intent_units"`
	AvgDaysCover       float64 `json:"avg_days_cover"`
	InventoryCOGS      float64 `json:"inventory_cogs"`
}

// QuickCommerceSpeed sums the 30 day rates of each quick commerce channel.
type QuickCommerceSpeed struct {
	Swiggy             float64 `json:"swiggy"`
	Zepto              float64 `json:"zepto"`
	BlinkitB2B         float64 `json:"blinkit_b2b"`
	BlinkitMarketplace float64 `json:"blinkit_marketplace"`
	Total              float64 `json:"total"`
}

type Distribution struct {
	Increff float64 `json:"increff"`
	KVT     float64 `json:"kvt"`
	PC      float64 `json:"pc"`
	FBA     float64 `json:"fba"`
	FBF     float64 `json:"fbf"`
	Myntra  float64 `json:"myntra"`
}

type TrendPoint struct {
	Date         string  `json:"date"`
	AvgDaysCover float64 `json:"avg_days_cover"`
}

type Filters struct {
	Brands     []string `json:"brands"`
	Vendors    []string `json:"vendors"`
	Categories []string `json:"categories"`
	Locations  []string `json:"locations"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
	Returned   int `json:"returned"`
}

type Planning struct {
	SnapshotDate       string                    `json:"snapshot_date"`
	Summary            Summary                   `json:"summary"`
	QuickCommerceSpeed QuickCommerceSpeed        `json:"quick_commerce_speed"`
	Distribution       Distribution              `json:"inventory_distribution"`
	DaysCoverTrend     []TrendPoint              `json:"days_cover_trend"`
	Filters            Filters                   `json:"filters"`
	Pagination         Pagination                `json:"pagination"`
	Rows               []models.PlanningSnapshot `json:"sku_inventory_details"`
}

// Info is the live plan of one EAN computed from its latest fact version.
type Info struct {
	EANCode           string                 `json:"ean_code"`
	ProductTitle      string                 `json:"product_title"`
	Brand             string                 `json:"brand"`
	FactCreatedAt     time.Time              `json:"fact_created_at"`
	DRR30d            float64                `json:"drr_30d"`
	LeadTimeDays      float64                `json:"lead_time_days"`
	SafetyStockDays   float64                `json:"safety_stock_days"`
	CurrentStock      float64                `json:"current_stock"`
	InTransitStock    float64                `json:"in_transit_stock"`
	UpcomingStock     float64                `json:"upcoming_stock"`
	StagedInTransit   float64                `json:"staged_in_transit"`
	ReorderLevel      float64                `json:"reorder_level"`
	POIntentUnits     float64                `json:"po_intent_units"`
	DaysOfCover       float64                `json:"days_of_cover"`
	DaysOfCoverWithPO float64                `json:"days_of_cover_with_po"`
	Status            models.InventoryStatus `json:"inventory_status"`
}

type Service struct {
	facts     store.FactRepo
	snapshots store.SnapshotRepo
	upcoming  store.UpcomingRepo
	policy    planning.Policy
	cache     cache.Cache
	log       *logger.Logger
}

func NewService(f store.FactRepo, s store.SnapshotRepo, u store.UpcomingRepo, policy planning.Policy, c cache.Cache, baseLog *logger.Logger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{
		facts:     f,
		snapshots: s,
		upcoming:  u,
		policy:    policy,
		cache:     c,
		log:       baseLog.With("component", "Report"),
	}
}

// Planning builds the dashboard for the most recent snapshot date.
func (s *Service) Planning(ctx context.Context, q Query) (*Planning, error) {
	date, ok, err := s.snapshots.LatestDate(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest snapshot date: %w", err)
	}
	if !ok {
		return nil, ErrNoSnapshot
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultLimit
	}
	if q.Limit > 500 {
		q.Limit = 500
	}

	key := q.cacheKey(date)
	var cached Planning
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.log.Warn("report cache read failed", "error", err)
	} else if hit {
		return &cached, nil
	}

	rows, err := s.snapshots.ListByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	latest, err := s.facts.LatestPerEAN(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("latest facts: %w", err)
	}
	byEAN := make(map[string]*models.SKUFact, len(latest))
	for i := range latest {
		byEAN[latest[i].EANCode] = &latest[i]
	}

	selected := filterRows(rows, q, "")
	out := &Planning{
		SnapshotDate: date.Format("2006-01-02"),
		Summary:      summarize(selected, byEAN),
		Filters: Filters{
			Brands:     options(filterRows(rows, q, "brand"), func(r models.PlanningSnapshot) string { return r.Brand }),
			Vendors:    options(filterRows(rows, q, "vendor"), vendorOf),
			Categories: options(filterRows(rows, q, "category"), func(r models.PlanningSnapshot) string { return r.Category }),
			Locations:  options(filterRows(rows, q, "location"), func(r models.PlanningSnapshot) string { return r.Location }),
		},
	}
	out.QuickCommerceSpeed, out.Distribution = channelTotals(selected, byEAN)

	if out.DaysCoverTrend, err = s.trend(ctx, date); err != nil {
		return nil, err
	}

	sortRows(selected)
	out.Pagination = Pagination{
		Page:       q.Page,
		Limit:      q.Limit,
		Total:      len(selected),
		TotalPages: (len(selected) + q.Limit - 1) / q.Limit,
	}
	start := (q.Page - 1) * q.Limit
	if start > len(selected) {
		start = len(selected)
	}
	end := start + q.Limit
	if end > len(selected) {
		end = len(selected)
	}
	out.Rows = selected[start:end]
	out.Pagination.Returned = len(out.Rows)

	if err := s.cache.Set(ctx, key, out); err != nil {
		s.log.Warn("report cache write failed", "error", err)
	}
	return out, nil
}

// Info classifies one EAN from its latest fact and pending orders without
// touching the snapshot table.
func (s *Service) Info(ctx context.Context, ean string) (*Info, error) {
	ean = facts.NormalizeEAN(ean)
	row, err := s.facts.Latest(ctx, ean)
	if err != nil {
		return nil, fmt.Errorf("latest fact %s: %w", ean, err)
	}
	if row == nil {
		return nil, fmt.Errorf("%w %s", ErrNoFact, ean)
	}
	pending, err := s.upcoming.Pending(ctx, ean)
	if err != nil {
		return nil, fmt.Errorf("pending orders %s: %w", ean, err)
	}

	in := planning.InputsFromFact(row, pending.Upcoming)
	res := planning.Classify(in, s.policy)
	return &Info{
		EANCode:           row.EANCode,
		ProductTitle:      row.ProductTitle,
		Brand:             row.Brand,
		FactCreatedAt:     row.CreatedAt,
		DRR30d:            in.DRR30d,
		LeadTimeDays:      in.LeadTimeDays,
		SafetyStockDays:   s.policy.SafetyStockDays,
		CurrentStock:      in.CurrentStock,
		InTransitStock:    in.InTransitStock,
		UpcomingStock:     in.UpcomingStock,
		StagedInTransit:   pending.InTransit,
		ReorderLevel:      res.ReorderLevel,
		POIntentUnits:     res.POIntentUnits,
		DaysOfCover:       res.DaysOfCover,
		DaysOfCoverWithPO: res.DaysOfCoverWithPO,
		Status:            res.Status,
	}, nil
}

// trend averages days of cover over every SKU for the last week of
// snapshot dates, oldest first. Dates without snapshots are left out.
func (s *Service) trend(ctx context.Context, latest time.Time) ([]TrendPoint, error) {
	points := make([]TrendPoint, 0, trendDays)
	for i := trendDays - 1; i >= 0; i-- {
		day := latest.AddDate(0, 0, -i)
		rows, err := s.snapshots.ListByDate(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("trend %s: %w", day.Format("2006-01-02"), err)
		}
		if len(rows) == 0 {
			continue
		}
		var sum float64
		for _, r := range rows {
			sum += r.DaysOfCover
		}
		points = append(points, TrendPoint{Date: day.Format("2006-01-02"), AvgDaysCover: round2(sum / float64(len(rows)))})
	}
	return points, nil
}

func vendorOf(r models.PlanningSnapshot) string {
	if strings.TrimSpace(r.VendorName) == "" {
		return noVendor
	}
	return r.VendorName
}

// filterRows applies q, ignoring the filter named by skip so that each
// option list stays selectable under the other filters.
func filterRows(rows []models.PlanningSnapshot, q Query, skip string) []models.PlanningSnapshot {
	match := func(want, got string) bool {
		return want == "" || strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(got))
	}
	out := make([]models.PlanningSnapshot, 0, len(rows))
	for _, r := range rows {
		if skip != "brand" && !match(q.Brand, r.Brand) {
			continue
		}
		if skip != "vendor" && !match(q.Vendor, vendorOf(r)) {
			continue
		}
		if skip != "category" && !match(q.Category, r.Category) {
			continue
		}
		if skip != "location" && !match(q.Location, r.Location) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func options(rows []models.PlanningSnapshot, get func(models.PlanningSnapshot) string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, r := range rows {
		v := strings.TrimSpace(get(r))
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func summarize(rows []models.PlanningSnapshot, byEAN map[string]*models.SKUFact) Summary {
	var s Summary
	var cover float64
	for _, r := range rows {
		s.CurrentStock += r.CurrentStock
		s.InTransit += r.InTransitStock
		s.UpcomingStock += r.UpcomingStock
		cover += r.DaysOfCover
		switch r.InventoryStatus {
		case models.StatusOverStock:
			s.OverInventory += r.CurrentStock
		case models.StatusLowStock:
			s.StockAlert++
		case models.StatusPORequired:
			s.PORequired++
			s.TotalPOIntentUnits += r.POIntentUnits
		}
		if f, ok := byEAN[r.EANCode]; ok {
			s.InventoryCOGS += f.TotalCOGSValue
		}
	}
	s.TotalStock = s.CurrentStock + s.InTransit + s.UpcomingStock
	if len(rows) > 0 {
		s.AvgDaysCover = round2(cover / float64(len(rows)))
	}
	s.InventoryCOGS = round2(s.InventoryCOGS)
	return s
}

func channelTotals(rows []models.PlanningSnapshot, byEAN map[string]*models.SKUFact) (QuickCommerceSpeed, Distribution) {
	var q QuickCommerceSpeed
	var d Distribution
	for _, r := range rows {
		f, ok := byEAN[r.EANCode]
		if !ok {
			continue
		}
		m := &f.SKUMetrics
		q.Swiggy += m.SwiggyDRR30d
		q.Zepto += m.ZeptoDRR30d
		q.BlinkitB2B += m.BlinkitB2BDRR30d
		q.BlinkitMarketplace += m.BlinkitMarketplaceSpeed30d

		d.Increff += m.IncreffUnits
		d.KVT += m.KVTUnits
		d.PC += m.PCUnits
		d.FBA += m.FBAUnits + m.FBABundledUnits
		d.FBF += m.FBFUnits + m.FBFBundledUnits
		d.Myntra += m.MyntraUnits + m.MyntraBundledUnits
	}
	q.Total = q.Swiggy + q.Zepto + q.BlinkitB2B + q.BlinkitMarketplace
	return q, d
}

var statusRank = map[models.InventoryStatus]int{
	models.StatusLowStock:   0,
	models.StatusPORequired: 1,
	models.StatusOverStock:  2,
}

// sortRows orders by status (LOW_STOCK, PO_REQUIRED, OVER_STOCK), then by
// days of cover ascending.
func sortRows(rows []models.PlanningSnapshot) {
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := statusRank[rows[i].InventoryStatus], statusRank[rows[j].InventoryStatus]
		if ri != rj {
			return ri < rj
		}
		if rows[i].DaysOfCover != rows[j].DaysOfCover {
			return rows[i].DaysOfCover < rows[j].DaysOfCover
		}
		return rows[i].EANCode < rows[j].EANCode
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
