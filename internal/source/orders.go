package source

import (
	"context"
	"fmt"
	"time"

	"invplan-backend/internal/facts"
	"invplan-backend/internal/flow"
	"invplan-backend/internal/logger"
	"invplan-backend/internal/models"
	"invplan-backend/internal/store"

	"gorm.io/gorm"
)

const ordersQuery = `SELECT ean, supplier_name, supplier_wh_vendor, buyer_name, buyer_wh_vendor,
	order_quantity, in_transit_quantity, external_order_code, _airbyte_ab_id
FROM replica_b2b_order_itemlevel`

// OrderBatch is one read of the B2B order feed: the lines for flow
// classification and the same rows staged as upcoming stock.
type OrderBatch struct {
	Lines    []flow.OrderLine
	Upcoming []models.UpcomingStock
}

// OrderReader reads the B2B order item feed.
type OrderReader struct {
	db  *gorm.DB
	loc *time.Location
	now func() time.Time
	log *logger.Logger
}

func NewOrderReader(db *gorm.DB, loc *time.Location, baseLog *logger.Logger) *OrderReader {
	if loc == nil {
		loc = time.UTC
	}
	return &OrderReader{
		db:  db,
		loc: loc,
		now: time.Now,
		log: baseLog.With("source", B2BOrders),
	}
}

func (r *OrderReader) WithClock(now func() time.Time) *OrderReader {
	r.now = now
	return r
}

func (r *OrderReader) Name() string { return B2BOrders }

func (r *OrderReader) Read(ctx context.Context) (OrderBatch, error) {
	var rows []map[string]any
	if err := r.db.WithContext(ctx).Raw(ordersQuery).Scan(&rows).Error; err != nil {
		return OrderBatch{}, fmt.Errorf("%s: read: %w", B2BOrders, err)
	}
	batch := BuildOrderBatch(rows, r.now().In(r.loc))
	r.log.Debug("source read", "rows", len(rows), "lines", len(batch.Lines))
	return batch, nil
}

// BuildOrderBatch maps raw order rows. Rows without an EAN are dropped;
// rows without an upstream record id are classified but not staged.
func BuildOrderBatch(rows []map[string]any, now time.Time) OrderBatch {
	batchDate := store.DateOnly(now)
	out := OrderBatch{
		Lines:    make([]flow.OrderLine, 0, len(rows)),
		Upcoming: make([]models.UpcomingStock, 0, len(rows)),
	}
	for _, raw := range rows {
		rec := normalizeRecord(raw)
		ean := rec.EAN()
		if ean == "" {
			continue
		}
		line := flow.OrderLine{
			EAN:         ean,
			Supplier:    rec.Str("supplier_name"),
			SupplierTag: rec.Str("supplier_wh_vendor"),
			Buyer:       rec.Str("buyer_name"),
			BuyerTag:    rec.Str("buyer_wh_vendor"),
			Quantity:    rec.Num("order_quantity"),
		}
		out.Lines = append(out.Lines, line)

		recordID := rec.Str("_airbyte_ab_id")
		if recordID == "" {
			recordID = rec.Str("source_record_id")
		}
		if recordID == "" {
			continue
		}
		out.Upcoming = append(out.Upcoming, models.UpcomingStock{
			EAN:               ean,
			SourceRecordID:    recordID,
			ExternalOrderCode: rec.Str("external_order_code"),
			SupplierName:      line.Supplier,
			SupplierTag:       line.SupplierTag,
			BuyerName:         line.Buyer,
			BuyerTag:          line.BuyerTag,
			OrderQuantity:     line.Quantity,
			InTransitQuantity: rec.Num("in_transit_quantity"),
			BatchDate:         batchDate,
		})
	}
	return out
}

// Patches folds the batch through the flow rules.
func (b OrderBatch) Patches(rules flow.Rules) ([]facts.Patch, flow.Summary) {
	s := rules.Aggregate(b.Lines)
	return s.Patches(), s
}
