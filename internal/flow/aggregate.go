package flow

import (
	"strings"

	"invplan-backend/internal/facts"
	"invplan-backend/internal/metrics"
	"invplan-backend/internal/models"
	"invplan-backend/internal/numeric"
)

// OrderLine is one B2B order item as read from the operations database.
type OrderLine struct {
	EAN         string
	Supplier    string
	SupplierTag string
	Buyer       string
	BuyerTag    string
	Quantity    float64
}

func containsAny(field string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}
	field = strings.ToLower(strings.TrimSpace(field))
	if field == "" {
		return false
	}
	for _, p := range patterns {
		if strings.Contains(field, strings.ToLower(strings.TrimSpace(p))) {
			return true
		}
	}
	return false
}

func (r Rule) Match(l OrderLine) bool {
	return containsAny(l.Supplier, r.Supplier) &&
		containsAny(l.SupplierTag, r.SupplierTag) &&
		containsAny(l.Buyer, r.Buyer) &&
		containsAny(l.BuyerTag, r.BuyerTag)
}

// Classify returns the bucket of the first matching rule.
func (rs Rules) Classify(l OrderLine) (string, bool) {
	for _, r := range rs {
		if r.Match(l) {
			return r.Bucket, true
		}
	}
	return "", false
}

// Totals holds bucket sums for one EAN.
type Totals map[string]float64

// Summary is the result of folding a batch of order lines.
type Summary struct {
	ByEAN     map[string]Totals
	Matched   int
	Unmatched int
}

// Aggregate folds lines into per-EAN bucket totals. Every EAN seen gets an
// entry, so one whose lines all match no rule still has its flows zeroed.
// Unmatched lines are counted.
func (rs Rules) Aggregate(lines []OrderLine) Summary {
	s := Summary{ByEAN: map[string]Totals{}}
	for _, l := range lines {
		ean := facts.NormalizeEAN(l.EAN)
		if ean == "" {
			s.Unmatched++
			continue
		}
		t, seen := s.ByEAN[ean]
		if !seen {
			t = Totals{}
			s.ByEAN[ean] = t
		}
		bucket, ok := rs.Classify(l)
		if !ok {
			s.Unmatched++
			continue
		}
		t[bucket] = numeric.Sum(t[bucket], l.Quantity)
		s.Matched++
	}
	metrics.FlowUnmatched.Add(float64(s.Unmatched))
	return s
}

// Patch writes every flow column for the EAN. Buckets with no lines are
// written as zero so stale transfers do not linger on the record.
func (t Totals) Patch(ean string) facts.Patch {
	get := func(b string) float64 { return t[b] }
	return facts.Patch{
		Source:  "b2b_orders",
		EAN:     ean,
		Columns: append([]string(nil), facts.FlowColumns...),
		Apply: func(f *models.SKUFact) {
			f.VendorIncreff = get(VendorToIncreff)
			f.VendorToPC = get(VendorToPC)
			f.VendorToFBA = get(VendorToFBA)
			f.VendorToFBF = get(VendorToFBF)
			f.VendorToKV = get(VendorToKV)
			f.PCToIncreff = get(PCToIncreff)
			f.PCToFBA = get(PCToFBA)
			f.PCToFBF = get(PCToFBF)
			f.KVToFBA = get(KVToFBA)
			f.KVToFBF = get(KVToFBF)
		},
	}
}

// Patches returns one patch per EAN.
func (s Summary) Patches() []facts.Patch {
	out := make([]facts.Patch, 0, len(s.ByEAN))
	for ean, t := range s.ByEAN {
		out = append(out, t.Patch(ean))
	}
	return out
}
