package source

import (
	"strings"

	"invplan-backend/internal/facts"
	"invplan-backend/internal/numeric"
)

// Record is one upstream row with lower-cased column names. Values keep
// whatever type the driver or spreadsheet produced.
type Record map[string]any

// NormalizeKey turns a header such as "Allocated_On Hold Increff Units"
// into "allocated_on_hold_increff_units".
func NormalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	k = strings.Join(strings.Fields(k), "_")
	return strings.ReplaceAll(k, "-", "_")
}

func normalizeRecord(in map[string]any) Record {
	out := make(Record, len(in))
	for k, v := range in {
		out[NormalizeKey(k)] = v
	}
	return out
}

func (r Record) Num(key string) float64 { return numeric.ToNumber(r[key]) }

func (r Record) Str(key string) string { return numeric.ToString(r[key]) }

// EAN reads "ean" or "ean_code".
func (r Record) EAN() string {
	if v := facts.NormalizeEAN(r.Str("ean")); v != "" {
		return v
	}
	return facts.NormalizeEAN(r.Str("ean_code"))
}

func (r Record) Bool(key string) bool {
	switch strings.ToLower(r.Str(key)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
