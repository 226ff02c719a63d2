// Package numeric holds the single coercion path from loosely typed
// database and spreadsheet values into float64, plus the rounding helpers
// used by derived metrics.
package numeric

import (
	"database/sql"
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ToNumber converts v to a finite float64. nil, empty or blank strings,
// NaN, infinities and anything unparsable become 0.
func ToNumber(v any) float64 {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int8:
		f = float64(x)
	case int16:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint8:
		f = float64(x)
	case uint16:
		f = float64(x)
	case uint32:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			return 1
		}
		return 0
	case string:
		return parse(x)
	case []byte:
		return parse(string(x))
	case json.Number:
		return parse(x.String())
	case decimal.Decimal:
		f = x.InexactFloat64()
	case *decimal.Decimal:
		if x == nil {
			return 0
		}
		f = x.InexactFloat64()
	case decimal.NullDecimal:
		if !x.Valid {
			return 0
		}
		f = x.Decimal.InexactFloat64()
	case *float64:
		if x == nil {
			return 0
		}
		f = *x
	case *int64:
		if x == nil {
			return 0
		}
		f = float64(*x)
	case *string:
		if x == nil {
			return 0
		}
		return parse(*x)
	case sql.NullFloat64:
		if !x.Valid {
			return 0
		}
		f = x.Float64
	case sql.NullInt64:
		if !x.Valid {
			return 0
		}
		f = float64(x.Int64)
	case sql.NullString:
		if !x.Valid {
			return 0
		}
		return parse(x.String)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parse(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	s = strings.ReplaceAll(s, ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

// ToString renders v as trimmed text. nil becomes "".
func ToString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(x)
	case []byte:
		return strings.TrimSpace(string(x))
	case *string:
		if x == nil {
			return ""
		}
		return strings.TrimSpace(*x)
	case sql.NullString:
		return strings.TrimSpace(x.String)
	case float64, float32:
		return decimal.NewFromFloat(ToNumber(x)).String()
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return decimal.NewFromFloat(ToNumber(x)).String()
	default:
		if s, ok := v.(interface{ String() string }); ok {
			return strings.TrimSpace(s.String())
		}
		return ""
	}
}

// Round2 rounds half away from zero to two decimal places.
func Round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(2).InexactFloat64()
}

// Ceil returns the smallest integer value not less than f. Float noise
// below the sixth decimal is dropped first.
func Ceil(f float64) float64 {
	return decimal.NewFromFloat(f).Round(6).Ceil().InexactFloat64()
}

// Sum adds values after coercion.
func Sum(vals ...float64) float64 {
	total := decimal.Zero
	for _, v := range vals {
		total = total.Add(decimal.NewFromFloat(ToNumber(v)))
	}
	return total.InexactFloat64()
}
