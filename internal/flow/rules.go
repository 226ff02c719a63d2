// Package flow classifies B2B order lines into directional transfer
// buckets and totals them per EAN.
package flow

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Bucket names double as fact column names.
const (
	VendorToIncreff = "vendor_increff"
	VendorToPC      = "vendor_to_pc"
	VendorToFBA     = "vendor_to_fba"
	VendorToFBF     = "vendor_to_fbf"
	VendorToKV      = "vendor_to_kv"
	PCToIncreff     = "pc_to_increff"
	PCToFBA         = "pc_to_fba"
	PCToFBF         = "pc_to_fbf"
	KVToFBA         = "kv_to_fba"
	KVToFBF         = "kv_to_fbf"
)

var ErrInvalidRule = errors.New("invalid flow rule")

// Rule matches an order line when every non-empty pattern list has at
// least one entry contained in the corresponding field. Matching is
// case-insensitive on trimmed values.
type Rule struct {
	Bucket      string   `yaml:"bucket"`
	Supplier    []string `yaml:"supplier,omitempty"`
	SupplierTag []string `yaml:"supplier_tag,omitempty"`
	Buyer       []string `yaml:"buyer,omitempty"`
	BuyerTag    []string `yaml:"buyer_tag,omitempty"`
}

// Rules are evaluated top to bottom; the first match wins.
type Rules []Rule

// DefaultRules is the built-in ordering. Earlier rules shadow later ones,
// e.g. a Merhaki purchase tagged for Assure goes to vendor_increff before
// the generic vendor buckets are considered.
func DefaultRules() Rules {
	return Rules{
		{Bucket: VendorToIncreff, Buyer: []string{"merhaki"}, BuyerTag: []string{"assure"}},
		{Bucket: VendorToPC, Buyer: []string{"merhaki"}, BuyerTag: []string{"hive", "firstcry"}},
		{Bucket: VendorToFBA, Buyer: []string{"merhaki"}, BuyerTag: []string{"amazon"}},
		{Bucket: VendorToFBF, Buyer: []string{"merhaki"}, BuyerTag: []string{"flipkart"}},
		{Bucket: VendorToKV, Buyer: []string{"merhaki"}, BuyerTag: []string{"brand"}},
		{Bucket: PCToIncreff, SupplierTag: []string{"firstcry", "hive"}, BuyerTag: []string{"assure"}},
		{Bucket: PCToFBA, SupplierTag: []string{"firstcry", "hive"}, BuyerTag: []string{"amazon"}},
		{Bucket: PCToFBF, SupplierTag: []string{"firstcry", "hive"}, BuyerTag: []string{"flipkart"}},
		{Bucket: KVToFBA, SupplierTag: []string{"brand"}, BuyerTag: []string{"amazon"}},
		{Bucket: KVToFBF, SupplierTag: []string{"brand"}, BuyerTag: []string{"flipkart"}},
	}
}

var knownBuckets = map[string]struct{}{
	VendorToIncreff: {}, VendorToPC: {}, VendorToFBA: {}, VendorToFBF: {}, VendorToKV: {},
	PCToIncreff: {}, PCToFBA: {}, PCToFBF: {}, KVToFBA: {}, KVToFBF: {},
}

type rulesFile struct {
	Rules Rules `yaml:"rules"`
}

// LoadRules reads an ordered rule table from YAML. An empty path returns
// DefaultRules.
func LoadRules(path string) (Rules, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRules(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow rules: %w", err)
	}
	return ParseRules(raw)
}

func ParseRules(raw []byte) (Rules, error) {
	var f rulesFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse flow rules: %w", err)
	}
	if err := f.Rules.Validate(); err != nil {
		return nil, err
	}
	return f.Rules.normalized(), nil
}

func (rs Rules) Validate() error {
	if len(rs) == 0 {
		return fmt.Errorf("%w: no rules", ErrInvalidRule)
	}
	for i, r := range rs {
		if _, ok := knownBuckets[r.Bucket]; !ok {
			return fmt.Errorf("%w: rule %d: unknown bucket %q", ErrInvalidRule, i, r.Bucket)
		}
		if len(r.Supplier)+len(r.SupplierTag)+len(r.Buyer)+len(r.BuyerTag) == 0 {
			return fmt.Errorf("%w: rule %d (%s) has no patterns", ErrInvalidRule, i, r.Bucket)
		}
	}
	return nil
}

func (rs Rules) normalized() Rules {
	out := make(Rules, len(rs))
	for i, r := range rs {
		out[i] = Rule{
			Bucket:      r.Bucket,
			Supplier:    lowerAll(r.Supplier),
			SupplierTag: lowerAll(r.SupplierTag),
			Buyer:       lowerAll(r.Buyer),
			BuyerTag:    lowerAll(r.BuyerTag),
		}
	}
	return out
}

func lowerAll(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
