package flow

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"invplan-backend/internal/models"
)

func TestClassifyMerhakiAmazonGoesToFBAOnce(t *testing.T) {
	rules := DefaultRules()
	lines := []OrderLine{
		{EAN: "e1", Buyer: "  MERHAKI ", BuyerTag: "Amazon-FBA", Quantity: 40},
	}
	bucket, ok := rules.Classify(lines[0])
	if !ok || bucket != VendorToFBA {
		t.Fatalf("want=%s got=%q ok=%v", VendorToFBA, bucket, ok)
	}

	s := rules.Aggregate(lines)
	totals := s.ByEAN["e1"]
	if totals[VendorToFBA] != 40 {
		t.Fatalf("vendor_to_fba want=40 got=%v", totals[VendorToFBA])
	}
	if totals[VendorToPC] != 0 || len(totals) != 1 {
		t.Fatalf("must not be double counted: %v", totals)
	}
}

func TestClassifyOrdering(t *testing.T) {
	rules := DefaultRules()
	testCases := []struct {
		name string
		line OrderLine
		want string
		ok   bool
	}{
		{"vendor to increff before pc", OrderLine{Buyer: "Merhaki", BuyerTag: "assure-hive"}, VendorToIncreff, true},
		{"vendor to pc", OrderLine{Buyer: "merhaki pvt", BuyerTag: "FirstCry WH"}, VendorToPC, true},
		{"vendor to fbf", OrderLine{Buyer: "Merhaki", BuyerTag: "flipkart"}, VendorToFBF, true},
		{"vendor to kv", OrderLine{Buyer: "Merhaki", BuyerTag: "Brand Store"}, VendorToKV, true},
		{"pc to increff", OrderLine{Buyer: "Assure", SupplierTag: "hive", BuyerTag: "assure"}, PCToIncreff, true},
		{"pc to fba", OrderLine{SupplierTag: "FIRSTCRY", BuyerTag: "amazon"}, PCToFBA, true},
		{"pc to fbf", OrderLine{SupplierTag: "hive", BuyerTag: "Flipkart"}, PCToFBF, true},
		{"kv to fba", OrderLine{SupplierTag: "brand", BuyerTag: "amazon in"}, KVToFBA, true},
		{"kv to fbf", OrderLine{SupplierTag: "brand", BuyerTag: "flipkart"}, KVToFBF, true},
		{"unmatched", OrderLine{Buyer: "someone", BuyerTag: "myntra"}, "", false},
		{"empty tag does not match", OrderLine{Buyer: "merhaki"}, "", false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := rules.Classify(tc.line)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("want=%q/%v got=%q/%v", tc.want, tc.ok, got, ok)
			}
		})
	}
}

func TestAggregateSumsAndCountsUnmatched(t *testing.T) {
	s := DefaultRules().Aggregate([]OrderLine{
		{EAN: "e1", Buyer: "merhaki", BuyerTag: "amazon", Quantity: 10},
		{EAN: "e1", Buyer: "merhaki", BuyerTag: "amazon", Quantity: 5},
		{EAN: "e1", SupplierTag: "hive", BuyerTag: "flipkart", Quantity: 7},
		{EAN: "e2", Buyer: "merhaki", BuyerTag: "brand", Quantity: 3},
		{EAN: "e2", Buyer: "nobody", BuyerTag: "nowhere", Quantity: 100},
		{EAN: "", Buyer: "merhaki", BuyerTag: "amazon", Quantity: 100},
	})
	if s.Matched != 4 || s.Unmatched != 2 {
		t.Fatalf("matched=%d unmatched=%d", s.Matched, s.Unmatched)
	}
	want := map[string]Totals{
		"e1": {VendorToFBA: 15, PCToFBF: 7},
		"e2": {VendorToKV: 3},
	}
	// the EAN-less line is dropped entirely
	if !reflect.DeepEqual(s.ByEAN, want) {
		t.Fatalf("want=%v got=%v", want, s.ByEAN)
	}
}

func TestAggregateZeroesEANWithOnlyUnmatchedLines(t *testing.T) {
	s := DefaultRules().Aggregate([]OrderLine{
		{EAN: "111", Buyer: "merhaki", BuyerTag: "amazon", Quantity: 5},
		{EAN: "222", Buyer: "someone", BuyerTag: "nowhere", Quantity: 9},
	})
	if s.Matched != 1 || s.Unmatched != 1 {
		t.Fatalf("matched=%d unmatched=%d", s.Matched, s.Unmatched)
	}
	patches := s.Patches()
	if len(patches) != 2 {
		t.Fatalf("want a patch per EAN, got %d", len(patches))
	}
	var found bool
	for _, p := range patches {
		if p.EAN != "222" {
			continue
		}
		found = true
		row := &models.SKUFact{}
		row.VendorToFBA = 40
		row.PCToIncreff = 12
		row.KVToFBF = 3
		p.Apply(row)
		if row.VendorToFBA != 0 || row.PCToIncreff != 0 || row.KVToFBF != 0 {
			t.Fatalf("stale flows kept: %+v", row)
		}
		if len(p.Columns) != 10 {
			t.Fatalf("want 10 columns got=%d", len(p.Columns))
		}
	}
	if !found {
		t.Fatal("no patch for EAN 222")
	}
}

func TestTotalsPatchWritesEveryFlowColumn(t *testing.T) {
	p := Totals{VendorToFBA: 15}.Patch("e1")
	if len(p.Columns) != 10 {
		t.Fatalf("want 10 columns got=%d", len(p.Columns))
	}
	row := &models.SKUFact{}
	row.VendorToPC = 99
	p.Apply(row)
	if row.VendorToFBA != 15 || row.VendorToPC != 0 {
		t.Fatalf("unexpected flow columns: fba=%v pc=%v", row.VendorToFBA, row.VendorToPC)
	}
}

func TestLoadRulesFromYAML(t *testing.T) {
	rules, err := LoadRules(filepath.Join("..", "..", "configs", "flow_rules.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(rules, DefaultRules().normalized()) {
		t.Fatalf("shipped yaml diverges from defaults:\n%v\n%v", rules, DefaultRules())
	}

	def, err := LoadRules("")
	if err != nil || len(def) != 10 {
		t.Fatalf("empty path must return defaults: %v %v", def, err)
	}
}

func TestParseRulesRejectsInvalid(t *testing.T) {
	testCases := map[string]string{
		"unknown bucket": "rules:\n  - bucket: vendor_to_moon\n    buyer: [x]\n",
		"no patterns":    "rules:\n  - bucket: vendor_to_fba\n",
		"empty":          "rules: []\n",
	}
	for name, raw := range testCases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseRules([]byte(raw)); !errors.Is(err, ErrInvalidRule) {
				t.Fatalf("want ErrInvalidRule got=%v", err)
			}
		})
	}
}

func TestParseRulesCustomOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	raw := "rules:\n  - bucket: vendor_to_pc\n    buyer_tag: [' HIVE ']\n  - bucket: vendor_to_fba\n    buyer_tag: [amazon]\n"
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got, _ := rules.Classify(OrderLine{BuyerTag: "hive-amazon"}); got != VendorToPC {
		t.Fatalf("first rule must win, got=%q", got)
	}
}
