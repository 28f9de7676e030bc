package catalog_test

import (
	"errors"
	"testing"

	"craftplan/internal/catalog"
	"craftplan/internal/domain"
)

func TestLookupFallsBackToImplicitRaw(t *testing.T) {
	cat, err := catalog.New(nil)
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	rule := cat.Lookup("Mystery Herb")
	if rule.Method != domain.MethodRaw {
		t.Fatalf("expected raw method, got %q", rule.Method)
	}
	if rule.Cost != 0 || len(rule.Materials) != 0 || rule.Profession != "" || rule.SkillTier != 0 {
		t.Fatalf("implicit raw rule must be trivial, got %+v", rule)
	}
	if cat.Has("Mystery Herb") {
		t.Fatalf("implicit rule must not count as explicit")
	}
}

func TestLookupExplicitRule(t *testing.T) {
	cat, err := catalog.New([]domain.AcquisitionRule{
		{Item: "Iron Ingot", Method: domain.MethodPurchase, Cost: 10, Source: "Vendor", Profession: "Smelting", SkillTier: 1},
	})
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	rule := cat.Lookup("Iron Ingot")
	if rule.Cost != 10 || rule.Method != domain.MethodPurchase {
		t.Fatalf("unexpected rule: %+v", rule)
	}
	if !cat.Has("Iron Ingot") || cat.Len() != 1 {
		t.Fatalf("catalog must index the explicit rule")
	}
}

func TestValidationRejectsBadRules(t *testing.T) {
	cases := []struct {
		name string
		rule domain.AcquisitionRule
	}{
		{"empty item", domain.AcquisitionRule{Method: domain.MethodRaw, SkillTier: 1}},
		{"unknown method", domain.AcquisitionRule{Item: "X", Method: "barter", SkillTier: 1}},
		{"negative cost", domain.AcquisitionRule{Item: "X", Method: domain.MethodPurchase, Cost: -1, SkillTier: 1}},
		{"tier too low", domain.AcquisitionRule{Item: "X", Method: domain.MethodRaw, SkillTier: 0}},
		{"tier too high", domain.AcquisitionRule{Item: "X", Method: domain.MethodRaw, SkillTier: 6}},
		{"craft without materials", domain.AcquisitionRule{Item: "X", Method: domain.MethodCraft, Cost: 1, SkillTier: 1}},
		{"raw with cost", domain.AcquisitionRule{Item: "X", Method: domain.MethodRaw, Cost: 3, SkillTier: 1}},
		{"purchase with materials", domain.AcquisitionRule{Item: "X", Method: domain.MethodPurchase, Cost: 1, SkillTier: 1, Materials: []domain.Material{{Quantity: 1, Item: "Y"}}}},
		{"zero material quantity", domain.AcquisitionRule{Item: "X", Method: domain.MethodCraft, Cost: 1, SkillTier: 1, Materials: []domain.Material{{Quantity: 0, Item: "Y"}}}},
		{"empty material name", domain.AcquisitionRule{Item: "X", Method: domain.MethodCraft, Cost: 1, SkillTier: 1, Materials: []domain.Material{{Quantity: 2}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := catalog.New([]domain.AcquisitionRule{tc.rule})
			var verr catalog.InvalidRuleError
			if !errors.As(err, &verr) {
				t.Fatalf("expected InvalidRuleError, got %v", err)
			}
		})
	}
}

func TestDuplicateItemRejected(t *testing.T) {
	_, err := catalog.New([]domain.AcquisitionRule{
		{Item: "X", Method: domain.MethodRaw, SkillTier: 1},
		{Item: "X", Method: domain.MethodRaw, SkillTier: 2},
	})
	if err == nil {
		t.Fatalf("expected duplicate rule error")
	}
}

func TestItemsSorted(t *testing.T) {
	cat, err := catalog.New([]domain.AcquisitionRule{
		{Item: "Zinc", Method: domain.MethodRaw, SkillTier: 1},
		{Item: "Alder", Method: domain.MethodRaw, SkillTier: 1},
		{Item: "Moss", Method: domain.MethodRaw, SkillTier: 1},
	})
	if err != nil {
		t.Fatalf("new catalog: %v", err)
	}
	items := cat.Items()
	if len(items) != 3 || items[0] != "Alder" || items[1] != "Moss" || items[2] != "Zinc" {
		t.Fatalf("expected sorted items, got %v", items)
	}
}
