// Package catalog holds the immutable item-to-acquisition-rule index.
package catalog

import (
	"fmt"
	"sort"

	"craftplan/internal/domain"
)

// InvalidRuleError reports a rule rejected at catalog construction.
type InvalidRuleError struct {
	Item   string
	Reason string
}

func (e InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid rule for %q: %s", e.Item, e.Reason)
}

// Catalog answers Lookup for any item name. Construction validates every
// rule; after that the catalog is never mutated and may be shared freely.
type Catalog struct {
	rules map[string]domain.AcquisitionRule
}

// New validates rules and builds a catalog. Duplicate item names are
// rejected; each item has exactly one rule.
func New(rules []domain.AcquisitionRule) (*Catalog, error) {
	index := make(map[string]domain.AcquisitionRule, len(rules))
	for _, r := range rules {
		if err := validateRule(r); err != nil {
			return nil, err
		}
		if _, exists := index[r.Item]; exists {
			return nil, InvalidRuleError{Item: r.Item, Reason: "duplicate rule"}
		}
		index[r.Item] = r
	}
	return &Catalog{rules: index}, nil
}

func validateRule(r domain.AcquisitionRule) error {
	if r.Item == "" {
		return InvalidRuleError{Item: r.Item, Reason: "item name must not be empty"}
	}
	if !r.Method.Valid() {
		return InvalidRuleError{Item: r.Item, Reason: fmt.Sprintf("unknown method %q", r.Method)}
	}
	if r.Cost < 0 {
		return InvalidRuleError{Item: r.Item, Reason: fmt.Sprintf("cost must not be negative (got %d)", r.Cost)}
	}
	if r.SkillTier < 1 || r.SkillTier > 5 {
		return InvalidRuleError{Item: r.Item, Reason: fmt.Sprintf("skill tier must be between 1 and 5 (got %d)", r.SkillTier)}
	}
	switch r.Method {
	case domain.MethodCraft:
		if len(r.Materials) == 0 {
			return InvalidRuleError{Item: r.Item, Reason: "craft rule must list component materials"}
		}
	case domain.MethodRaw:
		if r.Cost != 0 {
			return InvalidRuleError{Item: r.Item, Reason: "raw rule must have zero cost"}
		}
		fallthrough
	case domain.MethodPurchase:
		if len(r.Materials) > 0 {
			return InvalidRuleError{Item: r.Item, Reason: "only craft rules may list materials"}
		}
	}
	for _, m := range r.Materials {
		if m.Item == "" {
			return InvalidRuleError{Item: r.Item, Reason: "material name must not be empty"}
		}
		if m.Quantity <= 0 {
			return InvalidRuleError{Item: r.Item, Reason: fmt.Sprintf("material quantity for %q must be positive (got %d)", m.Item, m.Quantity)}
		}
	}
	return nil
}

// Lookup returns the rule for item. Unknown names resolve to an implicit
// raw rule: cost zero, no materials, no profession or tier. Lookup never
// fails.
func (c *Catalog) Lookup(item string) domain.AcquisitionRule {
	if r, ok := c.rules[item]; ok {
		return r
	}
	return domain.AcquisitionRule{Item: item, Method: domain.MethodRaw}
}

// Has reports whether item has an explicit rule.
func (c *Catalog) Has(item string) bool {
	_, ok := c.rules[item]
	return ok
}

// Items returns all explicitly known item names, sorted.
func (c *Catalog) Items() []string {
	names := make([]string, 0, len(c.rules))
	for name := range c.rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len is the number of explicit rules.
func (c *Catalog) Len() int { return len(c.rules) }
