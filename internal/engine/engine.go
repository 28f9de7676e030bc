// Package engine resolves an item into its requirement tree and folds the
// tree into a crafting plan: aggregated acquisition lists, cost totals, and
// a deterministic crafting order.
package engine

import (
	"fmt"
	"sort"
	"strings"

	"craftplan/internal/catalog"
	"craftplan/internal/domain"
)

// CycleError reports a craft item that transitively requires itself.
type CycleError struct {
	Item string
	Path []string
}

func (e CycleError) Error() string {
	return fmt.Sprintf("crafting cycle detected: %s", strings.Join(append(e.Path, e.Item), " -> "))
}

// InconsistentDataError reports contradictory unit costs for the same
// purchased item across tree branches. Unreachable with one rule per item,
// but the aggregation invariant is asserted anyway.
type InconsistentDataError struct {
	Item     string
	Got      int
	Expected int
}

func (e InconsistentDataError) Error() string {
	return fmt.Sprintf("conflicting unit costs for purchased item %q: %d vs %d", e.Item, e.Expected, e.Got)
}

// Engine computes crafting plans against a fixed catalog. It holds no
// mutable state; one engine may serve any number of resolutions.
type Engine struct {
	Catalog *catalog.Catalog
}

func New(c *catalog.Catalog) Engine {
	return Engine{Catalog: c}
}

// Resolve expands item into a requirement tree for quantity units. The tree
// is built fresh on every call and owned by the caller. Resolution either
// completes fully or fails with a CycleError.
func (e Engine) Resolve(item string, quantity int) (*domain.RequirementNode, error) {
	if quantity <= 0 {
		return nil, fmt.Errorf("quantity must be positive (got %d)", quantity)
	}
	return e.resolve(item, quantity, nil)
}

// resolve carries the in-flight descent path for cycle detection. The path
// covers only the active branch: the same item is allowed to reappear in
// sibling subtrees.
func (e Engine) resolve(item string, quantity int, path []string) (*domain.RequirementNode, error) {
	rule := e.Catalog.Lookup(item)
	node := &domain.RequirementNode{
		Item:       item,
		Method:     rule.Method,
		Quantity:   quantity,
		Profession: rule.Profession,
		SkillTier:  rule.SkillTier,
	}

	switch rule.Method {
	case domain.MethodRaw:
		node.UnitCost = 0
	case domain.MethodPurchase:
		node.UnitCost = rule.Cost
	case domain.MethodCraft:
		for _, p := range path {
			if p == item {
				return nil, CycleError{Item: item, Path: append([]string(nil), path...)}
			}
		}
		branch := append(append([]string(nil), path...), item)
		node.UnitCost = rule.Cost
		for _, mat := range rule.Materials {
			child, err := e.resolve(mat.Item, mat.Quantity*quantity, branch)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
			node.UnitCost += mat.Quantity * child.UnitCost
		}
	default:
		// The catalog validates methods at construction; reject anyway in
		// case a rule arrived through another path.
		return nil, catalog.InvalidRuleError{Item: item, Reason: fmt.Sprintf("unknown method %q", rule.Method)}
	}

	node.TotalCost = quantity * node.UnitCost
	return node, nil
}

// Aggregates is the flattened view of one requirement tree.
type Aggregates struct {
	RawMaterials        map[string]int
	Purchases           map[string]domain.PurchaseLine
	TotalCraftingFees   int
	TotalPurchaseCost   int
	ProfessionsRequired map[string]int
}

// Aggregate folds the tree into deduplicated acquisition lists and cost
// totals. Merging is commutative, so traversal order does not affect the
// result; quantities for repeated items always sum, never overwrite.
func (e Engine) Aggregate(root *domain.RequirementNode) (Aggregates, error) {
	agg := Aggregates{
		RawMaterials:        map[string]int{},
		Purchases:           map[string]domain.PurchaseLine{},
		ProfessionsRequired: map[string]int{},
	}
	if err := e.fold(root, &agg); err != nil {
		return Aggregates{}, err
	}
	for item, line := range agg.Purchases {
		line.TotalCost = line.Quantity * line.UnitCost
		agg.Purchases[item] = line
		agg.TotalPurchaseCost += line.TotalCost
	}
	return agg, nil
}

func (e Engine) fold(node *domain.RequirementNode, agg *Aggregates) error {
	switch node.Method {
	case domain.MethodRaw:
		agg.RawMaterials[node.Item] += node.Quantity
	case domain.MethodPurchase:
		line, seen := agg.Purchases[node.Item]
		if !seen {
			line.UnitCost = node.UnitCost
		} else if line.UnitCost != node.UnitCost {
			return InconsistentDataError{Item: node.Item, Got: node.UnitCost, Expected: line.UnitCost}
		}
		line.Quantity += node.Quantity
		agg.Purchases[node.Item] = line
	case domain.MethodCraft:
		// The fee is incurred once per node: quantity craft operations at
		// this position, each costing the rule's per-craft fee. Children
		// carry their own costs; no double counting.
		agg.TotalCraftingFees += e.Catalog.Lookup(node.Item).Cost * node.Quantity
	}
	if node.Profession != "" && node.SkillTier > agg.ProfessionsRequired[node.Profession] {
		agg.ProfessionsRequired[node.Profession] = node.SkillTier
	}
	for _, child := range node.Children {
		if err := e.fold(child, agg); err != nil {
			return err
		}
	}
	return nil
}

// BuildOrder lists the distinct craft items in the tree, ascending by skill
// tier with alphabetical tie-break, so simpler intermediates come first and
// the sequence is deterministic.
func BuildOrder(root *domain.RequirementNode) []string {
	tiers := map[string]int{}
	collectCraftTiers(root, tiers)
	order := make([]string, 0, len(tiers))
	for item := range tiers {
		order = append(order, item)
	}
	sort.Slice(order, func(i, j int) bool {
		if tiers[order[i]] != tiers[order[j]] {
			return tiers[order[i]] < tiers[order[j]]
		}
		return order[i] < order[j]
	})
	return order
}

func collectCraftTiers(node *domain.RequirementNode, tiers map[string]int) {
	if node.Method == domain.MethodCraft {
		tiers[node.Item] = node.SkillTier
	}
	for _, child := range node.Children {
		collectCraftTiers(child, tiers)
	}
}

// CraftCounts returns the total units of each distinct craft item in the
// tree, for rendering step-by-step instructions.
func CraftCounts(root *domain.RequirementNode) map[string]int {
	counts := map[string]int{}
	var walk func(*domain.RequirementNode)
	walk = func(n *domain.RequirementNode) {
		if n.Method == domain.MethodCraft {
			counts[n.Item] += n.Quantity
		}
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(root)
	return counts
}

// PlanFromTree folds an already-resolved tree into a crafting plan, so a
// caller holding the tree for rendering does not resolve twice.
func (e Engine) PlanFromTree(root *domain.RequirementNode) (domain.CraftingPlan, error) {
	agg, err := e.Aggregate(root)
	if err != nil {
		return domain.CraftingPlan{}, err
	}
	return domain.CraftingPlan{
		RootItem:            root.Item,
		RootQuantity:        root.Quantity,
		TotalCraftingFees:   agg.TotalCraftingFees,
		TotalPurchaseCost:   agg.TotalPurchaseCost,
		TotalCost:           agg.TotalCraftingFees + agg.TotalPurchaseCost,
		RawMaterials:        agg.RawMaterials,
		Purchases:           agg.Purchases,
		ProfessionsRequired: agg.ProfessionsRequired,
		CraftingOrder:       BuildOrder(root),
	}, nil
}

// ComputePlan is the single entry point: resolve, aggregate, and order in
// one call. Quantity zero defaults to one unit.
func (e Engine) ComputePlan(item string, quantity int) (domain.CraftingPlan, error) {
	if quantity == 0 {
		quantity = 1
	}
	root, err := e.Resolve(item, quantity)
	if err != nil {
		return domain.CraftingPlan{}, err
	}
	return e.PlanFromTree(root)
}
