// Package render turns a crafting plan into human-readable report text:
// coin amounts, summary and acquisition tables, and the step-by-step boxes.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"craftplan/internal/catalog"
	"craftplan/internal/domain"
	"craftplan/internal/engine"
)

// Coins formats a copper amount using the display denominations
// (1 gold = 100 silver = 10000 copper). Zero denominations are omitted;
// a zero total renders as "0 copper".
func Coins(v int) string {
	gold := v / 10000
	remainder := v % 10000
	silver := remainder / 100
	copper := remainder % 100

	var parts []string
	if gold > 0 {
		parts = append(parts, fmt.Sprintf("%d gold", gold))
	}
	if silver > 0 {
		parts = append(parts, fmt.Sprintf("%d silver", silver))
	}
	if copper > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d copper", copper))
	}
	return strings.Join(parts, ", ")
}

// QuantityName renders "3 Iron Ingots", leaving names that already end in
// "s" alone.
func QuantityName(quantity int, name string) string {
	if quantity == 1 || strings.HasSuffix(strings.ToLower(name), "s") {
		return fmt.Sprintf("%d %s", quantity, name)
	}
	return fmt.Sprintf("%d %ss", quantity, name)
}

// JoinWithCommas joins parts in prose style: "a", "a and b",
// "a, b, and c".
func JoinWithCommas(parts []string) string {
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	case 2:
		return parts[0] + " and " + parts[1]
	}
	return strings.Join(parts[:len(parts)-1], ", ") + ", and " + parts[len(parts)-1]
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sourceOrDefault(cat *catalog.Catalog, item, def string) string {
	if rule := cat.Lookup(item); rule.Source != "" {
		return rule.Source
	}
	return def
}

func professionCells(cat *catalog.Catalog, item string) (string, string) {
	rule := cat.Lookup(item)
	profession := rule.Profession
	if profession == "" {
		profession = "Unknown"
	}
	tier := "-"
	if rule.SkillTier > 0 {
		tier = fmt.Sprintf("%d", rule.SkillTier)
	}
	return profession, tier
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	return tw
}

// Summary renders the top report table for a plan.
func Summary(plan domain.CraftingPlan, cat *catalog.Catalog) string {
	gathered := make([]string, 0, len(plan.RawMaterials))
	for _, name := range sortedKeys(plan.RawMaterials) {
		gathered = append(gathered, QuantityName(plan.RawMaterials[name], name))
	}
	gatherList := "None"
	if len(gathered) > 0 {
		gatherList = JoinWithCommas(gathered)
	}

	skills := "None"
	if len(plan.ProfessionsRequired) > 0 {
		var entries []string
		for _, profession := range sortedKeys(plan.ProfessionsRequired) {
			entries = append(entries, fmt.Sprintf("%s %d", profession, plan.ProfessionsRequired[profession]))
		}
		skills = strings.Join(entries, ", ")
	}

	tw := newTable()
	tw.AppendHeader(table.Row{"Summary", "Value"})
	tw.AppendRow(table.Row{"Item", plan.RootItem})
	tw.AppendRow(table.Row{"Quantity", plan.RootQuantity})
	tw.AppendRow(table.Row{"Source", sourceOrDefault(cat, plan.RootItem, "Unknown source")})
	tw.AppendRow(table.Row{"Crafting Fees", Coins(plan.TotalCraftingFees)})
	tw.AppendRow(table.Row{"Gathered Ingredients", gatherList})
	tw.AppendRow(table.Row{"Skills", skills})
	tw.AppendRow(table.Row{"Total Coin Cost", Coins(plan.TotalCost)})
	return tw.Render()
}

// RawMaterials renders the gathered-materials table.
func RawMaterials(plan domain.CraftingPlan, cat *catalog.Catalog) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"Raw Material", "Quantity", "Location", "Profession", "Skill Tier"})
	if len(plan.RawMaterials) == 0 {
		tw.AppendRow(table.Row{"None", "-", "No raw materials required.", "-", "-"})
		return tw.Render()
	}
	for _, name := range sortedKeys(plan.RawMaterials) {
		profession, tier := professionCells(cat, name)
		tw.AppendRow(table.Row{name, plan.RawMaterials[name], sourceOrDefault(cat, name, "Unknown location"), profession, tier})
	}
	return tw.Render()
}

// Purchases renders the purchases table.
func Purchases(plan domain.CraftingPlan, cat *catalog.Catalog) string {
	tw := newTable()
	tw.AppendHeader(table.Row{"Purchase Item", "Quantity", "Location", "Profession", "Skill Tier", "Unit Cost", "Total Cost"})
	if len(plan.Purchases) == 0 {
		tw.AppendRow(table.Row{"None", "-", "No purchase locations.", "-", "-", "-", "No purchases required."})
		return tw.Render()
	}
	for _, name := range sortedKeys(plan.Purchases) {
		line := plan.Purchases[name]
		profession, tier := professionCells(cat, name)
		tw.AppendRow(table.Row{
			name, line.Quantity, sourceOrDefault(cat, name, "Unknown source"),
			profession, tier, Coins(line.UnitCost), Coins(line.TotalCost),
		})
	}
	return tw.Render()
}

func box(title string, lines []string) string {
	tw := newTable()
	tw.SetTitle(title)
	for _, line := range lines {
		tw.AppendRow(table.Row{line})
	}
	return tw.Render()
}

// GatherSteps renders the "gather raw materials" box.
func GatherSteps(plan domain.CraftingPlan, cat *catalog.Catalog) string {
	var lines []string
	for _, name := range sortedKeys(plan.RawMaterials) {
		lines = append(lines, fmt.Sprintf("- %s (%s)", QuantityName(plan.RawMaterials[name], name), sourceOrDefault(cat, name, "Unknown location")))
	}
	if len(lines) == 0 {
		lines = []string{"- No gathering required"}
	}
	return box("1) Gather Raw Materials", lines)
}

// PurchaseSteps renders the "purchase supplies" box.
func PurchaseSteps(plan domain.CraftingPlan, cat *catalog.Catalog) string {
	var lines []string
	for _, name := range sortedKeys(plan.Purchases) {
		line := plan.Purchases[name]
		lines = append(lines, fmt.Sprintf("- %s (%s) @ %s each -> %s",
			QuantityName(line.Quantity, name), sourceOrDefault(cat, name, "Unknown source"),
			Coins(line.UnitCost), Coins(line.TotalCost)))
	}
	if len(lines) == 0 {
		lines = []string{"- No purchases required"}
	}
	return box("2) Purchase Supplies", lines)
}

// CraftingSteps renders the numbered crafting-order box. Counts come from
// engine.CraftCounts on the resolved tree.
func CraftingSteps(plan domain.CraftingPlan, cat *catalog.Catalog, counts map[string]int) string {
	var lines []string
	for _, item := range plan.CraftingOrder {
		rule := cat.Lookup(item)
		if rule.Method != domain.MethodCraft {
			continue
		}
		quantity := counts[item]
		var used []string
		for _, mat := range rule.Materials {
			used = append(used, QuantityName(mat.Quantity*quantity, mat.Item))
		}
		if fee := rule.Cost * quantity; fee > 0 {
			used = append(used, Coins(fee)+" fee")
		}
		station := sourceOrDefault(cat, item, "Unknown crafting station")
		lines = append(lines, fmt.Sprintf("%d. Craft %s at %s using %s",
			len(lines)+1, QuantityName(quantity, item), station, JoinWithCommas(used)))
	}
	if len(lines) == 0 {
		lines = []string{"- No crafting steps required"}
	}
	return box("3) Crafting Order", lines)
}

// Report renders the full plan report.
func Report(plan domain.CraftingPlan, cat *catalog.Catalog, root *domain.RequirementNode) string {
	counts := engine.CraftCounts(root)
	sections := []string{
		Summary(plan, cat),
		RawMaterials(plan, cat),
		Purchases(plan, cat),
		GatherSteps(plan, cat),
		PurchaseSteps(plan, cat),
		CraftingSteps(plan, cat, counts),
	}
	return strings.Join(sections, "\n\n")
}
