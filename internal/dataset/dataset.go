// Package dataset reads recipe rows from the CSV source format. Load is the
// strict loader used before planning; Lint is the lenient checker that
// collects every problem in the file for reporting.
package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"craftplan/internal/domain"
)

var requiredColumns = []string{"item", "materials", "method", "source", "profession", "skill_tier", "cost"}

// RowProblem carries every validation message for one CSV line.
type RowProblem struct {
	Line     int      `json:"line"`
	Item     string   `json:"item"`
	Messages []string `json:"messages"`
}

type row map[string]string

func readRows(path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("recipe data not found at %s", path)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: CSV file has no header row", path)
	}
	if err != nil {
		return nil, err
	}
	index := map[string]int{}
	for i, name := range header {
		index[strings.TrimSpace(name)] = i
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("CSV is missing required columns: %s", strings.Join(missing, ", "))
	}

	var rows []row
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		m := row{}
		for _, col := range requiredColumns {
			i := index[col]
			if i < len(record) {
				m[col] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, m)
	}
	return rows, nil
}

func (r row) blank() bool {
	for _, v := range r {
		if v != "" {
			return false
		}
	}
	return true
}

// parseMaterials splits the dash-delimited quantity/item pairs, e.g.
// "4-Iron Ingot-2-Leather Wrap".
func parseMaterials(field string) ([]domain.Material, error) {
	if field == "" {
		return nil, nil
	}
	var tokens []string
	for _, chunk := range strings.Split(field, "-") {
		if c := strings.TrimSpace(chunk); c != "" {
			tokens = append(tokens, c)
		}
	}
	if len(tokens)%2 != 0 {
		return nil, fmt.Errorf("materials must contain quantity/item pairs")
	}
	var materials []domain.Material
	for i := 0; i < len(tokens); i += 2 {
		qty, err := strconv.Atoi(tokens[i])
		if err != nil {
			return nil, fmt.Errorf("invalid material quantity %q", tokens[i])
		}
		if qty <= 0 {
			return nil, fmt.Errorf("material quantity must be positive (got %d)", qty)
		}
		materials = append(materials, domain.Material{Quantity: qty, Item: tokens[i+1]})
	}
	return materials, nil
}

func parseRule(r row) (domain.AcquisitionRule, error) {
	item := r["item"]
	if item == "" {
		return domain.AcquisitionRule{}, fmt.Errorf("encountered a row with an empty item name")
	}
	method := domain.Method(strings.ToLower(r["method"]))
	if !method.Valid() {
		return domain.AcquisitionRule{}, fmt.Errorf("unknown method %q for item %q", r["method"], item)
	}
	if r["source"] == "" {
		return domain.AcquisitionRule{}, fmt.Errorf("source location missing for item %q", item)
	}
	if r["profession"] == "" {
		return domain.AcquisitionRule{}, fmt.Errorf("profession missing for item %q", item)
	}
	tier, err := strconv.Atoi(r["skill_tier"])
	if err != nil {
		return domain.AcquisitionRule{}, fmt.Errorf("invalid skill tier %q for item %q", r["skill_tier"], item)
	}
	if tier < 1 || tier > 5 {
		return domain.AcquisitionRule{}, fmt.Errorf("skill tier for item %q must be between 1 and 5", item)
	}
	cost, err := strconv.Atoi(r["cost"])
	if err != nil {
		return domain.AcquisitionRule{}, fmt.Errorf("invalid cost %q for item %q", r["cost"], item)
	}
	if cost < 0 {
		return domain.AcquisitionRule{}, fmt.Errorf("cost for item %q must not be negative", item)
	}
	materials, err := parseMaterials(r["materials"])
	if err != nil {
		return domain.AcquisitionRule{}, fmt.Errorf("%v for item %q", err, item)
	}
	if method == domain.MethodCraft && len(materials) == 0 {
		return domain.AcquisitionRule{}, fmt.Errorf("crafted item %q must list its component materials", item)
	}
	return domain.AcquisitionRule{
		Item:       item,
		Method:     method,
		Materials:  materials,
		Cost:       cost,
		Source:     r["source"],
		Profession: r["profession"],
		SkillTier:  tier,
	}, nil
}

// Load reads all rules from the CSV at path. The first invalid row aborts
// the load. Fully blank rows are skipped.
func Load(path string) ([]domain.AcquisitionRule, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	var rules []domain.AcquisitionRule
	for _, r := range rows {
		if r.blank() {
			continue
		}
		rule, err := parseRule(r)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Lint validates every row and returns all problems found, keyed by CSV
// line number (the header is line 1).
func Lint(path string) ([]RowProblem, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	var problems []RowProblem
	for i, r := range rows {
		if r.blank() {
			continue
		}
		msgs := lintRow(r)
		if len(msgs) > 0 {
			item := r["item"]
			if item == "" {
				item = "<missing item>"
			}
			problems = append(problems, RowProblem{Line: i + 2, Item: item, Messages: msgs})
		}
	}
	return problems, nil
}

func lintRow(r row) []string {
	var msgs []string
	if r["item"] == "" {
		msgs = append(msgs, "item name must not be empty")
	}
	method := domain.Method(strings.ToLower(r["method"]))
	if !method.Valid() {
		got := r["method"]
		if got == "" {
			got = "blank"
		}
		msgs = append(msgs, fmt.Sprintf("method must be one of craft, purchase, raw (got %s)", got))
	}
	if r["source"] == "" {
		msgs = append(msgs, "source location must not be empty")
	}
	if r["profession"] == "" {
		msgs = append(msgs, "profession must not be empty")
	}
	if tier, err := strconv.Atoi(r["skill_tier"]); err != nil {
		msgs = append(msgs, fmt.Sprintf("skill tier must be an integer (got %s)", orBlank(r["skill_tier"])))
	} else if tier < 1 || tier > 5 {
		msgs = append(msgs, "skill tier must be between 1 and 5")
	}
	if cost, err := strconv.Atoi(r["cost"]); err != nil {
		msgs = append(msgs, fmt.Sprintf("cost must be an integer (got %s)", orBlank(r["cost"])))
	} else if cost < 0 {
		msgs = append(msgs, "cost must not be negative")
	}
	materials, err := parseMaterials(r["materials"])
	if err != nil {
		msgs = append(msgs, err.Error())
	} else if method == domain.MethodCraft && len(materials) == 0 {
		msgs = append(msgs, "crafted items must list component materials")
	}
	return msgs
}

func orBlank(v string) string {
	if v == "" {
		return "blank"
	}
	return v
}
