package domain

// Method is how an item is obtained.
type Method string

const (
	MethodCraft    Method = "craft"
	MethodPurchase Method = "purchase"
	MethodRaw      Method = "raw"
)

// Valid reports whether m is a known acquisition method.
func (m Method) Valid() bool {
	switch m {
	case MethodCraft, MethodPurchase, MethodRaw:
		return true
	}
	return false
}

// Material is one component line of a craft rule.
type Material struct {
	Quantity int    `json:"quantity"`
	Item     string `json:"item"`
}

// AcquisitionRule describes how one item is obtained. Cost is in copper:
// per craft operation for craft rules, per unit for purchase rules, zero
// for raw rules.
type AcquisitionRule struct {
	Item       string     `json:"item"`
	Method     Method     `json:"method" enum:"craft,purchase,raw"`
	Materials  []Material `json:"materials,omitempty"`
	Cost       int        `json:"cost"`
	Source     string     `json:"source,omitempty"`
	Profession string     `json:"profession,omitempty"`
	SkillTier  int        `json:"skill_tier,omitempty"`
}

// RequirementNode is one resolved occurrence of an item in a requirement
// tree. Quantity is the total units needed at this position, UnitCost the
// fully recursive cost of one unit, TotalCost = Quantity * UnitCost.
type RequirementNode struct {
	Item       string             `json:"item"`
	Method     Method             `json:"method" enum:"craft,purchase,raw"`
	Quantity   int                `json:"quantity"`
	UnitCost   int                `json:"unit_cost"`
	TotalCost  int                `json:"total_cost"`
	Children   []*RequirementNode `json:"children,omitempty"`
	Profession string             `json:"profession,omitempty"`
	SkillTier  int                `json:"skill_tier,omitempty"`
}

// PurchaseLine is the aggregated purchase requirement for one item.
type PurchaseLine struct {
	Quantity  int `json:"quantity"`
	UnitCost  int `json:"unit_cost"`
	TotalCost int `json:"total_cost"`
}

// CraftingPlan is the aggregated report for one requested item.
type CraftingPlan struct {
	RootItem            string                  `json:"root_item"`
	RootQuantity        int                     `json:"root_quantity"`
	TotalCraftingFees   int                     `json:"total_crafting_fees"`
	TotalPurchaseCost   int                     `json:"total_purchase_cost"`
	TotalCost           int                     `json:"total_cost"`
	RawMaterials        map[string]int          `json:"raw_materials"`
	Purchases           map[string]PurchaseLine `json:"purchases"`
	ProfessionsRequired map[string]int          `json:"professions_required"`
	CraftingOrder       []string                `json:"crafting_order"`
}

// PlanRecord is a saved plan in the workspace history.
type PlanRecord struct {
	ID           string       `json:"id"`
	RootItem     string       `json:"root_item"`
	RootQuantity int          `json:"root_quantity"`
	TotalCost    int          `json:"total_cost"`
	Plan         CraftingPlan `json:"plan"`
	CreatedAt    string       `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
