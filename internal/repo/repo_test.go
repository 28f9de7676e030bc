package repo_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"craftplan/internal/db"
	"craftplan/internal/domain"
	"craftplan/internal/migrate"
	"craftplan/internal/repo"
)

func newTestRepo(t *testing.T) (repo.Repo, *sql.DB) {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}, conn
}

func TestRecipeRoundTrip(t *testing.T) {
	r, conn := newTestRepo(t)
	ctx := context.Background()
	rule := domain.AcquisitionRule{
		Item:   "Steel Longsword",
		Method: domain.MethodCraft,
		Materials: []domain.Material{
			{Quantity: 4, Item: "Iron Ingot"},
			{Quantity: 2, Item: "Leather Wrap"},
		},
		Cost: 50, Source: "Forge", Profession: "Blacksmithing", SkillTier: 3,
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := r.UpsertRecipeTx(ctx, tx, rule, "2024-01-01T00:00:00Z"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, err := r.GetRecipe(ctx, "Steel Longsword")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Cost != 50 || len(got.Materials) != 2 || got.Materials[0].Item != "Iron Ingot" {
		t.Fatalf("unexpected recipe: %+v", got)
	}
	if _, err := r.GetRecipe(ctx, "Missing"); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReplaceRecipes(t *testing.T) {
	r, conn := newTestRepo(t)
	ctx := context.Background()
	first := []domain.AcquisitionRule{
		{Item: "Old Item", Method: domain.MethodRaw, Source: "Field", Profession: "Gathering", SkillTier: 1},
	}
	second := []domain.AcquisitionRule{
		{Item: "New Item", Method: domain.MethodPurchase, Cost: 5, Source: "Vendor", Profession: "Trading", SkillTier: 2},
		{Item: "Other Item", Method: domain.MethodRaw, Source: "Field", Profession: "Gathering", SkillTier: 1},
	}
	for _, rules := range [][]domain.AcquisitionRule{first, second} {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			t.Fatalf("begin: %v", err)
		}
		if err := r.ReplaceRecipesTx(ctx, tx, rules, "2024-01-01T00:00:00Z"); err != nil {
			t.Fatalf("replace: %v", err)
		}
		if err := tx.Commit(); err != nil {
			t.Fatalf("commit: %v", err)
		}
	}
	rules, err := r.ListRecipes(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rules) != 2 || rules[0].Item != "New Item" {
		t.Fatalf("expected replaced catalog, got %+v", rules)
	}
	counts, err := r.CountRecipesByMethod(ctx)
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if counts["purchase"] != 1 || counts["raw"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestPlanHistoryRoundTrip(t *testing.T) {
	r, conn := newTestRepo(t)
	ctx := context.Background()
	rec := domain.PlanRecord{
		ID:           "plan-1",
		RootItem:     "Steel Longsword",
		RootQuantity: 1,
		TotalCost:    100,
		Plan: domain.CraftingPlan{
			RootItem:          "Steel Longsword",
			RootQuantity:      1,
			TotalCraftingFees: 60,
			TotalPurchaseCost: 40,
			TotalCost:         100,
			RawMaterials:      map[string]int{"Leather": 2},
			Purchases:         map[string]domain.PurchaseLine{"Iron Ingot": {Quantity: 4, UnitCost: 10, TotalCost: 40}},
			CraftingOrder:     []string{"Leather Wrap", "Steel Longsword"},
		},
		CreatedAt: "2024-01-01T00:00:00Z",
	}
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := r.InsertPlanTx(ctx, tx, rec); err != nil {
		t.Fatalf("insert plan: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	got, err := r.GetPlan(ctx, "plan-1")
	if err != nil {
		t.Fatalf("get plan: %v", err)
	}
	if got.Plan.TotalCost != 100 || got.Plan.RawMaterials["Leather"] != 2 {
		t.Fatalf("unexpected plan record: %+v", got)
	}
	plans, err := r.ListPlans(ctx, 10)
	if err != nil {
		t.Fatalf("list plans: %v", err)
	}
	if len(plans) != 1 || plans[0].ID != "plan-1" {
		t.Fatalf("unexpected plan listing: %+v", plans)
	}
}
