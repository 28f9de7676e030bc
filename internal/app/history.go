package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"craftplan/internal/domain"
	"craftplan/internal/events"
	"craftplan/internal/repo"
)

// SavePlan records a computed plan in the workspace history and appends a
// plan.computed event. The id is derived from the request and timestamp so
// repeated saves stay distinct but reproducible.
func SavePlan(ctx context.Context, r repo.Repo, plan domain.CraftingPlan, actorID string, now time.Time) (domain.PlanRecord, error) {
	ts := now.UTC().Format(time.RFC3339)
	rec := domain.PlanRecord{
		ID:           uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("%s|%d|%s", plan.RootItem, plan.RootQuantity, ts))).String(),
		RootItem:     plan.RootItem,
		RootQuantity: plan.RootQuantity,
		TotalCost:    plan.TotalCost,
		Plan:         plan,
		CreatedAt:    ts,
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.PlanRecord{}, err
	}
	defer tx.Rollback()
	if err := r.InsertPlanTx(ctx, tx, rec); err != nil {
		return domain.PlanRecord{}, fmt.Errorf("insert plan: %w", err)
	}
	w := events.Writer{DB: r.DB, Now: func() time.Time { return now }}
	if err := w.Append(ctx, tx, "plan.computed", "plan", rec.ID, actorID, events.EventPayload{
		"root_item":     rec.RootItem,
		"root_quantity": rec.RootQuantity,
		"total_cost":    rec.TotalCost,
	}); err != nil {
		return domain.PlanRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.PlanRecord{}, err
	}
	return rec, nil
}

// ImportDataset replaces the workspace recipe catalog inside one
// transaction and logs a dataset.import event.
func ImportDataset(ctx context.Context, r repo.Repo, rules []domain.AcquisitionRule, source, actorID string, now time.Time) error {
	ts := now.UTC().Format(time.RFC3339)
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := r.ReplaceRecipesTx(ctx, tx, rules, ts); err != nil {
		return err
	}
	w := events.Writer{DB: r.DB, Now: func() time.Time { return now }}
	if err := w.Append(ctx, tx, "dataset.import", "dataset", source, actorID, events.EventPayload{
		"recipes": len(rules),
	}); err != nil {
		return err
	}
	return tx.Commit()
}
