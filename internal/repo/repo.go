package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"craftplan/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

func marshalMaterials(materials []domain.Material) (string, error) {
	if materials == nil {
		materials = []domain.Material{}
	}
	data, err := json.Marshal(materials)
	if err != nil {
		return "", fmt.Errorf("marshal materials: %w", err)
	}
	return string(data), nil
}

func scanRecipe(scan func(dest ...any) error) (domain.AcquisitionRule, error) {
	var r domain.AcquisitionRule
	var materialsJSON string
	err := scan(&r.Item, &r.Method, &materialsJSON, &r.Cost, &r.Source, &r.Profession, &r.SkillTier)
	if err == sql.ErrNoRows {
		return r, ErrNotFound
	}
	if err != nil {
		return r, err
	}
	if err := json.Unmarshal([]byte(materialsJSON), &r.Materials); err != nil {
		return r, fmt.Errorf("unmarshal materials for %s: %w", r.Item, err)
	}
	if len(r.Materials) == 0 {
		r.Materials = nil
	}
	return r, nil
}

func (r Repo) UpsertRecipeTx(ctx context.Context, tx *sql.Tx, rule domain.AcquisitionRule, importedAt string) error {
	materialsJSON, err := marshalMaterials(rule.Materials)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO recipes(item,method,materials_json,cost,source,profession,skill_tier,imported_at)
		VALUES (?,?,?,?,?,?,?,?)
		ON CONFLICT(item) DO UPDATE SET method=excluded.method, materials_json=excluded.materials_json,
			cost=excluded.cost, source=excluded.source, profession=excluded.profession,
			skill_tier=excluded.skill_tier, imported_at=excluded.imported_at`,
		rule.Item, string(rule.Method), materialsJSON, rule.Cost, rule.Source, rule.Profession, rule.SkillTier, importedAt)
	return err
}

func (r Repo) GetRecipe(ctx context.Context, item string) (domain.AcquisitionRule, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT item,method,materials_json,cost,source,profession,skill_tier FROM recipes WHERE item=?`, item)
	return scanRecipe(row.Scan)
}

func (r Repo) ListRecipes(ctx context.Context) ([]domain.AcquisitionRule, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT item,method,materials_json,cost,source,profession,skill_tier FROM recipes ORDER BY item`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rules []domain.AcquisitionRule
	for rows.Next() {
		rule, err := scanRecipe(rows.Scan)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r Repo) CountRecipes(ctx context.Context) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM recipes`).Scan(&n)
	return n, err
}

func (r Repo) CountRecipesByMethod(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT method, COUNT(*) FROM recipes GROUP BY method`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := map[string]int{}
	for rows.Next() {
		var method string
		var n int
		if err := rows.Scan(&method, &n); err != nil {
			return nil, err
		}
		counts[method] = n
	}
	return counts, rows.Err()
}

func (r Repo) ReplaceRecipesTx(ctx context.Context, tx *sql.Tx, rules []domain.AcquisitionRule, importedAt string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM recipes`); err != nil {
		return fmt.Errorf("clear recipes: %w", err)
	}
	for _, rule := range rules {
		if err := r.UpsertRecipeTx(ctx, tx, rule, importedAt); err != nil {
			return fmt.Errorf("insert recipe %s: %w", rule.Item, err)
		}
	}
	return nil
}

func (r Repo) InsertPlanTx(ctx context.Context, tx *sql.Tx, rec domain.PlanRecord) error {
	planJSON, err := json.Marshal(rec.Plan)
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO plans(id,root_item,root_quantity,total_cost,plan_json,created_at) VALUES (?,?,?,?,?,?)`,
		rec.ID, rec.RootItem, rec.RootQuantity, rec.TotalCost, string(planJSON), rec.CreatedAt)
	return err
}

func (r Repo) GetPlan(ctx context.Context, id string) (domain.PlanRecord, error) {
	var rec domain.PlanRecord
	var planJSON string
	row := r.DB.QueryRowContext(ctx, `SELECT id,root_item,root_quantity,total_cost,plan_json,created_at FROM plans WHERE id=?`, id)
	err := row.Scan(&rec.ID, &rec.RootItem, &rec.RootQuantity, &rec.TotalCost, &planJSON, &rec.CreatedAt)
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	if err := json.Unmarshal([]byte(planJSON), &rec.Plan); err != nil {
		return rec, fmt.Errorf("unmarshal plan %s: %w", rec.ID, err)
	}
	return rec, nil
}

func (r Repo) ListPlans(ctx context.Context, limit int) ([]domain.PlanRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,root_item,root_quantity,total_cost,plan_json,created_at FROM plans ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var recs []domain.PlanRecord
	for rows.Next() {
		var rec domain.PlanRecord
		var planJSON string
		if err := rows.Scan(&rec.ID, &rec.RootItem, &rec.RootQuantity, &rec.TotalCost, &planJSON, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(planJSON), &rec.Plan); err != nil {
			return nil, fmt.Errorf("unmarshal plan %s: %w", rec.ID, err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

func (r Repo) LatestEvents(ctx context.Context, n int, evtType, entityKind, entityID string) ([]domain.Event, error) {
	if n <= 0 {
		n = 20
	}
	query := `SELECT id,ts,type,entity_kind,COALESCE(entity_id,'') AS entity_id,actor_id,payload_json FROM events`
	var conds []string
	var args []any
	if evtType != "" {
		conds = append(conds, `type=?`)
		args = append(args, evtType)
	}
	if entityKind != "" {
		conds = append(conds, `entity_kind=?`)
		args = append(args, entityKind)
	}
	if entityID != "" {
		conds = append(conds, `entity_id=?`)
		args = append(args, entityID)
	}
	for i, cond := range conds {
		if i == 0 {
			query += ` WHERE ` + cond
		} else {
			query += ` AND ` + cond
		}
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, n)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
