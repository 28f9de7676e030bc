package server

import (
	"craftplan/internal/domain"
)

// Request payloads

type ComputePlanRequest struct {
	Item     string `json:"item"`
	Quantity int    `json:"quantity,omitempty" minimum:"0"`
}

// Response payloads

type ItemResponse struct {
	Item       string            `json:"item"`
	Method     string            `json:"method" enum:"craft,purchase,raw"`
	Materials  []domain.Material `json:"materials,omitempty"`
	Cost       int               `json:"cost"`
	Source     string            `json:"source,omitempty"`
	Profession string            `json:"profession,omitempty"`
	SkillTier  int               `json:"skill_tier,omitempty"`
}

type PlanResponse struct {
	ID           string              `json:"id"`
	RootItem     string              `json:"root_item"`
	RootQuantity int                 `json:"root_quantity"`
	TotalCost    int                 `json:"total_cost"`
	Plan         domain.CraftingPlan `json:"plan"`
	CreatedAt    string              `json:"created_at" format:"date-time"`
}

func itemResponse(rule domain.AcquisitionRule) ItemResponse {
	return ItemResponse{
		Item:       rule.Item,
		Method:     string(rule.Method),
		Materials:  rule.Materials,
		Cost:       rule.Cost,
		Source:     rule.Source,
		Profession: rule.Profession,
		SkillTier:  rule.SkillTier,
	}
}

func planResponse(rec domain.PlanRecord) PlanResponse {
	return PlanResponse{
		ID:           rec.ID,
		RootItem:     rec.RootItem,
		RootQuantity: rec.RootQuantity,
		TotalCost:    rec.TotalCost,
		Plan:         rec.Plan,
		CreatedAt:    rec.CreatedAt,
	}
}
