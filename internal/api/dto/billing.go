package dto

import "github.com/mindspero/mindspero/internal/config"

// PlanDTO represents a purchasable plan
type PlanDTO struct {
	Name        string   `json:"name"`
	PeriodDays  int      `json:"period_days"`
	AmountMinor int64    `json:"amount_minor"`
	Currency    string   `json:"currency"`
	BonusDays   int      `json:"bonus_days"`
	Features    []string `json:"features"`
	IsCurrent   bool     `json:"is_current"`
}

// PlansResponse lists plans with the trial offer
type PlansResponse struct {
	TrialDays int       `json:"trial_days"`
	Plans     []PlanDTO `json:"plans"`
}

// FromPlan converts a configured plan
func FromPlan(p config.Plan, bonusDays int, features []string) PlanDTO {
	return PlanDTO{
		Name:        p.Name,
		PeriodDays:  p.PeriodDays,
		AmountMinor: p.AmountMinor,
		Currency:    p.Currency,
		BonusDays:   bonusDays,
		Features:    features,
	}
}
