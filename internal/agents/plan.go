package agents

import (
	_ "embed"
	"fmt"

	"meal-agents/internal/domain"
	"meal-agents/internal/llm"
	"meal-agents/internal/pipeline"
	"meal-agents/internal/rules"
)

//go:embed plan_prompt.md
var planPrompt string

var planTmpl = mustTemplate("plan", planPrompt)

// PlanConstraints carries the cross-day restrictions for weekly planning.
type PlanConstraints struct {
	AvoidIngredients []string `json:"avoidIngredients"`
}

// PlanInput is a weekly-planning request: a recipe pool, per-day cooking
// budgets and hard ingredient exclusions.
type PlanInput struct {
	Recipes            []domain.Recipe                     `json:"recipes" validate:"required,min=1"`
	WeekdayPreferences map[string]domain.WeekdayPreference `json:"weekdayPreferences"`
	Constraints        PlanConstraints                     `json:"constraints"`
	// AutoRepair substitutes the nearest conforming recipe for over-budget
	// days instead of only warning. Off by default, matching the upstream
	// warn-only behavior.
	AutoRepair bool `json:"autoRepair,omitempty"`
}

// PlanResult maps each weekday to a recipe id from the pool.
type PlanResult struct {
	PlanID       string            `json:"planId"`
	Days         map[string]string `json:"days"`
	FallbackUsed bool              `json:"fallbackUsed"`
	Error        string            `json:"error,omitempty"`
}

type planPromptData struct {
	RecipesJSON     string
	PreferencesJSON string
	AvoidList       string
}

// ParsePlanInput decodes and validates a weekly-planning request.
func ParsePlanInput(raw []byte) (PlanInput, error) {
	var in PlanInput
	if err := parseObject(raw, &in); err != nil {
		return in, err
	}
	if err := validateInput(&in); err != nil {
		return in, err
	}
	return in, nil
}

// WeeklyPlan returns the weekly-planning use case.
func WeeklyPlan() pipeline.UseCase[PlanInput, PlanResult] {
	return pipeline.UseCase[PlanInput, PlanResult]{
		Name:   "weekly-plan",
		Params: llm.Params{Temperature: 0.2, TopP: 0.95, TopK: 40, MaxOutputTokens: 2048},
		BuildPrompt: func(in PlanInput) (string, error) {
			return renderPrompt(planTmpl, planPromptData{
				RecipesJSON:     jsonBlock(in.Recipes),
				PreferencesJSON: jsonBlock(in.WeekdayPreferences),
				AvoidList:       listOrNone(in.Constraints.AvoidIngredients),
			})
		},
		Manifest: pipeline.Manifest{
			Kind: pipeline.KindObject,
			Fields: map[string]pipeline.Field{
				"planId": {Kind: pipeline.KindString},
				"days":   {Required: true, Kind: pipeline.KindObject},
			},
		},
		Decode: pipeline.DecodeAs[PlanResult],
		Review: reviewPlan,
		Fallback: func(in PlanInput, reason pipeline.Reason, msg string) PlanResult {
			return fallbackPlan(in, reason, msg)
		},
	}
}

func reviewPlan(in PlanInput, out *PlanResult) []rules.Finding {
	if out.PlanID == "" {
		out.PlanID = newID("plan_")
	}

	pool := domain.RecipeByID(in.Recipes)
	var findings []rules.Finding

	// Structural checks: every weekday assigned exactly once, every id known.
	for _, day := range domain.Weekdays {
		id, ok := out.Days[day]
		if !ok || id == "" {
			findings = append(findings, rules.Finding{
				Rule:     "plan-shape",
				Severity: rules.SeverityViolation,
				Code:     rules.CodeDayMissing,
				Day:      day,
				Message:  fmt.Sprintf("plan is missing an assignment for %s", day),
			})
			continue
		}
		if _, known := pool[id]; !known {
			findings = append(findings, rules.Finding{
				Rule:     "plan-shape",
				Severity: rules.SeverityViolation,
				Code:     rules.CodeUnknownRecipe,
				Day:      day,
				RecipeID: id,
				Message:  fmt.Sprintf("%s: recipe id %q is not in the provided pool", day, id),
			})
		}
	}
	for day := range out.Days {
		if !domain.IsWeekday(day) {
			findings = append(findings, rules.Finding{
				Rule:     "plan-shape",
				Severity: rules.SeverityViolation,
				Code:     rules.CodeUnknownDay,
				Day:      day,
				Message:  fmt.Sprintf("%q is not a weekday", day),
			})
		}
	}
	if rules.HasViolations(findings) {
		return findings
	}

	if in.AutoRepair {
		repaired, repairs := rules.RepairPlan(out.Days, in.Recipes, in.WeekdayPreferences)
		out.Days = repaired
		findings = append(findings, repairs...)
	} else {
		findings = append(findings, rules.CheckCookTimes(out.Days, pool, in.WeekdayPreferences)...)
	}

	assigned := assignedRecipes(out.Days, pool)
	for _, r := range assigned {
		findings = append(findings, rules.CheckRecipe(r, in.Constraints.AvoidIngredients, nil, rules.DislikesHard, aliasTable)...)
	}
	_, _, varietyFindings := rules.CheckVariety(assigned)
	findings = append(findings, varietyFindings...)
	return findings
}

func assignedRecipes(days map[string]string, pool map[string]domain.Recipe) []domain.Recipe {
	out := make([]domain.Recipe, 0, len(days))
	for _, day := range domain.Weekdays {
		if r, ok := pool[days[day]]; ok {
			out = append(out, r)
		}
	}
	return out
}

// fallbackPlan deterministically assigns recipes from the pool: for each day
// it picks the least-used conforming recipe, honoring cook-time ceilings and
// hard exclusions, without inventing anything.
func fallbackPlan(in PlanInput, reason pipeline.Reason, msg string) PlanResult {
	used := make(map[string]int)
	mainUse := make(map[string]int)

	exclusionClean := func(r domain.Recipe) bool {
		for _, f := range rules.CheckRecipe(r, in.Constraints.AvoidIngredients, nil, rules.DislikesHard, aliasTable) {
			if f.Severity == rules.SeverityViolation {
				return false
			}
		}
		return true
	}

	eligible := func(r domain.Recipe, limit int) bool {
		if r.CookTimeMins > limit {
			return false
		}
		if !exclusionClean(r) {
			return false
		}
		for _, m := range rules.MainIngredients(r) {
			if mainUse[m] >= 2 {
				return false
			}
		}
		return true
	}

	days := make(map[string]string, len(domain.Weekdays))
	for _, day := range domain.Weekdays {
		limit := rules.MaxCookMinsFor(in.WeekdayPreferences, day)

		best := -1
		for i, r := range in.Recipes {
			if !eligible(r, limit) {
				continue
			}
			if best == -1 || used[r.ID] < used[in.Recipes[best].ID] {
				best = i
			}
		}
		if best == -1 {
			// No fully conforming recipe. Relax cook time and variety but
			// never the exclusions: the quickest exclusion-clean recipe wins.
			for i, r := range in.Recipes {
				if !exclusionClean(r) {
					continue
				}
				if best == -1 || r.CookTimeMins < in.Recipes[best].CookTimeMins {
					best = i
				}
			}
		}
		if best == -1 {
			// Every recipe in the pool trips an exclusion; the day cannot be
			// left empty, so take the quickest.
			for i, r := range in.Recipes {
				if best == -1 || r.CookTimeMins < in.Recipes[best].CookTimeMins {
					best = i
				}
			}
		}
		chosen := in.Recipes[best]
		days[day] = chosen.ID
		used[chosen.ID]++
		for _, m := range rules.MainIngredients(chosen) {
			mainUse[m]++
		}
	}

	return PlanResult{
		PlanID:       newID("plan_"),
		Days:         days,
		FallbackUsed: true,
		Error:        fmt.Sprintf("%s: %s", reason, msg),
	}
}
