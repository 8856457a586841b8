package agents

import (
	_ "embed"
	"fmt"

	"meal-agents/internal/domain"
	"meal-agents/internal/llm"
	"meal-agents/internal/pipeline"
	"meal-agents/internal/rules"
)

//go:embed balance_prompt.md
var balancePrompt string

var balanceTmpl = mustTemplate("balance", balancePrompt)

// BalanceInput is a diet-balance analysis request: the current plan, the
// replacement pool, the user's profile and recent history.
type BalanceInput struct {
	WeeklyPlan  []domain.PlanEntry   `json:"weeklyPlan" validate:"required,min=1"`
	Recipes     []domain.Recipe      `json:"recipes"`
	UserProfile domain.UserProfile   `json:"userProfile"`
	History     []domain.HistoryWeek `json:"history"`
}

// Replacement records one suggested swap in the weekly plan.
type Replacement struct {
	Day                 string `json:"day"`
	MealType            string `json:"mealType,omitempty"`
	OriginalRecipeID    string `json:"originalRecipeId"`
	OriginalRecipeTitle string `json:"originalRecipeTitle,omitempty"`
	NewRecipeID         string `json:"newRecipeId"`
	NewRecipeTitle      string `json:"newRecipeTitle,omitempty"`
	Reason              string `json:"reason"`
}

// BalanceMetrics summarizes the analyzed week. The ratios and variety score
// are recomputed deterministically from the updated plan, never trusted from
// the backend.
type BalanceMetrics struct {
	ProteinRatio      float64  `json:"proteinRatio"`
	CarbsRatio        float64  `json:"carbsRatio"`
	FatRatio          float64  `json:"fatRatio"`
	ReplacementsCount int      `json:"replacementsCount"`
	VarietyScore      string   `json:"varietyScore"`
	CuisineDiversity  []string `json:"cuisineDiversity"`
	RepeatedRecipes   int      `json:"repeatedRecipes"`
}

// BalanceResult is the diet-balance report.
type BalanceResult struct {
	UpdatedWeeklyPlan []domain.PlanEntry `json:"updatedWeeklyPlan"`
	Replacements      []Replacement      `json:"replacements"`
	Metrics           BalanceMetrics     `json:"metrics"`
	Recommendations   []string           `json:"recommendations"`
	FallbackUsed      bool               `json:"fallbackUsed"`
	Error             string             `json:"error,omitempty"`
}

type balancePromptData struct {
	InputJSON           string
	PreferredMacros     string
	DietaryRestrictions string
	Dislikes            string
}

// ParseBalanceInput decodes and validates a diet-balance request.
func ParseBalanceInput(raw []byte) (BalanceInput, error) {
	var in BalanceInput
	if err := parseObject(raw, &in); err != nil {
		return in, err
	}
	if err := validateInput(&in); err != nil {
		return in, err
	}
	return in, nil
}

// DietBalance returns the diet-balance use case. Dislikes are soft here:
// a disliked ingredient in a replacement yields a recommendation, not a
// rejection.
func DietBalance() pipeline.UseCase[BalanceInput, BalanceResult] {
	return pipeline.UseCase[BalanceInput, BalanceResult]{
		Name:   "diet-balance",
		Params: llm.Params{Temperature: 0.4, TopP: 0.95, TopK: 40, MaxOutputTokens: 3072},
		BuildPrompt: func(in BalanceInput) (string, error) {
			preferred := in.UserProfile.PreferredMacros
			if preferred == (domain.Macros{}) {
				preferred = rules.DefaultPreferredMacros
			}
			return renderPrompt(balanceTmpl, balancePromptData{
				InputJSON: jsonBlock(in),
				PreferredMacros: fmt.Sprintf("Protein: %.0f%%, Carbs: %.0f%%, Fat: %.0f%%",
					preferred.Protein*100, preferred.Carbs*100, preferred.Fat*100),
				DietaryRestrictions: listOrNone(in.UserProfile.Intolerances),
				Dislikes:            listOrNone(in.UserProfile.Dislikes),
			})
		},
		Manifest: pipeline.Manifest{
			Kind: pipeline.KindObject,
			Fields: map[string]pipeline.Field{
				"updatedWeeklyPlan": {Required: true, Kind: pipeline.KindArray},
				"replacements":      {Required: true, Kind: pipeline.KindArray},
				"metrics":           {Required: true, Kind: pipeline.KindObject},
				"recommendations":   {Kind: pipeline.KindArray},
			},
		},
		ApplyDefaults: func(in BalanceInput, doc any) any {
			obj, ok := doc.(map[string]any)
			if !ok {
				return doc
			}
			// The documented defaults: a schema that omits the updated plan
			// means "unchanged", the rest default empty.
			if _, ok := obj["updatedWeeklyPlan"]; !ok {
				obj["updatedWeeklyPlan"] = toAnySlice(in.WeeklyPlan)
			}
			if _, ok := obj["replacements"]; !ok {
				obj["replacements"] = []any{}
			}
			if _, ok := obj["metrics"]; !ok {
				obj["metrics"] = map[string]any{}
			}
			if _, ok := obj["recommendations"]; !ok {
				obj["recommendations"] = []any{}
			}
			return obj
		},
		Decode: pipeline.DecodeAs[BalanceResult],
		Review: reviewBalance,
		Fallback: func(in BalanceInput, reason pipeline.Reason, msg string) BalanceResult {
			return fallbackBalance(in, reason, msg)
		},
	}
}

func reviewBalance(in BalanceInput, out *BalanceResult) []rules.Finding {
	var findings []rules.Finding

	// Hard invariant: the updated plan must never contain an intolerance
	// match. Dislikes stay advisory for this use case.
	findings = append(findings, rules.CheckPlan(
		out.UpdatedWeeklyPlan,
		in.UserProfile.Intolerances,
		in.UserProfile.Dislikes,
		rules.DislikesSoft,
		aliasTable,
	)...)

	repeats := rules.FlagRepeats(out.UpdatedWeeklyPlan, in.History)
	findings = append(findings, repeats...)

	repls := make([]rules.Replacement, 0, len(out.Replacements))
	for _, r := range out.Replacements {
		repls = append(repls, rules.Replacement{
			Day:              r.Day,
			OriginalRecipeID: r.OriginalRecipeID,
			NewRecipeID:      r.NewRecipeID,
		})
	}
	findings = append(findings, rules.CheckReplacements(repls, in.History, true)...)

	// Metrics are derived locally from the updated plan; the backend's
	// arithmetic is not trusted.
	week := rules.WeekMacros(out.UpdatedWeeklyPlan)
	recipes := planRecipes(out.UpdatedWeeklyPlan, in.Recipes)
	score, cuisines, varietyFindings := rules.CheckVariety(recipes)
	findings = append(findings, varietyFindings...)
	findings = append(findings, rules.CheckMacroBalance(week, in.UserProfile.PreferredMacros)...)

	out.Metrics = BalanceMetrics{
		ProteinRatio:      week.Protein,
		CarbsRatio:        week.Carbs,
		FatRatio:          week.Fat,
		ReplacementsCount: len(out.Replacements),
		VarietyScore:      string(score),
		CuisineDiversity:  cuisines,
		RepeatedRecipes:   len(repeats),
	}
	for _, msg := range rules.Messages(findings, rules.SeverityRecommendation) {
		out.Recommendations = append(out.Recommendations, msg)
	}
	return findings
}

// planRecipes resolves each plan entry against the pool when possible, so
// variety scoring sees full ingredient lists; entries unknown to the pool
// contribute whatever the plan itself carries.
func planRecipes(entries []domain.PlanEntry, pool []domain.Recipe) []domain.Recipe {
	byID := domain.RecipeByID(pool)
	out := make([]domain.Recipe, 0, len(entries))
	for _, e := range entries {
		if full, ok := byID[e.Recipe.ID]; ok {
			out = append(out, full)
			continue
		}
		out = append(out, e.Recipe)
	}
	return out
}

// fallbackBalance flags history overlaps with exact-match lookups and passes
// the plan through unchanged, proposing no replacement beyond a neutral
// placeholder.
func fallbackBalance(in BalanceInput, reason pipeline.Reason, msg string) BalanceResult {
	recent := domain.RecentRecipeIDs(in.History, rules.RepetitionWindowWeeks)

	var replacements []Replacement
	for _, meal := range in.WeeklyPlan {
		if recent[meal.Recipe.ID] {
			replacements = append(replacements, Replacement{
				Day:                 meal.Day,
				MealType:            meal.MealType,
				OriginalRecipeID:    meal.Recipe.ID,
				OriginalRecipeTitle: meal.Recipe.Title,
				NewRecipeID:         "replacement_needed",
				NewRecipeTitle:      "Please select alternative",
				Reason:              "Recipe used in past 4 weeks",
			})
		}
	}

	return BalanceResult{
		UpdatedWeeklyPlan: in.WeeklyPlan,
		Replacements:      replacements,
		Metrics: BalanceMetrics{
			ProteinRatio:      rules.DefaultPreferredMacros.Protein,
			CarbsRatio:        rules.DefaultPreferredMacros.Carbs,
			FatRatio:          rules.DefaultPreferredMacros.Fat,
			ReplacementsCount: len(replacements),
			VarietyScore:      "unknown",
			CuisineDiversity:  []string{},
			RepeatedRecipes:   len(replacements),
		},
		Recommendations: []string{
			"Unable to generate detailed recommendations due to error",
			fmt.Sprintf("Error: %s", msg),
			"Manual review recommended for nutritional balance",
		},
		FallbackUsed: true,
		Error:        fmt.Sprintf("%s: %s", reason, msg),
	}
}

func toAnySlice[T any](items []T) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, it)
	}
	return out
}
