package rules

import (
	"fmt"

	"meal-agents/internal/domain"
	"meal-agents/internal/shopping"
)

// Strictness selects how dislikes are treated for a use case. Intolerances
// are always hard; the source systems treat dislikes as hard for recipe
// generation but only advisory for diet-balance replacement, so it is a
// per-use-case setting rather than a per-call guess.
type Strictness int

const (
	// DislikesSoft turns dislike matches into recommendations.
	DislikesSoft Strictness = iota
	// DislikesHard rejects artifacts containing disliked ingredients.
	DislikesHard
)

// CheckRecipe matches a recipe's ingredients (and tags, which often carry
// ingredient names) against the exclusion lists. Intolerance matches are
// violations; dislike matches depend on strictness.
func CheckRecipe(r domain.Recipe, intolerances, dislikes []string, strict Strictness, table *shopping.Table) []Finding {
	if table == nil {
		table = shopping.DefaultTable()
	}
	var findings []Finding

	check := func(name string) {
		for _, bad := range intolerances {
			if table.Matches(name, bad) {
				findings = append(findings, Finding{
					Rule:       "exclusion",
					Severity:   SeverityViolation,
					Code:       CodeIntoleranceViolation,
					RecipeID:   r.ID,
					Ingredient: name,
					Message:    fmt.Sprintf("recipe %q contains %q which matches intolerance %q", r.Title, name, bad),
				})
			}
		}
		for _, bad := range dislikes {
			if table.Matches(name, bad) {
				sev := SeverityRecommendation
				if strict == DislikesHard {
					sev = SeverityViolation
				}
				findings = append(findings, Finding{
					Rule:       "exclusion",
					Severity:   sev,
					Code:       CodeDislikedIngredient,
					RecipeID:   r.ID,
					Ingredient: name,
					Message:    fmt.Sprintf("recipe %q uses disliked ingredient %q", r.Title, bad),
				})
			}
		}
	}

	for _, ing := range r.Ingredients {
		check(ing.Name)
	}
	for _, tag := range r.Tags {
		check(tag)
	}
	return findings
}

// CheckPlan applies CheckRecipe to every entry of a weekly plan.
func CheckPlan(entries []domain.PlanEntry, intolerances, dislikes []string, strict Strictness, table *shopping.Table) []Finding {
	var findings []Finding
	for _, e := range entries {
		for _, f := range CheckRecipe(e.Recipe, intolerances, dislikes, strict, table) {
			f.Day = e.Day
			findings = append(findings, f)
		}
	}
	return findings
}
