package rules

import (
	"fmt"
	"sort"
	"strings"

	"meal-agents/internal/domain"
)

// VarietyScore classifies a week's ingredient and cuisine spread.
type VarietyScore string

const (
	VarietyHigh   VarietyScore = "high"
	VarietyMedium VarietyScore = "medium"
	VarietyLow    VarietyScore = "low"
)

// cuisineTags is the closed set of tags counted as cuisines for diversity
// scoring. Tag matching is case-insensitive.
var cuisineTags = map[string]string{
	"italian": "Italian", "asian": "Asian", "mexican": "Mexican",
	"mediterranean": "Mediterranean", "indian": "Indian", "thai": "Thai",
	"chinese": "Chinese", "japanese": "Japanese", "french": "French",
	"greek": "Greek", "spanish": "Spanish", "korean": "Korean",
	"vietnamese": "Vietnamese", "middle-eastern": "Middle Eastern",
	"american": "American",
}

// MainIngredients returns a recipe's main ingredients: by convention the
// first one or two entries of its ingredient list, lowercased.
func MainIngredients(r domain.Recipe) []string {
	n := len(r.Ingredients)
	if n > 2 {
		n = 2
	}
	mains := make([]string, 0, n)
	for _, ing := range r.Ingredients[:n] {
		mains = append(mains, strings.ToLower(strings.TrimSpace(ing.Name)))
	}
	return mains
}

// Cuisines extracts the distinct cuisine tags across recipes, in display
// form, sorted.
func Cuisines(recipes []domain.Recipe) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range recipes {
		for _, tag := range r.Tags {
			if display, ok := cuisineTags[strings.ToLower(tag)]; ok && !seen[display] {
				seen[display] = true
				out = append(out, display)
			}
		}
	}
	sort.Strings(out)
	return out
}

// ClassifyVariety maps distinct main-ingredient and cuisine counts onto a
// score: 7+/3+ is high, 5-6 with 2-3 cuisines is medium, anything less low.
func ClassifyVariety(mainCount, cuisineCount int) VarietyScore {
	switch {
	case mainCount >= 7 && cuisineCount >= 3:
		return VarietyHigh
	case mainCount >= 5 && mainCount <= 6 && cuisineCount >= 2 && cuisineCount <= 3:
		return VarietyMedium
	default:
		return VarietyLow
	}
}

// CheckVariety scores a week of recipes and flags any main ingredient used
// more than twice across the seven days.
func CheckVariety(recipes []domain.Recipe) (VarietyScore, []string, []Finding) {
	mains := make(map[string]int)
	for _, r := range recipes {
		for _, m := range MainIngredients(r) {
			mains[m]++
		}
	}
	cuisines := Cuisines(recipes)
	score := ClassifyVariety(len(mains), len(cuisines))

	var findings []Finding
	overused := make([]string, 0)
	for m, count := range mains {
		if count > 2 {
			overused = append(overused, m)
		}
	}
	sort.Strings(overused)
	for _, m := range overused {
		findings = append(findings, Finding{
			Rule:       "variety",
			Severity:   SeverityWarning,
			Code:       CodeMainOverused,
			Ingredient: m,
			Message:    fmt.Sprintf("main ingredient %q is used %d times this week; the limit is twice", m, mains[m]),
		})
	}
	if score == VarietyLow {
		findings = append(findings, Finding{
			Rule:     "variety",
			Severity: SeverityRecommendation,
			Message:  fmt.Sprintf("variety is low (%d main ingredients, %d cuisines); consider diversifying ingredients or cuisines", len(mains), len(cuisines)),
		})
	}
	return score, cuisines, findings
}
