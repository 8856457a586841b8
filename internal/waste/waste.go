// Package waste analyzes ingredient usage across a week of recipes to spot
// consolidation opportunities and spoilage risk. Everything here is
// deterministic; it complements and validates the generative waste-reduction
// suggestions rather than producing them.
package waste

import (
	"fmt"
	"sort"
	"strings"

	"meal-agents/internal/domain"
	"meal-agents/internal/rules"
	"meal-agents/internal/shopping"
)

// DefaultFreshProduce lists ingredients that spoil quickly and deserve
// consolidation when bought for a single recipe. Callers may supply their
// own list.
var DefaultFreshProduce = []string{
	"basil", "cilantro", "parsley", "mint", "dill", "chives",
	"spinach", "lettuce", "kale", "arugula", "mixed greens",
	"green onions", "mushrooms", "avocado", "berries", "bean sprouts",
}

// Usage summarizes how one canonical ingredient is used across the week.
type Usage struct {
	Name         string
	Count        int
	RecipeIDs    []string
	Qtys         []string
	SpoilageRisk bool
}

// AnalyzeUsage counts canonical ingredient occurrences across recipes and
// marks spoilage-prone ones. Results are sorted by name.
func AnalyzeUsage(recipes []domain.Recipe, fresh []string, table *shopping.Table) []Usage {
	if table == nil {
		table = shopping.DefaultTable()
	}
	if fresh == nil {
		fresh = DefaultFreshProduce
	}

	byName := make(map[string]*Usage)
	for _, r := range recipes {
		for _, ing := range r.Ingredients {
			name, _ := table.Canonicalize(ing.Name)
			if name == "" {
				continue
			}
			u, ok := byName[name]
			if !ok {
				u = &Usage{Name: name}
				byName[name] = u
			}
			u.Count++
			u.RecipeIDs = append(u.RecipeIDs, r.ID)
			if q := strings.TrimSpace(ing.Qty); q != "" {
				u.Qtys = append(u.Qtys, q)
			}
		}
	}

	for _, f := range fresh {
		canonical, _ := table.Canonicalize(f)
		if u, ok := byName[canonical]; ok {
			u.SpoilageRisk = true
		}
	}

	out := make([]Usage, 0, len(byName))
	for _, u := range byName {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ConsolidationTips turns usage analysis into practical advice: spoilage-risk
// ingredients bought for a single recipe should be consolidated or batch
// cooked, and multi-recipe ingredients can share one purchase.
func ConsolidationTips(usages []Usage) []string {
	var tips []string
	for _, u := range usages {
		switch {
		case u.SpoilageRisk && u.Count == 1:
			tips = append(tips, fmt.Sprintf("%s is fresh produce used in only one recipe; plan a second use or buy a smaller amount to avoid spoilage", u.Name))
		case u.Count >= 3:
			tips = append(tips, fmt.Sprintf("%s appears in %d recipes; buy once and portion across the week", u.Name, u.Count))
		}
	}
	return tips
}

// CheckSubstitute verifies that a proposed substitution never introduces an
// ingredient the user cannot or will not eat. Both lists are hard here: the
// whole point of a suggestion is that the user accepts it.
func CheckSubstitute(recipeID, substitute string, profile domain.UserProfile, table *shopping.Table) []rules.Finding {
	if table == nil {
		table = shopping.DefaultTable()
	}
	var findings []rules.Finding
	for _, bad := range profile.Intolerances {
		if table.Matches(substitute, bad) {
			findings = append(findings, rules.Finding{
				Rule:       "waste-substitution",
				Severity:   rules.SeverityViolation,
				Code:       rules.CodeIntoleranceViolation,
				RecipeID:   recipeID,
				Ingredient: substitute,
				Message:    fmt.Sprintf("substitution %q for recipe %s matches intolerance %q", substitute, recipeID, bad),
			})
		}
	}
	for _, bad := range profile.Dislikes {
		if table.Matches(substitute, bad) {
			findings = append(findings, rules.Finding{
				Rule:       "waste-substitution",
				Severity:   rules.SeverityViolation,
				Code:       rules.CodeDislikedIngredient,
				RecipeID:   recipeID,
				Ingredient: substitute,
				Message:    fmt.Sprintf("substitution %q for recipe %s matches disliked ingredient %q", substitute, recipeID, bad),
			})
		}
	}
	return findings
}
