package rules

import (
	"fmt"

	"meal-agents/internal/domain"
)

// RepetitionWindowWeeks is how far back the non-repetition rule looks.
const RepetitionWindowWeeks = 4

// FlagRepeats reports every plan entry whose recipe id appears in the rolling
// history window. Flagged entries require a replacement; the finding itself
// is a warning because replacement, not rejection, is the remedy.
func FlagRepeats(entries []domain.PlanEntry, history []domain.HistoryWeek) []Finding {
	recent := domain.RecentRecipeIDs(history, RepetitionWindowWeeks)
	var findings []Finding
	for _, e := range entries {
		if recent[e.Recipe.ID] {
			findings = append(findings, Finding{
				Rule:     "non-repetition",
				Severity: SeverityWarning,
				Code:     CodeRecentlyUsed,
				Day:      e.Day,
				RecipeID: e.Recipe.ID,
				Message:  fmt.Sprintf("%s: recipe %q was used in the past %d weeks and needs a replacement", e.Day, e.Recipe.Title, RepetitionWindowWeeks),
			})
		}
	}
	return findings
}

// Replacement pairs an original plan slot with its suggested substitute.
type Replacement struct {
	Day             string
	OriginalRecipeID string
	NewRecipeID     string
}

// CheckReplacements verifies that suggested replacement ids avoid the rolling
// window, and (when uniqueInPlan is set) that no two slots receive the same
// fresh id.
func CheckReplacements(repls []Replacement, history []domain.HistoryWeek, uniqueInPlan bool) []Finding {
	recent := domain.RecentRecipeIDs(history, RepetitionWindowWeeks)
	assigned := make(map[string]string)
	var findings []Finding
	for _, r := range repls {
		if r.NewRecipeID == "" {
			continue
		}
		if recent[r.NewRecipeID] {
			findings = append(findings, Finding{
				Rule:     "non-repetition",
				Severity: SeverityWarning,
				Code:     CodeReplacementInvalid,
				Day:      r.Day,
				RecipeID: r.NewRecipeID,
				Message:  fmt.Sprintf("%s: replacement %q is itself within the %d-week window", r.Day, r.NewRecipeID, RepetitionWindowWeeks),
			})
		}
		if uniqueInPlan {
			if prevDay, dup := assigned[r.NewRecipeID]; dup {
				findings = append(findings, Finding{
					Rule:     "non-repetition",
					Severity: SeverityWarning,
					Code:     CodeReplacementDuplicate,
					Day:      r.Day,
					RecipeID: r.NewRecipeID,
					Message:  fmt.Sprintf("%s: replacement %q already assigned to %s in this plan", r.Day, r.NewRecipeID, prevDay),
				})
			}
			assigned[r.NewRecipeID] = r.Day
		}
	}
	return findings
}
