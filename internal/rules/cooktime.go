package rules

import (
	"fmt"

	"meal-agents/internal/domain"
)

// DefaultMaxCookMins applies to days with no configured ceiling.
const DefaultMaxCookMins = 30

// MaxCookMinsFor returns the ceiling for a day, falling back to the default.
func MaxCookMinsFor(prefs map[string]domain.WeekdayPreference, day string) int {
	if p, ok := prefs[day]; ok && p.MaxCookMins > 0 {
		return p.MaxCookMins
	}
	return DefaultMaxCookMins
}

// CheckCookTimes reports every day whose assigned recipe exceeds that day's
// ceiling. The planner tolerates over-budget days, so these are warnings;
// they are never silently corrected unless the caller opts into RepairPlan.
func CheckCookTimes(days map[string]string, pool map[string]domain.Recipe, prefs map[string]domain.WeekdayPreference) []Finding {
	var findings []Finding
	for _, day := range domain.Weekdays {
		id, ok := days[day]
		if !ok {
			continue
		}
		r, known := pool[id]
		if !known {
			continue
		}
		limit := MaxCookMinsFor(prefs, day)
		if r.CookTimeMins > limit {
			findings = append(findings, Finding{
				Rule:     "cook-time",
				Severity: SeverityWarning,
				Code:     CodeCookTimeExceeded,
				Day:      day,
				RecipeID: id,
				Message:  fmt.Sprintf("%s: recipe %q takes %d mins, over the %d min limit", day, r.Title, r.CookTimeMins, limit),
			})
		}
	}
	return findings
}

// RepairPlan substitutes the nearest conforming recipe from the pool for any
// over-budget day and returns the repaired mapping plus what changed. Days
// with no conforming alternative keep their original assignment. Auto-repair
// is opt-in; the default behavior is warn-only.
func RepairPlan(days map[string]string, pool []domain.Recipe, prefs map[string]domain.WeekdayPreference) (map[string]string, []Finding) {
	byID := domain.RecipeByID(pool)
	repaired := make(map[string]string, len(days))
	for k, v := range days {
		repaired[k] = v
	}

	var findings []Finding
	for _, day := range domain.Weekdays {
		id, ok := days[day]
		if !ok {
			continue
		}
		r, known := byID[id]
		limit := MaxCookMinsFor(prefs, day)
		if !known || r.CookTimeMins <= limit {
			continue
		}

		best := ""
		bestTime := -1
		for _, cand := range pool {
			if cand.CookTimeMins > limit {
				continue
			}
			// Nearest conforming: highest cook time still under the limit.
			if cand.CookTimeMins > bestTime {
				best = cand.ID
				bestTime = cand.CookTimeMins
			}
		}
		if best == "" {
			continue
		}
		repaired[day] = best
		findings = append(findings, Finding{
			Rule:     "cook-time",
			Severity: SeverityWarning,
			Code:     CodeCookTimeExceeded,
			Day:      day,
			RecipeID: id,
			Message:  fmt.Sprintf("%s: replaced %q (%d mins) with %q (%d mins) to fit the %d min limit", day, r.Title, r.CookTimeMins, byID[best].Title, bestTime, limit),
		})
	}
	return repaired, findings
}
