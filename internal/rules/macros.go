package rules

import (
	"fmt"
	"math"
	"strings"

	"meal-agents/internal/domain"
)

// MacroTolerance is the allowed per-component deviation from the preferred
// ratios before a rebalancing recommendation fires.
const MacroTolerance = 0.05

// DefaultPreferredMacros is used when a profile carries no preference.
var DefaultPreferredMacros = domain.Macros{Protein: 0.25, Carbs: 0.50, Fat: 0.25}

var balancedMacros = domain.Macros{Protein: 0.30, Carbs: 0.40, Fat: 0.30}

// macro ratios inferred per tag, checked in priority order. The first
// matching row wins; untagged meals count as balanced.
var macroTable = []struct {
	tags   []string
	ratios domain.Macros
}{
	{[]string{"protein-rich"}, domain.Macros{Protein: 0.40, Carbs: 0.30, Fat: 0.30}},
	{[]string{"carbs", "pasta", "rice"}, domain.Macros{Protein: 0.15, Carbs: 0.60, Fat: 0.25}},
	{[]string{"healthy-fat", "avocado"}, domain.Macros{Protein: 0.20, Carbs: 0.30, Fat: 0.50}},
	{[]string{"balanced"}, balancedMacros},
}

// EstimateMacros infers a meal's macro ratios from its tag set.
func EstimateMacros(tags []string) domain.Macros {
	lowered := make(map[string]bool, len(tags))
	for _, t := range tags {
		lowered[strings.ToLower(t)] = true
	}
	for _, row := range macroTable {
		for _, t := range row.tags {
			if lowered[t] {
				return row.ratios
			}
		}
	}
	return balancedMacros
}

func meanMacros(ms []domain.Macros) domain.Macros {
	if len(ms) == 0 {
		return balancedMacros
	}
	var sum domain.Macros
	for _, m := range ms {
		sum.Protein += m.Protein
		sum.Carbs += m.Carbs
		sum.Fat += m.Fat
	}
	n := float64(len(ms))
	return domain.Macros{Protein: sum.Protein / n, Carbs: sum.Carbs / n, Fat: sum.Fat / n}
}

// DayMacros averages the estimated ratios of a day's meals.
func DayMacros(meals []domain.Recipe) domain.Macros {
	ms := make([]domain.Macros, 0, len(meals))
	for _, meal := range meals {
		ms = append(ms, EstimateMacros(meal.Tags))
	}
	return meanMacros(ms)
}

// WeekMacros averages day-level ratios across a weekly plan, grouping
// entries by day.
func WeekMacros(entries []domain.PlanEntry) domain.Macros {
	byDay := make(map[string][]domain.Recipe)
	for _, e := range entries {
		day := strings.ToLower(e.Day)
		byDay[day] = append(byDay[day], e.Recipe)
	}
	var days []domain.Macros
	for _, day := range domain.Weekdays {
		if meals, ok := byDay[day]; ok {
			days = append(days, DayMacros(meals))
		}
	}
	return meanMacros(days)
}

// CheckMacroBalance compares a week's estimated ratios against the preferred
// ones and recommends rebalancing when any component drifts past tolerance.
func CheckMacroBalance(week domain.Macros, preferred domain.Macros) []Finding {
	if preferred == (domain.Macros{}) {
		preferred = DefaultPreferredMacros
	}
	var findings []Finding
	report := func(component string, got, want float64) {
		if math.Abs(got-want) > MacroTolerance {
			direction := "more"
			if got > want {
				direction = "less"
			}
			findings = append(findings, Finding{
				Rule:     "macro-balance",
				Severity: SeverityRecommendation,
				Code:     CodeMacroImbalance,
				Message:  fmt.Sprintf("%s ratio is %.2f vs preferred %.2f; favor recipes with %s %s", component, got, want, direction, component),
			})
		}
	}
	report("protein", week.Protein, preferred.Protein)
	report("carbs", week.Carbs, preferred.Carbs)
	report("fat", week.Fat, preferred.Fat)
	return findings
}
