// Package domain holds the shared value types exchanged between the agents.
// All types are plain immutable values; nothing here owns state or talks to
// the outside world.
package domain

import "strings"

// Weekdays lists the seven plan days in order, lowercase as they appear on
// the wire.
var Weekdays = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// IsWeekday reports whether day (any casing) is one of the seven plan days.
func IsWeekday(day string) bool {
	day = strings.ToLower(day)
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// Macros is a protein/carbs/fat ratio triple. A well-formed triple sums to
// 1.0 within tolerance.
type Macros struct {
	Protein float64 `json:"protein"`
	Carbs   float64 `json:"carbs"`
	Fat     float64 `json:"fat"`
}

// WeekdayPreference carries the per-day planning constraints.
type WeekdayPreference struct {
	MaxCookMins int `json:"maxCookMins"`
}

// UserProfile describes a user's dietary constraints and preferences.
// Intolerances are hard exclusions; dislikes are soft unless a use case
// configures them strict.
type UserProfile struct {
	Intolerances       []string                     `json:"intolerances,omitempty"`
	Dislikes           []string                     `json:"dislikes,omitempty"`
	PreferredMacros    Macros                       `json:"preferredMacros,omitempty"`
	WeekdayPreferences map[string]WeekdayPreference `json:"weekdayPreferences,omitempty"`
}

// Ingredient is a single recipe line item. Qty is free-form ("2 cans",
// "1/2 cup", "to taste"); units are not globally normalized.
type Ingredient struct {
	Name  string `json:"name"`
	Qty   string `json:"qty"`
	Notes string `json:"notes,omitempty"`
}

// Recipe is the shared recipe shape used across all use cases.
type Recipe struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Ingredients  []Ingredient `json:"ingredients,omitempty"`
	Steps        []string     `json:"steps,omitempty"`
	CookTimeMins int          `json:"cookTimeMins"`
	Tags         []string     `json:"tags,omitempty"`
	Servings     int          `json:"servings,omitempty"`
}

// PlanEntry assigns a recipe to one meal slot of the week.
type PlanEntry struct {
	Day      string `json:"day"`
	MealType string `json:"mealType,omitempty"`
	Recipe   Recipe `json:"recipe"`
	Notes    string `json:"notes,omitempty"`
}

// HistoryWeek holds the recipe ids consumed in one past week. History is
// ordered oldest first; the non-repetition window is the last four entries.
type HistoryWeek struct {
	Recipes []string `json:"recipes"`
}

// RecentRecipeIDs collects the ids from the last windowWeeks entries of
// history (fewer if history is shorter).
func RecentRecipeIDs(history []HistoryWeek, windowWeeks int) map[string]bool {
	recent := make(map[string]bool)
	start := len(history) - windowWeeks
	if start < 0 {
		start = 0
	}
	for _, week := range history[start:] {
		for _, id := range week.Recipes {
			recent[id] = true
		}
	}
	return recent
}

// RecipeByID builds an id lookup for a recipe pool.
func RecipeByID(pool []Recipe) map[string]Recipe {
	m := make(map[string]Recipe, len(pool))
	for _, r := range pool {
		m[r.ID] = r
	}
	return m
}
