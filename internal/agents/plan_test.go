package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-agents/internal/domain"
	"meal-agents/internal/pipeline"
)

func planPool() []domain.Recipe {
	return []domain.Recipe{
		{ID: "r_1", Title: "Lentil Soup", CookTimeMins: 25, Ingredients: []domain.Ingredient{{Name: "lentils", Qty: "1 cup"}, {Name: "carrots", Qty: "2"}}},
		{ID: "r_2", Title: "Veggie Stir Fry", CookTimeMins: 15, Ingredients: []domain.Ingredient{{Name: "tofu", Qty: "200 g"}, {Name: "broccoli", Qty: "1 head"}}},
		{ID: "r_3", Title: "Pasta Primavera", CookTimeMins: 20, Ingredients: []domain.Ingredient{{Name: "pasta", Qty: "250 g"}, {Name: "zucchini", Qty: "1"}}},
		{ID: "r_4", Title: "Bean Chili", CookTimeMins: 30, Ingredients: []domain.Ingredient{{Name: "black beans", Qty: "2 cans"}, {Name: "tomatoes", Qty: "1 can"}}},
	}
}

func planRequest(t *testing.T, extra map[string]any) PlanInput {
	t.Helper()
	body := map[string]any{"recipes": planPool()}
	for k, v := range extra {
		body[k] = v
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	in, err := ParsePlanInput(raw)
	require.NoError(t, err)
	return in
}

func fullWeekJSON(id string) string {
	days := make(map[string]string)
	for _, day := range domain.Weekdays {
		days[day] = id
	}
	b, _ := json.Marshal(map[string]any{"days": days})
	return string(b)
}

func TestParsePlanInputRequiresRecipes(t *testing.T) {
	_, err := ParsePlanInput([]byte(`{"recipes": []}`))
	require.Error(t, err)
	var inputErr *pipeline.InputError
	assert.ErrorAs(t, err, &inputErr)
}

func TestWeeklyPlanFinalizes(t *testing.T) {
	content := `{"days": {
		"monday": "r_1", "tuesday": "r_2", "wednesday": "r_3",
		"thursday": "r_4", "friday": "r_1", "saturday": "r_2",
		"sunday": "r_3"
	}}`
	inv := &stubInvoker{content: content}
	in := planRequest(t, nil)

	res := pipeline.Run(context.Background(), inv, WeeklyPlan(), in, nil)

	require.Equal(t, pipeline.StateFinalized, res.State)
	assert.NotEmpty(t, res.Artifact.PlanID, "plan id must be stamped when the backend omits it")
	assert.Len(t, res.Artifact.Days, 7)
	assert.False(t, res.Artifact.FallbackUsed)
}

func TestWeeklyPlanMissingDayForcesFallback(t *testing.T) {
	content := `{"days": {"monday": "r_1"}}`
	inv := &stubInvoker{content: content}
	in := planRequest(t, nil)

	res := pipeline.Run(context.Background(), inv, WeeklyPlan(), in, nil)

	require.Equal(t, pipeline.StateFallback, res.State)
	assert.Equal(t, pipeline.ReasonRuleViolation, res.Reason)
	assert.Len(t, res.Artifact.Days, 7, "fallback must still cover the whole week")
}

func TestWeeklyPlanUnknownRecipeForcesFallback(t *testing.T) {
	inv := &stubInvoker{content: fullWeekJSON("r_999")}
	in := planRequest(t, nil)

	res := pipeline.Run(context.Background(), inv, WeeklyPlan(), in, nil)

	require.Equal(t, pipeline.StateFallback, res.State)
	assert.Equal(t, pipeline.ReasonRuleViolation, res.Reason)
}

func TestWeeklyPlanCookTimeWarningByDefault(t *testing.T) {
	// r_1 takes 25 mins; monday's ceiling is 15. Warn-only by default.
	content := `{"days": {
		"monday": "r_1", "tuesday": "r_2", "wednesday": "r_3",
		"thursday": "r_4", "friday": "r_1", "saturday": "r_2",
		"sunday": "r_3"
	}}`
	inv := &stubInvoker{content: content}
	in := planRequest(t, map[string]any{
		"weekdayPreferences": map[string]any{"monday": map[string]any{"maxCookMins": 15}},
	})

	res := pipeline.Run(context.Background(), inv, WeeklyPlan(), in, nil)

	require.Equal(t, pipeline.StateFinalized, res.State)
	assert.Equal(t, "r_1", res.Artifact.Days["monday"], "warn-only must not rewrite the plan")

	warned := false
	for _, f := range res.Findings {
		if f.Day == "monday" && f.Code == "cook_time_exceeded" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestWeeklyPlanAutoRepair(t *testing.T) {
	content := `{"days": {
		"monday": "r_1", "tuesday": "r_2", "wednesday": "r_3",
		"thursday": "r_4", "friday": "r_1", "saturday": "r_2",
		"sunday": "r_3"
	}}`
	inv := &stubInvoker{content: content}
	in := planRequest(t, map[string]any{
		"weekdayPreferences": map[string]any{"monday": map[string]any{"maxCookMins": 18}},
		"autoRepair":         true,
	})

	res := pipeline.Run(context.Background(), inv, WeeklyPlan(), in, nil)

	require.Equal(t, pipeline.StateFinalized, res.State)
	// Nearest conforming recipe under 18 mins is r_2 (15).
	assert.Equal(t, "r_2", res.Artifact.Days["monday"])
}

func TestWeeklyPlanExclusionForcesFallback(t *testing.T) {
	content := `{"days": {
		"monday": "r_4", "tuesday": "r_2", "wednesday": "r_3",
		"thursday": "r_1", "friday": "r_2", "saturday": "r_3",
		"sunday": "r_1"
	}}`
	inv := &stubInvoker{content: content}
	in := planRequest(t, map[string]any{
		"constraints": map[string]any{"avoidIngredients": []string{"black beans"}},
	})

	res := pipeline.Run(context.Background(), inv, WeeklyPlan(), in, nil)

	require.Equal(t, pipeline.StateFallback, res.State)
	// The fallback plan itself must honor the exclusion.
	for day, id := range res.Artifact.Days {
		assert.NotEqual(t, "r_4", id, "fallback assigned excluded recipe on %s", day)
	}
}

func TestFallbackPlanDeterministic(t *testing.T) {
	in := planRequest(t, nil)

	a := fallbackPlan(in, pipeline.ReasonMalformedOutput, "x")
	b := fallbackPlan(in, pipeline.ReasonMalformedOutput, "x")

	assert.Equal(t, a.Days, b.Days)
	assert.True(t, a.FallbackUsed)
	for _, day := range domain.Weekdays {
		assert.Contains(t, a.Days, day)
	}
}

func TestFallbackPlanSpreadsUsage(t *testing.T) {
	in := planRequest(t, nil)

	out := fallbackPlan(in, pipeline.ReasonMalformedOutput, "x")

	counts := make(map[string]int)
	for _, id := range out.Days {
		counts[id]++
	}
	for id, n := range counts {
		assert.LessOrEqual(t, n, 2, "recipe %s assigned %d times; fallback should spread usage", id, n)
	}
}

func TestFallbackPlanNoConformingRecipe(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"recipes": []domain.Recipe{
			{ID: "r_slow", Title: "Roast", CookTimeMins: 90, Ingredients: []domain.Ingredient{{Name: "beef", Qty: "1 kg"}}},
			{ID: "r_slower", Title: "Stew", CookTimeMins: 120, Ingredients: []domain.Ingredient{{Name: "lamb", Qty: "1 kg"}}},
		},
	})
	require.NoError(t, err)
	in, err := ParsePlanInput(raw)
	require.NoError(t, err)

	out := fallbackPlan(in, pipeline.ReasonMalformedOutput, "x")

	// Nothing fits the 30 min default, so the quickest recipe fills every day.
	for _, day := range domain.Weekdays {
		assert.Equal(t, "r_slow", out.Days[day], fmt.Sprintf("day %s", day))
	}
}

func TestFallbackPlanKeepsExclusionsWhenRelaxingCookTime(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"recipes": []domain.Recipe{
			{ID: "r_bad", Title: "Milk Pudding", CookTimeMins: 5, Ingredients: []domain.Ingredient{{Name: "milk", Qty: "500 ml"}}},
			{ID: "r_good", Title: "Roast Veg", CookTimeMins: 60, Ingredients: []domain.Ingredient{{Name: "carrots", Qty: "1 kg"}}},
		},
		"constraints": map[string]any{"avoidIngredients": []string{"milk"}},
	})
	require.NoError(t, err)
	in, err := ParsePlanInput(raw)
	require.NoError(t, err)

	out := fallbackPlan(in, pipeline.ReasonMalformedOutput, "x")

	// r_good busts the 30 min ceiling but ceilings are soft; the excluded
	// ingredient in r_bad is not.
	for _, day := range domain.Weekdays {
		assert.Equal(t, "r_good", out.Days[day], fmt.Sprintf("day %s", day))
	}
}

func TestFallbackPlanAllRecipesExcluded(t *testing.T) {
	raw, err := json.Marshal(map[string]any{
		"recipes": []domain.Recipe{
			{ID: "r_milk", Title: "Milk Pudding", CookTimeMins: 40, Ingredients: []domain.Ingredient{{Name: "milk", Qty: "500 ml"}}},
			{ID: "r_latte", Title: "Latte Oats", CookTimeMins: 10, Ingredients: []domain.Ingredient{{Name: "milk", Qty: "200 ml"}}},
		},
		"constraints": map[string]any{"avoidIngredients": []string{"milk"}},
	})
	require.NoError(t, err)
	in, err := ParsePlanInput(raw)
	require.NoError(t, err)

	out := fallbackPlan(in, pipeline.ReasonMalformedOutput, "x")

	// With no exclusion-clean recipe at all, the quickest one fills the week
	// rather than leaving days empty.
	for _, day := range domain.Weekdays {
		assert.Equal(t, "r_latte", out.Days[day], fmt.Sprintf("day %s", day))
	}
}
