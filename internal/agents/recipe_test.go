package agents

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-agents/internal/pipeline"
)

func TestParseRecipeInputDefaults(t *testing.T) {
	in, err := ParseRecipeInput([]byte(`{}`), false)
	require.NoError(t, err)
	assert.Equal(t, "balanced", in.Diet)
	assert.Equal(t, 30, in.MaxCookMins)
	assert.Equal(t, 2, in.Servings)
	assert.Equal(t, "quick", in.Style)

	searchIn, err := ParseRecipeInput([]byte(`{}`), true)
	require.NoError(t, err)
	assert.Equal(t, "any", searchIn.Diet)
	assert.Equal(t, "any cuisine", searchIn.Style)
}

func TestParseRecipeInputRejectsNegativeValues(t *testing.T) {
	_, err := ParseRecipeInput([]byte(`{"maxCookMins": -5}`), false)
	require.Error(t, err)
	var inputErr *pipeline.InputError
	assert.ErrorAs(t, err, &inputErr)
}

const goodRecipeJSON = `{
	"id": "",
	"title": "Tomato Basil Pasta",
	"ingredients": [
		{"name": "pasta", "qty": "200 g"},
		{"name": "tomatoes", "qty": "3"},
		{"name": "basil", "qty": "1/2 cup"}
	],
	"steps": ["Boil pasta", "Make sauce", "Combine"],
	"cookTimeMins": 25,
	"tags": ["italian", "vegetarian"],
	"servings": 2
}`

func TestRecipeFinalizes(t *testing.T) {
	inv := &stubInvoker{content: "```json\n" + goodRecipeJSON + "\n```"}
	in, err := ParseRecipeInput([]byte(`{"diet": "vegetarian"}`), false)
	require.NoError(t, err)

	res := pipeline.Run(context.Background(), inv, Recipe(false), in, nil)

	require.Equal(t, pipeline.StateFinalized, res.State)
	assert.Equal(t, "Tomato Basil Pasta", res.Artifact.Title)
	assert.False(t, res.Artifact.FallbackUsed)
	assert.NotEmpty(t, res.Artifact.ID, "blank id must be stamped during review")
	assert.InDelta(t, 0.2, inv.params.Temperature, 1e-6)
	assert.False(t, inv.params.SearchEnabled)
	assert.Contains(t, inv.prompt, "vegetarian")
}

func TestRecipeAvoidedIngredientForcesFallback(t *testing.T) {
	inv := &stubInvoker{content: goodRecipeJSON}
	in, err := ParseRecipeInput([]byte(`{"avoidIngredients": ["tomatoes"]}`), false)
	require.NoError(t, err)

	res := pipeline.Run(context.Background(), inv, Recipe(false), in, nil)

	require.Equal(t, pipeline.StateFallback, res.State)
	assert.Equal(t, pipeline.ReasonRuleViolation, res.Reason)
	assert.Equal(t, "r_fallback_001", res.Artifact.ID)
	assert.True(t, res.Artifact.FallbackUsed)
	assert.NotEmpty(t, res.Artifact.Error)
}

func TestRecipeCookTimeOverLimitIsOnlyAWarning(t *testing.T) {
	inv := &stubInvoker{content: goodRecipeJSON}
	in, err := ParseRecipeInput([]byte(`{"maxCookMins": 20}`), false)
	require.NoError(t, err)

	res := pipeline.Run(context.Background(), inv, Recipe(false), in, nil)

	require.Equal(t, pipeline.StateFinalized, res.State)
	require.Len(t, res.Findings, 1)
	assert.Contains(t, res.Findings[0].Message, "over the requested 20 min limit")
}

func TestRecipeSearchVariant(t *testing.T) {
	searchJSON := `{
		"title": "Authentic Pad Thai",
		"ingredients": [{"name": "rice noodles", "qty": "200 g"}],
		"steps": ["Soak noodles", "Stir fry"],
		"cookTimeMins": 30,
		"prepTimeMins": 15,
		"totalTimeMins": 45,
		"rating": 4.5,
		"reviewCount": 234,
		"nutritionInfo": {"calories": 350, "protein": "25g", "carbs": "45g", "fat": "12g"},
		"source": "Hot Thai Kitchen",
		"sourceWebsite": "https://example.com/pad-thai",
		"searchQuery": "authentic pad thai recipe"
	}`
	inv := &stubInvoker{content: searchJSON}
	in, err := ParseRecipeInput([]byte(`{"style": "thai"}`), true)
	require.NoError(t, err)

	res := pipeline.Run(context.Background(), inv, Recipe(true), in, nil)

	require.Equal(t, pipeline.StateFinalized, res.State)
	assert.True(t, inv.params.SearchEnabled)
	assert.InDelta(t, 0.7, inv.params.Temperature, 1e-6)
	assert.True(t, res.Artifact.FoundOnWeb)
	assert.Equal(t, "Hot Thai Kitchen", res.Artifact.Source)
	assert.InDelta(t, 4.5, res.Artifact.Rating, 1e-6)
	assert.Equal(t, 234, res.Artifact.ReviewCount)
	require.NotNil(t, res.Artifact.NutritionInfo)
	assert.Equal(t, 350, res.Artifact.NutritionInfo.Calories)
	assert.Equal(t, "25g", res.Artifact.NutritionInfo.Protein)
	assert.Equal(t, 45, res.Artifact.TotalTimeMins)
	assert.NotEmpty(t, res.Artifact.ID)
	// Tags and servings are optional for the search variant.
	assert.Empty(t, res.Artifact.Tags)
}

func TestRecipeFallbackHonorsConstraints(t *testing.T) {
	inv := &stubInvoker{content: "not json at all"}
	in, err := ParseRecipeInput([]byte(`{"diet": "vegan", "maxCookMins": 20, "servings": 4}`), false)
	require.NoError(t, err)

	res := pipeline.Run(context.Background(), inv, Recipe(false), in, nil)

	require.Equal(t, pipeline.StateFallback, res.State)
	art := res.Artifact
	assert.Equal(t, "Quick Vegan Recipe", art.Title)
	assert.Equal(t, 20, art.CookTimeMins)
	assert.Equal(t, 4, art.Servings)
	assert.Contains(t, art.Tags, "vegan")
}

func TestRecipeResultSerialization(t *testing.T) {
	res := RecipeResult{}
	res.ID = "r_123"
	res.Title = "Soup"

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Equal(t, "r_123", m["id"])
	assert.NotContains(t, m, "source", "empty provenance fields must be omitted")
	assert.Contains(t, m, "fallbackUsed")
}
