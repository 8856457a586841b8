package waste

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-agents/internal/domain"
	"meal-agents/internal/rules"
)

func weekRecipes() []domain.Recipe {
	return []domain.Recipe{
		{
			ID: "r1", Title: "Chickpea Curry",
			Ingredients: []domain.Ingredient{
				{Name: "chickpeas", Qty: "1 can"},
				{Name: "spinach", Qty: "2 cups"},
				{Name: "garlic", Qty: "2 cloves"},
			},
		},
		{
			ID: "r2", Title: "Garlic Noodles",
			Ingredients: []domain.Ingredient{
				{Name: "noodles", Qty: "200 g"},
				{Name: "garlic cloves", Qty: "4"},
			},
		},
		{
			ID: "r3", Title: "Garlic Bread",
			Ingredients: []domain.Ingredient{
				{Name: "bread", Qty: "1 loaf"},
				{Name: "Garlic", Qty: "3 cloves"},
			},
		},
	}
}

func TestAnalyzeUsage(t *testing.T) {
	usages := AnalyzeUsage(weekRecipes(), nil, nil)

	byName := make(map[string]Usage)
	for _, u := range usages {
		byName[u.Name] = u
	}

	garlic := byName["garlic"]
	assert.Equal(t, 3, garlic.Count)
	assert.Equal(t, []string{"r1", "r2", "r3"}, garlic.RecipeIDs)
	assert.False(t, garlic.SpoilageRisk)

	spinach := byName["spinach"]
	assert.Equal(t, 1, spinach.Count)
	assert.True(t, spinach.SpoilageRisk)

	// Sorted by canonical name.
	for i := 1; i < len(usages); i++ {
		assert.Less(t, usages[i-1].Name, usages[i].Name)
	}
}

func TestAnalyzeUsageCustomFreshList(t *testing.T) {
	usages := AnalyzeUsage(weekRecipes(), []string{"bread"}, nil)

	for _, u := range usages {
		switch u.Name {
		case "bread":
			assert.True(t, u.SpoilageRisk)
		case "spinach":
			assert.False(t, u.SpoilageRisk)
		}
	}
}

func TestConsolidationTips(t *testing.T) {
	usages := AnalyzeUsage(weekRecipes(), nil, nil)
	tips := ConsolidationTips(usages)

	require.Len(t, tips, 2)
	assert.Contains(t, tips[0], "garlic")
	assert.Contains(t, tips[0], "3 recipes")
	assert.Contains(t, tips[1], "spinach")
	assert.Contains(t, tips[1], "spoilage")
}

func TestConsolidationTipsQuietWeek(t *testing.T) {
	recipes := []domain.Recipe{
		{ID: "r1", Ingredients: []domain.Ingredient{{Name: "rice", Qty: "1 cup"}}},
		{ID: "r2", Ingredients: []domain.Ingredient{{Name: "rice", Qty: "1 cup"}}},
	}

	tips := ConsolidationTips(AnalyzeUsage(recipes, nil, nil))
	assert.Empty(t, tips)
}

func TestCheckSubstitute(t *testing.T) {
	profile := domain.UserProfile{
		Intolerances: []string{"dairy"},
		Dislikes:     []string{"mushrooms"},
	}

	t.Run("intolerance match is a violation", func(t *testing.T) {
		findings := CheckSubstitute("r1", "dairy cream", profile, nil)
		require.Len(t, findings, 1)
		assert.Equal(t, rules.SeverityViolation, findings[0].Severity)
		assert.Equal(t, rules.CodeIntoleranceViolation, findings[0].Code)
		assert.Equal(t, "r1", findings[0].RecipeID)
	})

	t.Run("dislike match is also hard here", func(t *testing.T) {
		findings := CheckSubstitute("r2", "mushrooms", profile, nil)
		require.Len(t, findings, 1)
		assert.Equal(t, rules.SeverityViolation, findings[0].Severity)
		assert.Equal(t, rules.CodeDislikedIngredient, findings[0].Code)
	})

	t.Run("clean substitute passes", func(t *testing.T) {
		assert.Empty(t, CheckSubstitute("r3", "nutritional yeast", profile, nil))
	})
}
