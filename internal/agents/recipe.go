package agents

import (
	_ "embed"
	"fmt"
	"strings"

	"meal-agents/internal/domain"
	"meal-agents/internal/llm"
	"meal-agents/internal/pipeline"
	"meal-agents/internal/rules"
)

//go:embed recipe_prompt.md
var recipePrompt string

//go:embed recipe_search_prompt.md
var recipeSearchPrompt string

var (
	recipeTmpl       = mustTemplate("recipe", recipePrompt)
	recipeSearchTmpl = mustTemplate("recipe-search", recipeSearchPrompt)
)

// RecipeInput is the constraint set for recipe generation. Avoided
// ingredients are hard exclusions for this use case.
type RecipeInput struct {
	Diet             string   `json:"diet"`
	AvoidIngredients []string `json:"avoidIngredients"`
	MaxCookMins      int      `json:"maxCookMins" validate:"gte=0"`
	Servings         int      `json:"servings" validate:"gte=0"`
	Style            string   `json:"style"`
}

// NutritionInfo carries the per-serving estimates a web search result may
// report. Gram amounts stay strings as published ("25g").
type NutritionInfo struct {
	Calories int    `json:"calories,omitempty"`
	Protein  string `json:"protein,omitempty"`
	Carbs    string `json:"carbs,omitempty"`
	Fat      string `json:"fat,omitempty"`
}

// RecipeResult is a generated recipe plus web provenance when search
// grounding was used.
type RecipeResult struct {
	domain.Recipe
	Source        string         `json:"source,omitempty"`
	SourceWebsite string         `json:"sourceWebsite,omitempty"`
	SearchQuery   string         `json:"searchQuery,omitempty"`
	FoundOnWeb    bool           `json:"foundOnWeb,omitempty"`
	PrepTimeMins  int            `json:"prepTimeMins,omitempty"`
	TotalTimeMins int            `json:"totalTimeMins,omitempty"`
	Rating        float64        `json:"rating,omitempty"`
	ReviewCount   int            `json:"reviewCount,omitempty"`
	NutritionInfo *NutritionInfo `json:"nutritionInfo,omitempty"`
	FallbackUsed  bool           `json:"fallbackUsed"`
	Error         string         `json:"error,omitempty"`
}

type recipePromptData struct {
	Diet        string
	AvoidList   string
	MaxCookMins int
	Servings    int
	Style       string
}

// ParseRecipeInput decodes and validates a recipe request, applying the
// documented defaults per variant.
func ParseRecipeInput(raw []byte, search bool) (RecipeInput, error) {
	var in RecipeInput
	if err := parseObject(raw, &in); err != nil {
		return in, err
	}
	if err := validateInput(&in); err != nil {
		return in, err
	}
	if in.Diet == "" {
		if search {
			in.Diet = "any"
		} else {
			in.Diet = "balanced"
		}
	}
	if in.MaxCookMins == 0 {
		in.MaxCookMins = 30
	}
	if in.Servings == 0 {
		in.Servings = 2
	}
	if in.Style == "" {
		if search {
			in.Style = "any cuisine"
		} else {
			in.Style = "quick"
		}
	}
	return in, nil
}

// Recipe returns the recipe-generation use case. With search enabled the
// backend grounds the answer in web results, runs hotter, and a relaxed
// manifest tolerates the extra provenance fields.
func Recipe(search bool) pipeline.UseCase[RecipeInput, RecipeResult] {
	tmpl := recipeTmpl
	params := llm.Params{Temperature: 0.2, TopP: 0.95, TopK: 40, MaxOutputTokens: 2048}
	manifest := pipeline.Manifest{
		Kind: pipeline.KindObject,
		Fields: map[string]pipeline.Field{
			"id":           {Required: true, Kind: pipeline.KindString},
			"title":        {Required: true, Kind: pipeline.KindString},
			"ingredients":  {Required: true, Kind: pipeline.KindArray},
			"steps":        {Required: true, Kind: pipeline.KindArray},
			"cookTimeMins": {Required: true, Kind: pipeline.KindNumber},
			"tags":         {Required: true, Kind: pipeline.KindArray},
			"servings":     {Required: true, Kind: pipeline.KindNumber},
		},
	}
	if search {
		tmpl = recipeSearchTmpl
		params = llm.Params{Temperature: 0.7, TopP: 0.95, TopK: 40, MaxOutputTokens: 2048, SearchEnabled: true}
		manifest = pipeline.Manifest{
			Kind: pipeline.KindObject,
			Fields: map[string]pipeline.Field{
				"title":        {Required: true, Kind: pipeline.KindString},
				"ingredients":  {Required: true, Kind: pipeline.KindArray},
				"steps":        {Required: true, Kind: pipeline.KindArray},
				"cookTimeMins": {Required: true, Kind: pipeline.KindNumber},
			},
		}
	}

	name := "recipe"
	if search {
		name = "recipe-search"
	}

	return pipeline.UseCase[RecipeInput, RecipeResult]{
		Name:   name,
		Params: params,
		BuildPrompt: func(in RecipeInput) (string, error) {
			return renderPrompt(tmpl, recipePromptData{
				Diet:        in.Diet,
				AvoidList:   listOrNone(in.AvoidIngredients),
				MaxCookMins: in.MaxCookMins,
				Servings:    in.Servings,
				Style:       in.Style,
			})
		},
		Manifest: manifest,
		Decode:   pipeline.DecodeAs[RecipeResult],
		Review: func(in RecipeInput, out *RecipeResult) []rules.Finding {
			if out.ID == "" {
				out.ID = newID("r_")
			}
			if search {
				out.FoundOnWeb = true
			}
			findings := rules.CheckRecipe(out.Recipe, in.AvoidIngredients, nil, rules.DislikesHard, aliasTable)
			if out.CookTimeMins > in.MaxCookMins {
				findings = append(findings, rules.Finding{
					Rule:     "cook-time",
					Severity: rules.SeverityWarning,
					Code:     rules.CodeCookTimeExceeded,
					RecipeID: out.ID,
					Message:  fmt.Sprintf("recipe takes %d mins, over the requested %d min limit", out.CookTimeMins, in.MaxCookMins),
				})
			}
			return findings
		},
		Fallback: func(in RecipeInput, reason pipeline.Reason, msg string) RecipeResult {
			return fallbackRecipe(in, search, reason, msg)
		},
	}
}

// fallbackRecipe is a neutral placeholder honoring the request's time and
// serving constraints, computed without any generative content.
func fallbackRecipe(in RecipeInput, search bool, reason pipeline.Reason, msg string) RecipeResult {
	res := RecipeResult{
		Recipe: domain.Recipe{
			ID:    "r_fallback_001",
			Title: fmt.Sprintf("Quick %s Recipe", titleWord(in.Diet)),
			Ingredients: []domain.Ingredient{
				{Name: "main ingredient", Qty: "as needed"},
				{Name: "seasoning", Qty: "to taste"},
			},
			Steps: []string{
				"Prepare ingredients",
				fmt.Sprintf("Cook for approximately %d minutes", in.MaxCookMins),
				"Serve hot",
			},
			CookTimeMins: in.MaxCookMins,
			Tags:         []string{in.Diet, "simple"},
			Servings:     in.Servings,
		},
		FallbackUsed: true,
		Error:        fmt.Sprintf("%s: %s", reason, msg),
	}
	if search {
		res.Source = "generated"
	}
	return res
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
