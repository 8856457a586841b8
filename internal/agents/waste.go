package agents

import (
	_ "embed"
	"fmt"

	"meal-agents/internal/domain"
	"meal-agents/internal/llm"
	"meal-agents/internal/pipeline"
	"meal-agents/internal/rules"
	"meal-agents/internal/waste"
)

//go:embed waste_prompt.md
var wastePrompt string

var wasteTmpl = mustTemplate("waste", wastePrompt)

// WasteInput is a waste-reduction analysis request.
type WasteInput struct {
	Recipes     []domain.Recipe    `json:"recipes" validate:"required,min=1"`
	UserProfile domain.UserProfile `json:"userProfile"`
}

// OptimizedRecipe is a recipe annotated with waste-reduction usage notes.
type OptimizedRecipe struct {
	ID          string              `json:"id"`
	Title       string              `json:"title"`
	Ingredients []domain.Ingredient `json:"ingredients"`
	Notes       string              `json:"notes,omitempty"`
}

// WasteShoppingItem is one consolidated purchase with reuse guidance.
type WasteShoppingItem struct {
	Name           string `json:"name"`
	Qty            string `json:"qty"`
	ReuseNotes     string `json:"reuseNotes,omitempty"`
	PackageSize    string `json:"packageSize,omitempty"`
	EstimatedWaste string `json:"estimatedWaste,omitempty"`
}

// Substitution proposes replacing one ingredient within a specific recipe.
// A substitution always names the recipe it affects; ingredients are never
// silently removed.
type Substitution struct {
	RecipeID   string `json:"recipeId"`
	Original   string `json:"original"`
	Substitute string `json:"substitute"`
	Reason     string `json:"reason"`
	Qty        string `json:"qty,omitempty"`
}

// WasteResult is the waste-reduction report.
type WasteResult struct {
	OptimizedRecipes        []OptimizedRecipe   `json:"optimizedRecipes"`
	ShoppingList            []WasteShoppingItem `json:"shoppingList"`
	SubstitutionSuggestions []Substitution      `json:"substitutionSuggestions"`
	WasteReductionTips      []string            `json:"wasteReductionTips"`
	EstimatedWasteReduction string              `json:"estimatedWasteReduction"`
	FallbackUsed            bool                `json:"fallbackUsed"`
	Error                   string              `json:"error,omitempty"`
}

type wastePromptData struct {
	InputJSON           string
	DietaryRestrictions string
	Dislikes            string
}

// ParseWasteInput decodes and validates a waste-reduction request.
func ParseWasteInput(raw []byte) (WasteInput, error) {
	var in WasteInput
	if err := parseObject(raw, &in); err != nil {
		return in, err
	}
	if err := validateInput(&in); err != nil {
		return in, err
	}
	return in, nil
}

// WasteReduction returns the waste-reduction use case. Substitution
// suggestions treat both intolerances and dislikes as hard: the whole point
// of a suggestion is that the user will accept it.
func WasteReduction() pipeline.UseCase[WasteInput, WasteResult] {
	return pipeline.UseCase[WasteInput, WasteResult]{
		Name:   "waste-reduction",
		Params: llm.Params{Temperature: 0.3, TopP: 0.95, TopK: 40, MaxOutputTokens: 2048},
		BuildPrompt: func(in WasteInput) (string, error) {
			return renderPrompt(wasteTmpl, wastePromptData{
				InputJSON:           jsonBlock(in),
				DietaryRestrictions: listOrNone(in.UserProfile.Intolerances),
				Dislikes:            listOrNone(in.UserProfile.Dislikes),
			})
		},
		Manifest: pipeline.Manifest{
			Kind: pipeline.KindObject,
			Fields: map[string]pipeline.Field{
				"optimizedRecipes":        {Required: true, Kind: pipeline.KindArray},
				"shoppingList":            {Required: true, Kind: pipeline.KindArray},
				"substitutionSuggestions": {Required: true, Kind: pipeline.KindArray},
				"wasteReductionTips":      {Kind: pipeline.KindArray},
				"estimatedWasteReduction": {Kind: pipeline.KindString},
			},
		},
		ApplyDefaults: func(in WasteInput, doc any) any {
			obj, ok := doc.(map[string]any)
			if !ok {
				return doc
			}
			for _, key := range []string{"optimizedRecipes", "shoppingList", "substitutionSuggestions", "wasteReductionTips"} {
				if _, present := obj[key]; !present {
					obj[key] = []any{}
				}
			}
			return obj
		},
		Decode: pipeline.DecodeAs[WasteResult],
		Review: reviewWaste,
		Fallback: func(in WasteInput, reason pipeline.Reason, msg string) WasteResult {
			return fallbackWaste(in, reason, msg)
		},
	}
}

func reviewWaste(in WasteInput, out *WasteResult) []rules.Finding {
	var findings []rules.Finding
	for _, sub := range out.SubstitutionSuggestions {
		findings = append(findings, waste.CheckSubstitute(sub.RecipeID, sub.Substitute, in.UserProfile, aliasTable)...)
	}

	// Deterministic consolidation advice complements whatever the backend
	// suggested.
	usage := waste.AnalyzeUsage(in.Recipes, nil, aliasTable)
	out.WasteReductionTips = append(out.WasteReductionTips, waste.ConsolidationTips(usage)...)
	return findings
}

// fallbackWaste returns the original recipes untouched with no suggestions,
// plus deterministic consolidation tips computed from the input.
func fallbackWaste(in WasteInput, reason pipeline.Reason, msg string) WasteResult {
	optimized := make([]OptimizedRecipe, 0, len(in.Recipes))
	for _, r := range in.Recipes {
		optimized = append(optimized, OptimizedRecipe{
			ID:          r.ID,
			Title:       r.Title,
			Ingredients: r.Ingredients,
		})
	}
	return WasteResult{
		OptimizedRecipes:        optimized,
		ShoppingList:            []WasteShoppingItem{},
		SubstitutionSuggestions: []Substitution{},
		WasteReductionTips:      []string{"Unable to generate recommendations. Using original recipes."},
		EstimatedWasteReduction: "0%",
		FallbackUsed:            true,
		Error:                   fmt.Sprintf("%s: %s", reason, msg),
	}
}
