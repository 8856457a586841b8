package agents

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"meal-agents/internal/domain"
	"meal-agents/internal/llm"
	"meal-agents/internal/pipeline"
	"meal-agents/internal/rules"
	"meal-agents/internal/shopping"
)

//go:embed shopping_prompt.md
var shoppingPrompt string

var shoppingTmpl = mustTemplate("shopping", shoppingPrompt)

// ShoppingInput is the raw ingredient lines gathered from multiple recipes.
// The request body is a bare JSON array, not an object.
type ShoppingInput struct {
	Items []domain.Ingredient
}

// ShoppingResult is the consolidated shopping list. It serializes as a bare
// JSON array to match the request shape; fallback bookkeeping travels out of
// band through the pipeline result.
type ShoppingResult struct {
	Items        []domain.Ingredient
	FallbackUsed bool
	Error        string
}

func (r ShoppingResult) MarshalJSON() ([]byte, error) {
	if r.Items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(r.Items)
}

func (r *ShoppingResult) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &r.Items)
}

type shoppingPromptData struct {
	InputJSON string
}

// ParseShoppingInput decodes a shopping normalization request. Unlike every
// other use case the top level must be a JSON array of ingredient lines.
func ParseShoppingInput(raw []byte) (ShoppingInput, error) {
	var in ShoppingInput
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return in, pipeline.NewInputError("", "no input provided")
	}
	var probe any
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return in, pipeline.NewInputError("", fmt.Sprintf("invalid JSON: %v", err))
	}
	if _, ok := probe.([]any); !ok {
		return in, pipeline.NewInputError("", "top-level value must be a JSON array of ingredients")
	}
	if err := json.Unmarshal(trimmed, &in.Items); err != nil {
		return in, pipeline.NewInputError("", fmt.Sprintf("invalid request shape: %v", err))
	}
	if len(in.Items) == 0 {
		return in, pipeline.NewInputError("", "ingredient list is empty")
	}
	for i, item := range in.Items {
		if item.Name == "" {
			return in, pipeline.NewInputError(fmt.Sprintf("[%d].name", i), "ingredient name is required")
		}
	}
	return in, nil
}

// ShoppingNormalizer returns the shopping list consolidation use case. The
// backend proposes groupings; the deterministic aggregator then re-folds its
// output through the alias table, so the final list is canonical regardless
// of what the backend produced. Running the result through the use case
// again yields the identical list.
func ShoppingNormalizer() pipeline.UseCase[ShoppingInput, ShoppingResult] {
	return pipeline.UseCase[ShoppingInput, ShoppingResult]{
		Name:   "shopping-normalizer",
		Params: llm.Params{Temperature: 0.3, TopP: 0.95, TopK: 40, MaxOutputTokens: 2048},
		BuildPrompt: func(in ShoppingInput) (string, error) {
			return renderPrompt(shoppingTmpl, shoppingPromptData{
				InputJSON: jsonBlock(in.Items),
			})
		},
		Manifest: pipeline.Manifest{
			Kind: pipeline.KindArray,
			Element: &pipeline.Manifest{
				Kind: pipeline.KindObject,
				Fields: map[string]pipeline.Field{
					"name": {Required: true, Kind: pipeline.KindString},
					"qty":  {Required: true, Kind: pipeline.KindString},
				},
			},
		},
		Decode: pipeline.DecodeAs[ShoppingResult],
		Review: func(in ShoppingInput, out *ShoppingResult) []rules.Finding {
			out.Items = shopping.Aggregate(out.Items, aliasTable)
			return nil
		},
		Fallback: func(in ShoppingInput, reason pipeline.Reason, msg string) ShoppingResult {
			return ShoppingResult{
				Items:        shopping.Aggregate(in.Items, aliasTable),
				FallbackUsed: true,
				Error:        fmt.Sprintf("%s: %s", reason, msg),
			}
		},
	}
}
