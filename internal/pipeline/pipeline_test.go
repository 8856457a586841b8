package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meal-agents/internal/gateway"
	"meal-agents/internal/llm"
	"meal-agents/internal/rules"
)

type stubInvoker struct {
	content string
	err     error
	calls   int
	prompt  string
}

func (s *stubInvoker) Invoke(ctx context.Context, prompt string, p llm.Params) (llm.ContentResponse, error) {
	s.calls++
	s.prompt = prompt
	if s.err != nil {
		return llm.ContentResponse{}, s.err
	}
	return llm.ContentResponse{
		Content: s.content,
		Usage:   llm.TokenUsage{PromptTokens: 10, CompletionTokens: 20},
	}, nil
}

type greeting struct {
	Message string `json:"message"`
}

type testInput struct {
	Name string
}

func testUseCase() UseCase[testInput, greeting] {
	return UseCase[testInput, greeting]{
		Name: "greeting",
		BuildPrompt: func(in testInput) (string, error) {
			return "greet " + in.Name, nil
		},
		Manifest: Manifest{
			Kind: KindObject,
			Fields: map[string]Field{
				"message": {Required: true, Kind: KindString},
			},
		},
		Decode: DecodeAs[greeting],
		Fallback: func(in testInput, reason Reason, msg string) greeting {
			return greeting{Message: "hello, " + in.Name}
		},
	}
}

func TestRunFinalizes(t *testing.T) {
	inv := &stubInvoker{content: "```json\n{\"message\": \"hi bea\"}\n```"}

	res := Run(context.Background(), inv, testUseCase(), testInput{Name: "bea"}, nil)

	assert.Equal(t, StateFinalized, res.State)
	assert.False(t, res.FallbackUsed)
	assert.Equal(t, "hi bea", res.Artifact.Message)
	assert.Equal(t, "greet bea", inv.prompt)
	assert.Equal(t, 10, res.Usage.PromptTokens)
	assert.Equal(t, 20, res.Usage.CompletionTokens)
}

func TestRunFallsBackOnMalformedOutput(t *testing.T) {
	inv := &stubInvoker{content: "I'd be happy to help with that!"}

	res := Run(context.Background(), inv, testUseCase(), testInput{Name: "bea"}, nil)

	assert.Equal(t, StateFallback, res.State)
	assert.True(t, res.FallbackUsed)
	assert.Equal(t, ReasonMalformedOutput, res.Reason)
	assert.Equal(t, "hello, bea", res.Artifact.Message)
	// Token usage from the failed attempt still surfaces.
	assert.Equal(t, 10, res.Usage.PromptTokens)
}

func TestRunFallsBackOnSchemaViolation(t *testing.T) {
	inv := &stubInvoker{content: `{"message": 42}`}

	res := Run(context.Background(), inv, testUseCase(), testInput{Name: "bea"}, nil)

	assert.Equal(t, StateFallback, res.State)
	assert.Equal(t, ReasonSchemaViolation, res.Reason)
	assert.Equal(t, "hello, bea", res.Artifact.Message)
}

func TestRunMapsGenerationErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Reason
	}{
		{
			name: "permanent",
			err:  &gateway.GenerationError{Kind: gateway.KindPermanent, Err: errors.New("invalid key")},
			want: ReasonGenerationPermanent,
		},
		{
			name: "transient",
			err:  &gateway.GenerationError{Kind: gateway.KindTransient, Err: errors.New("overloaded")},
			want: ReasonGenerationTransient,
		},
		{
			name: "canceled",
			err:  &gateway.GenerationError{Kind: gateway.KindCanceled, Err: context.Canceled},
			want: ReasonCanceled,
		},
		{
			name: "unclassified error treated as transient",
			err:  errors.New("boom"),
			want: ReasonGenerationTransient,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := &stubInvoker{err: tt.err}
			res := Run(context.Background(), inv, testUseCase(), testInput{Name: "bea"}, nil)

			assert.Equal(t, StateFallback, res.State)
			assert.Equal(t, tt.want, res.Reason)
			assert.Equal(t, "hello, bea", res.Artifact.Message)
		})
	}
}

func TestRunAppliesDefaultsBeforeValidation(t *testing.T) {
	uc := testUseCase()
	uc.ApplyDefaults = func(in testInput, doc any) any {
		obj, ok := doc.(map[string]any)
		if !ok {
			return doc
		}
		if _, present := obj["message"]; !present {
			obj["message"] = "default greeting"
		}
		return obj
	}
	inv := &stubInvoker{content: `{}`}

	res := Run(context.Background(), inv, uc, testInput{Name: "bea"}, nil)

	require.Equal(t, StateFinalized, res.State)
	assert.Equal(t, "default greeting", res.Artifact.Message)
}

func TestRunRuleViolationRoutesToFallback(t *testing.T) {
	uc := testUseCase()
	uc.Review = func(in testInput, out *greeting) []rules.Finding {
		return []rules.Finding{{
			Rule:     "tone",
			Severity: rules.SeverityViolation,
			Code:     rules.CodeDislikedIngredient,
			Message:  "greeting mentions a disliked ingredient",
		}}
	}
	inv := &stubInvoker{content: `{"message": "hi, have some mushrooms"}`}

	res := Run(context.Background(), inv, uc, testInput{Name: "bea"}, nil)

	assert.Equal(t, StateFallback, res.State)
	assert.Equal(t, ReasonRuleViolation, res.Reason)
	assert.Equal(t, "hello, bea", res.Artifact.Message)
	require.Len(t, res.Findings, 1)
}

func TestRunWarningsDoNotBlockFinalization(t *testing.T) {
	uc := testUseCase()
	uc.Review = func(in testInput, out *greeting) []rules.Finding {
		return []rules.Finding{{
			Rule:     "tone",
			Severity: rules.SeverityWarning,
			Message:  "greeting is a bit long",
		}}
	}
	inv := &stubInvoker{content: `{"message": "well hello there"}`}

	res := Run(context.Background(), inv, uc, testInput{Name: "bea"}, nil)

	assert.Equal(t, StateFinalized, res.State)
	assert.False(t, res.FallbackUsed)
	require.Len(t, res.Findings, 1)
}

func TestRunReviewCanFinalizeArtifact(t *testing.T) {
	uc := testUseCase()
	uc.Review = func(in testInput, out *greeting) []rules.Finding {
		out.Message = out.Message + "!"
		return nil
	}
	inv := &stubInvoker{content: `{"message": "hi"}`}

	res := Run(context.Background(), inv, uc, testInput{Name: "bea"}, nil)

	assert.Equal(t, "hi!", res.Artifact.Message)
}

func TestRunPromptBuildFailure(t *testing.T) {
	uc := testUseCase()
	uc.BuildPrompt = func(in testInput) (string, error) {
		return "", errors.New("template exploded")
	}
	inv := &stubInvoker{}

	res := Run(context.Background(), inv, uc, testInput{Name: "bea"}, nil)

	assert.Equal(t, StateFallback, res.State)
	assert.Equal(t, ReasonInternal, res.Reason)
	assert.Zero(t, inv.calls)
}
