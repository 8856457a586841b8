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

//go:embed feedback_prompt.md
var feedbackPrompt string

var feedbackTmpl = mustTemplate("feedback", feedbackPrompt)

// FeedbackInput carries one free-text feedback message.
type FeedbackInput struct {
	Feedback string `json:"feedback" validate:"required"`
}

// FeedbackResult is the structured preference set extracted from feedback.
// Every field is optional in the backend's reply; absent fields compact to
// their empty value.
type FeedbackResult struct {
	Likes              []string                            `json:"likes"`
	Dislikes           []string                            `json:"dislikes"`
	Intolerances       []string                            `json:"intolerances"`
	WeekdayPreferences map[string]domain.WeekdayPreference `json:"weekdayPreferences"`
	PreferredTexture   string                              `json:"preferredTexture,omitempty"`
	DietaryStyle       string                              `json:"dietaryStyle,omitempty"`
	FallbackUsed       bool                                `json:"fallbackUsed"`
	Error              string                              `json:"error,omitempty"`
}

type feedbackPromptData struct {
	Feedback string
}

// ParseFeedbackInput decodes and validates a feedback compaction request.
func ParseFeedbackInput(raw []byte) (FeedbackInput, error) {
	var in FeedbackInput
	if err := parseObject(raw, &in); err != nil {
		return in, err
	}
	if strings.TrimSpace(in.Feedback) == "" {
		return in, pipeline.NewInputError("feedback", "feedback text is required")
	}
	return in, nil
}

// FeedbackCompactor returns the feedback compaction use case.
func FeedbackCompactor() pipeline.UseCase[FeedbackInput, FeedbackResult] {
	return pipeline.UseCase[FeedbackInput, FeedbackResult]{
		Name:   "feedback-compactor",
		Params: llm.Params{Temperature: 0.2, TopP: 0.95, TopK: 40, MaxOutputTokens: 2048},
		BuildPrompt: func(in FeedbackInput) (string, error) {
			return renderPrompt(feedbackTmpl, feedbackPromptData{
				Feedback: strings.TrimSpace(in.Feedback),
			})
		},
		Manifest: pipeline.Manifest{
			Kind: pipeline.KindObject,
			Fields: map[string]pipeline.Field{
				"likes":              {Kind: pipeline.KindArray},
				"dislikes":           {Kind: pipeline.KindArray},
				"intolerances":       {Kind: pipeline.KindArray},
				"weekdayPreferences": {Kind: pipeline.KindObject},
				"preferredTexture":   {Kind: pipeline.KindString},
				"dietaryStyle":       {Kind: pipeline.KindString},
			},
		},
		ApplyDefaults: func(in FeedbackInput, doc any) any {
			obj, ok := doc.(map[string]any)
			if !ok {
				return doc
			}
			for _, key := range []string{"likes", "dislikes", "intolerances"} {
				if _, present := obj[key]; !present {
					obj[key] = []any{}
				}
			}
			if _, present := obj["weekdayPreferences"]; !present {
				obj["weekdayPreferences"] = map[string]any{}
			}
			return obj
		},
		Decode: pipeline.DecodeAs[FeedbackResult],
		Review: reviewFeedback,
		Fallback: func(in FeedbackInput, reason pipeline.Reason, msg string) FeedbackResult {
			return FeedbackResult{
				Likes:              []string{},
				Dislikes:           []string{},
				Intolerances:       []string{},
				WeekdayPreferences: map[string]domain.WeekdayPreference{},
				FallbackUsed:       true,
				Error:              fmt.Sprintf("%s: %s", reason, msg),
			}
		},
	}
}

// reviewFeedback canonicalizes extracted preferences: lowercase day keys,
// unknown day names flagged as violations, negative cook times rejected.
func reviewFeedback(in FeedbackInput, out *FeedbackResult) []rules.Finding {
	var findings []rules.Finding

	prefs := make(map[string]domain.WeekdayPreference, len(out.WeekdayPreferences))
	for day, pref := range out.WeekdayPreferences {
		key := strings.ToLower(strings.TrimSpace(day))
		if !domain.IsWeekday(key) {
			findings = append(findings, rules.Finding{
				Rule:     "feedback",
				Severity: rules.SeverityViolation,
				Code:     rules.CodeUnknownDay,
				Day:      day,
				Message:  fmt.Sprintf("weekday preference names unknown day %q", day),
			})
			continue
		}
		if pref.MaxCookMins < 0 {
			findings = append(findings, rules.Finding{
				Rule:     "feedback",
				Severity: rules.SeverityViolation,
				Code:     rules.CodeCookTimeExceeded,
				Day:      key,
				Message:  fmt.Sprintf("cook time limit for %s is negative", key),
			})
			continue
		}
		prefs[key] = pref
	}
	out.WeekdayPreferences = prefs

	lower := func(items []string) []string {
		cleaned := make([]string, 0, len(items))
		for _, s := range items {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				cleaned = append(cleaned, s)
			}
		}
		return cleaned
	}
	out.Likes = lower(out.Likes)
	out.Dislikes = lower(out.Dislikes)
	out.Intolerances = lower(out.Intolerances)
	out.PreferredTexture = strings.ToLower(strings.TrimSpace(out.PreferredTexture))
	out.DietaryStyle = strings.ToLower(strings.TrimSpace(out.DietaryStyle))
	return findings
}
