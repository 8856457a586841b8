// Package agents defines the six meal-planning use cases as configurations
// of the generic pipeline: a prompt template, a schema manifest, a domain
// rule review and a deterministic fallback each. Adding a use case means
// adding a configuration here, not a new code path.
package agents

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"meal-agents/internal/pipeline"
	"meal-agents/internal/shopping"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// aliasTable is shared by every rule evaluation; the table itself is
// immutable after load.
var aliasTable = shopping.DefaultTable()

func mustTemplate(name, text string) *template.Template {
	return template.Must(template.New(name).Parse(text))
}

func renderPrompt(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// jsonBlock serializes input data for embedding in a prompt. MarshalIndent
// is deterministic for a fixed value, which keeps prompts reproducible.
func jsonBlock(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// newID mints an opaque identifier like "r_1a2b3c4d". Only ever called
// after generation, so prompts stay deterministic.
func newID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// parseObject decodes raw request bytes, rejecting anything whose top level
// is not a JSON object.
func parseObject(raw []byte, dst any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return pipeline.NewInputError("", "no input provided")
	}
	var probe any
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return pipeline.NewInputError("", fmt.Sprintf("invalid JSON: %v", err))
	}
	if _, ok := probe.(map[string]any); !ok {
		return pipeline.NewInputError("", "top-level value must be a JSON object")
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return pipeline.NewInputError("", fmt.Sprintf("invalid request shape: %v", err))
	}
	return nil
}

// validateInput converts struct-tag failures into InputErrors naming the
// first offending field.
func validateInput(dst any) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return pipeline.NewInputError(verrs[0].Field(), fmt.Sprintf("failed %q validation", verrs[0].Tag()))
	}
	return pipeline.NewInputError("", err.Error())
}
