package pipeline

import (
	"fmt"
	"strings"
)

// Kind is the primitive shape a schema field must have.
type Kind string

const (
	KindObject Kind = "object"
	KindArray  Kind = "array"
	KindString Kind = "string"
	KindNumber Kind = "number"
)

// Field declares one entry of a use case's required-field manifest.
type Field struct {
	Required bool
	Kind     Kind
}

// Manifest declares the expected top-level shape of a use case's output:
// either an object with named fields or a bare array whose elements follow
// the Element manifest.
type Manifest struct {
	Kind    Kind
	Fields  map[string]Field
	Element *Manifest
}

// SchemaError lists every missing or mistyped field found in one pass, so a
// single response reports all problems at once rather than just the first.
type SchemaError struct {
	Problems []string
}

func (e *SchemaError) Error() string {
	return "schema violation: " + strings.Join(e.Problems, "; ")
}

func kindOf(v any) Kind {
	switch v.(type) {
	case map[string]any:
		return KindObject
	case []any:
		return KindArray
	case string:
		return KindString
	case float64:
		return KindNumber
	default:
		return ""
	}
}

// Validate checks a decoded JSON document against the manifest. It returns a
// *SchemaError carrying every problem, or nil when the document conforms.
func (m Manifest) Validate(doc any) error {
	problems := m.check("", doc)
	if len(problems) == 0 {
		return nil
	}
	return &SchemaError{Problems: problems}
}

func (m Manifest) check(path string, doc any) []string {
	var problems []string
	label := func(field string) string {
		if path == "" {
			return field
		}
		return path + "." + field
	}

	switch m.Kind {
	case KindArray:
		arr, ok := doc.([]any)
		if !ok {
			return []string{fmt.Sprintf("%s: expected an array, got %s", orRoot(path), kindOf(doc))}
		}
		if m.Element != nil {
			for i, el := range arr {
				problems = append(problems, m.Element.check(fmt.Sprintf("%s[%d]", orRoot(path), i), el)...)
			}
		}
	case KindObject:
		obj, ok := doc.(map[string]any)
		if !ok {
			return []string{fmt.Sprintf("%s: expected an object, got %s", orRoot(path), kindOf(doc))}
		}
		for name, field := range m.Fields {
			v, present := obj[name]
			if !present || v == nil {
				if field.Required {
					problems = append(problems, fmt.Sprintf("%s: required field is missing", label(name)))
				}
				continue
			}
			if got := kindOf(v); got != field.Kind {
				problems = append(problems, fmt.Sprintf("%s: expected %s, got %s", label(name), field.Kind, got))
			}
		}
	default:
		problems = append(problems, fmt.Sprintf("%s: manifest kind %q is not a container", orRoot(path), m.Kind))
	}
	return problems
}

func orRoot(path string) string {
	if path == "" {
		return "payload"
	}
	return path
}
