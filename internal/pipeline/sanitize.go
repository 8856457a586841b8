package pipeline

import "strings"

// Sanitize extracts the payload candidate from raw backend text. It strips
// one optional enclosing code fence (tolerating a language tag on the
// opening marker, or the tag spilling onto its own line) and surrounding
// whitespace. Deeper malformation is a parser concern, not the sanitizer's.
func Sanitize(raw string) string {
	text := strings.TrimSpace(raw)

	if strings.HasPrefix(text, "```") {
		lines := strings.Split(text, "\n")
		lines = lines[1:]
		if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
			lines = lines[:len(lines)-1]
		}
		text = strings.TrimSpace(strings.Join(lines, "\n"))
	}

	// Some responses leave the language tag on its own first line.
	if first, rest, ok := strings.Cut(text, "\n"); ok && strings.TrimSpace(first) == "json" {
		text = strings.TrimSpace(rest)
	}

	return text
}
