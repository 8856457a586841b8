// Package shopping normalizes and aggregates ingredient lists into a
// consolidated shopping list. Names are canonicalized through an alias table,
// same-unit quantities are summed arithmetically, and preparation descriptors
// are preserved as notes instead of being discarded.
package shopping

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed aliases.yaml
var aliasesYAML []byte

// descriptors are preparation/state words extracted from ingredient names
// into the notes field so that "diced tomatoes" and "fresh tomatoes" merge
// onto the same canonical name.
var descriptors = map[string]bool{
	"fresh": true, "dried": true, "canned": true, "frozen": true,
	"diced": true, "chopped": true, "minced": true, "sliced": true,
	"grated": true, "shredded": true, "crushed": true, "ground": true,
	"cooked": true, "raw": true, "ripe": true, "organic": true,
}

// Table maps ingredient name variants onto their canonical form.
type Table struct {
	aliases map[string]string
}

type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// DefaultTable parses the alias table embedded in the binary. It panics on a
// malformed embed, which can only happen at build time.
func DefaultTable() *Table {
	t, err := ParseTable(aliasesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded alias table is invalid: %v", err))
	}
	return t
}

// ParseTable loads an alias table from YAML.
func ParseTable(data []byte) (*Table, error) {
	var f aliasFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse alias table: %w", err)
	}
	aliases := make(map[string]string, len(f.Aliases))
	for k, v := range f.Aliases {
		aliases[strings.ToLower(strings.TrimSpace(k))] = strings.ToLower(strings.TrimSpace(v))
	}
	return &Table{aliases: aliases}, nil
}

// Canonicalize returns the canonical form of an ingredient name along with
// any preparation descriptors extracted from it. Canonicalization is
// idempotent: applying it to its own output returns the same values.
func (t *Table) Canonicalize(name string) (string, []string) {
	lowered := strings.ToLower(strings.TrimSpace(name))

	var kept, notes []string
	for _, word := range strings.Fields(lowered) {
		if descriptors[word] {
			notes = append(notes, word)
			continue
		}
		kept = append(kept, word)
	}
	canonical := strings.Join(kept, " ")

	if folded, ok := t.aliases[canonical]; ok {
		canonical = folded
	}
	sort.Strings(notes)
	return canonical, notes
}

// Matches reports whether an ingredient name refers to the given excluded
// term once both are canonicalized. A match is either exact or a whole-word
// containment ("chicken breast" matches exclusion "chicken").
func (t *Table) Matches(name, excluded string) bool {
	canonical, _ := t.Canonicalize(name)
	target, _ := t.Canonicalize(excluded)
	if canonical == target {
		return true
	}
	for _, word := range strings.Fields(canonical) {
		if word == target {
			return true
		}
	}
	return false
}
