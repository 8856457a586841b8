package shopping

import (
	"sort"
	"strings"

	"meal-agents/internal/domain"
)

type lineItem struct {
	name   string
	amt    fraction
	unit   string
	rawQty string
	parbl  bool
	notes  map[string]bool
}

// Aggregate consolidates ingredient entries into a normalized shopping list.
// Entries fold onto their canonical name; amounts with exactly matching units
// are summed, unparseable or mismatched units stay as separate line items,
// and preparation descriptors are unioned into notes. The result is sorted
// alphabetically by name and is a fixed point of Aggregate itself.
func Aggregate(items []domain.Ingredient, table *Table) []domain.Ingredient {
	if table == nil {
		table = DefaultTable()
	}

	merged := make(map[string]*lineItem)
	var order []string

	for _, item := range items {
		name, extracted := table.Canonicalize(item.Name)
		if name == "" {
			continue
		}

		notes := make(map[string]bool)
		for _, n := range extracted {
			notes[n] = true
		}
		for _, n := range strings.Split(item.Notes, ",") {
			if n = strings.TrimSpace(strings.ToLower(n)); n != "" {
				notes[n] = true
			}
		}

		amt, unit, ok := parseQty(item.Qty)
		var key string
		if ok {
			key = name + "|" + unit
		} else {
			key = name + "|raw:" + strings.ToLower(strings.TrimSpace(item.Qty))
		}

		li, seen := merged[key]
		if !seen {
			li = &lineItem{
				name:   name,
				amt:    amt,
				unit:   unit,
				rawQty: strings.TrimSpace(item.Qty),
				parbl:  ok,
				notes:  notes,
			}
			merged[key] = li
			order = append(order, key)
			continue
		}
		if ok {
			li.amt = li.amt.add(amt)
		}
		for n := range notes {
			li.notes[n] = true
		}
	}

	out := make([]domain.Ingredient, 0, len(order))
	for _, key := range order {
		li := merged[key]
		qty := li.rawQty
		if li.parbl {
			qty = renderQty(li.amt, li.unit)
		}
		noteList := make([]string, 0, len(li.notes))
		for n := range li.notes {
			noteList = append(noteList, n)
		}
		sort.Strings(noteList)
		out = append(out, domain.Ingredient{
			Name:  li.name,
			Qty:   qty,
			Notes: strings.Join(noteList, ", "),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Qty < out[j].Qty
	})
	return out
}
