package shopping

import (
	"fmt"
	"strconv"
	"strings"
)

// fraction is an exact rational amount. Using rationals instead of floats
// keeps sums like 1/2 + 1/4 representable and makes rendering round-trip.
type fraction struct {
	num, den int
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a < 0 {
		return -a
	}
	return a
}

func (f fraction) reduce() fraction {
	if f.den == 0 {
		return f
	}
	g := gcd(f.num, f.den)
	if g == 0 {
		return f
	}
	return fraction{f.num / g, f.den / g}
}

func (f fraction) add(o fraction) fraction {
	return fraction{f.num*o.den + o.num*f.den, f.den * o.den}.reduce()
}

// String renders the amount as a whole number, a mixed number ("1 1/2") or a
// simple fraction ("1/2").
func (f fraction) String() string {
	f = f.reduce()
	if f.den == 1 {
		return strconv.Itoa(f.num)
	}
	if f.num > f.den {
		whole := f.num / f.den
		rem := f.num % f.den
		return fmt.Sprintf("%d %d/%d", whole, rem, f.den)
	}
	return fmt.Sprintf("%d/%d", f.num, f.den)
}

// moreThanOne reports whether the amount exceeds one unit, for pluralizing.
func (f fraction) moreThanOne() bool {
	return f.num > f.den
}

func parseNumber(tok string) (fraction, bool) {
	if num, den, ok := strings.Cut(tok, "/"); ok {
		n, err1 := strconv.Atoi(num)
		d, err2 := strconv.Atoi(den)
		if err1 != nil || err2 != nil || d == 0 {
			return fraction{}, false
		}
		return fraction{n, d}, true
	}
	if whole, dec, ok := strings.Cut(tok, "."); ok {
		w, err1 := strconv.Atoi(whole)
		d, err2 := strconv.Atoi(dec)
		if err1 != nil || err2 != nil || len(dec) > 3 {
			return fraction{}, false
		}
		den := 1
		for range dec {
			den *= 10
		}
		return fraction{w*den + d, den}.reduce(), true
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return fraction{}, false
	}
	return fraction{n, 1}, true
}

// invariantUnits never take a plural "s" when rendered.
var invariantUnits = map[string]bool{
	"tbsp": true, "tsp": true, "oz": true, "g": true, "kg": true,
	"ml": true, "l": true, "lb": true, "lbs": true,
}

// singularUnit folds a unit's plural form for matching ("cans" and "can"
// aggregate together).
func singularUnit(unit string) string {
	if invariantUnits[unit] {
		return unit
	}
	if strings.HasSuffix(unit, "es") && len(unit) > 3 {
		// boxes -> box, bunches -> bunch
		trimmed := strings.TrimSuffix(unit, "es")
		if strings.HasSuffix(trimmed, "x") || strings.HasSuffix(trimmed, "ch") || strings.HasSuffix(trimmed, "sh") {
			return trimmed
		}
	}
	if strings.HasSuffix(unit, "s") && len(unit) > 2 {
		return strings.TrimSuffix(unit, "s")
	}
	return unit
}

func pluralUnit(unit string) string {
	if unit == "" || invariantUnits[unit] {
		return unit
	}
	if strings.HasSuffix(unit, "x") || strings.HasSuffix(unit, "ch") || strings.HasSuffix(unit, "sh") {
		return unit + "es"
	}
	return unit + "s"
}

// parseQty splits a quantity string into an exact amount and a unit key.
// It accepts "2", "2 cans", "1/2 cup", "1 1/2 cups" and "2.5 cups"; anything
// else ("to taste", "1 can (14 oz)") is unparseable and kept as a distinct
// line item rather than guessed at.
func parseQty(qty string) (fraction, string, bool) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(qty)))
	if len(fields) == 0 {
		return fraction{}, "", false
	}

	amt, ok := parseNumber(fields[0])
	if !ok {
		return fraction{}, "", false
	}
	rest := fields[1:]

	// Mixed number: "1 1/2 cups".
	if len(rest) > 0 && strings.Contains(rest[0], "/") {
		frac, fok := parseNumber(rest[0])
		if !fok {
			return fraction{}, "", false
		}
		amt = amt.add(frac)
		rest = rest[1:]
	}

	if len(rest) > 1 {
		return fraction{}, "", false
	}
	unit := ""
	if len(rest) == 1 {
		unit = rest[0]
		for _, r := range unit {
			if (r < 'a' || r > 'z') && r != '-' {
				return fraction{}, "", false
			}
		}
		unit = singularUnit(unit)
	}
	return amt, unit, true
}

// renderQty formats an aggregated amount back into "3 cans" form.
func renderQty(amt fraction, unit string) string {
	if unit == "" {
		return amt.String()
	}
	if amt.moreThanOne() {
		unit = pluralUnit(unit)
	}
	return amt.String() + " " + unit
}
