package catalog

import (
	"cmp"
	"regexp"
	"slices"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// maxPasses bounds the fixed-point loop in Normalize. Real names settle in two.
const maxPasses = 8

var (
	thousandsSep   = regexp.MustCompile(`(\d),(\d{3})(\D|$)`)
	decimalComma   = regexp.MustCompile(`(\d),(\d{1,2})(\D|$)`)
	multipackRe    = regexp.MustCompile(`(\d)\s*[x×]\s*(\d)`)
	unitRe         = regexp.MustCompile(`(\d)\s*(` + unitAlternation() + `)($|[^\p{L}\p{N}])`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
	// vulgar fractions, with an optional whole part: "1½", "2 ¼", "⅓"
	vulgarFraction = regexp.MustCompile(`(?:(\p{Nd}+)\s*)?([\x{00BC}-\x{00BE}\x{2150}-\x{215E}])`)
)

// unitAliases maps every accepted spelling onto the canonical abbreviation.
var unitAliases = map[string]string{
	"kilograms": "kg", "kilogram": "kg", "kilos": "kg", "kilo": "kg", "kgs": "kg", "kg": "kg",
	"grams": "g", "gram": "g", "grms": "g", "grm": "g", "gms": "g", "gm": "g", "gr": "g", "g": "g",
	"millilitres": "ml", "millilitre": "ml", "milliliters": "ml", "milliliter": "ml", "mls": "ml", "ml": "ml",
	"centilitres": "cl", "centilitre": "cl", "centiliters": "cl", "centiliter": "cl", "cl": "cl",
	"litres": "l", "litre": "l", "liters": "l", "liter": "l", "ltrs": "l", "ltr": "l", "lt": "l", "l": "l",
	"pounds": "lb", "pound": "lb", "lbs": "lb", "lb": "lb",
	"ounces": "oz", "ounce": "oz", "oz": "oz",
	"pieces": "pcs", "piece": "pcs", "pcs": "pcs", "pc": "pcs",
	"packs": "pack", "pack": "pack", "pk": "pack",
}

// unitAlternation orders aliases longest first so "kgs" wins over "kg" and "g".
func unitAlternation() string {
	keys := make([]string, 0, len(unitAliases))
	for k := range unitAliases {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return strings.Join(keys, "|")
}

// Normalize reduces a raw product name to the canonical form used for exact
// identity comparison. It is deterministic and idempotent: the pipeline is
// reapplied until its output no longer changes.
func Normalize(raw string) string {
	s := normalizePass(raw)
	for i := 1; i < maxPasses; i++ {
		next := normalizePass(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func normalizePass(raw string) string {
	s := vulgarFraction.ReplaceAllStringFunc(raw, expandFraction)
	s = norm.NFKC.String(s)
	s = norm.NFKC.String(strings.ToLower(s))
	s = strings.ReplaceAll(s, "\u2044", "/")

	s = strings.NewReplacer("'", "", "’", "", "‘", "", "`", "", "´", "").Replace(s)
	s = replaceUntilStable(s, thousandsSep, "$1$2$3")
	s = replaceUntilStable(s, decimalComma, "$1.$2$3")

	s = stripPunctuation(s)

	s = replaceUntilStable(s, multipackRe, "$1 x $2")
	s = strings.ReplaceAll(s, "×", " ")
	s = unitRe.ReplaceAllStringFunc(s, canonicalUnit)

	s = whitespaceRuns.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func canonicalUnit(match string) string {
	sub := unitRe.FindStringSubmatch(match)
	if len(sub) != 4 {
		return match
	}
	return sub[1] + " " + unitAliases[sub[2]] + sub[3]
}

// expandFraction spells a vulgar fraction out so folding cannot glue it onto
// the whole part ("1½" must not become "11/2"). Halves, quarters, fifths,
// eighths and tenths become decimals; thirds and sixths stay as "n/d".
func expandFraction(match string) string {
	sub := vulgarFraction.FindStringSubmatch(match)
	parts := strings.Split(norm.NFKC.String(sub[2]), "\u2044")
	if len(parts) != 2 {
		return match
	}
	num, errNum := decimal.NewFromString(parts[0])
	den, errDen := decimal.NewFromString(parts[1])
	if errNum != nil || errDen != nil || den.IsZero() {
		return match
	}
	whole := norm.NFKC.String(sub[1])

	if !terminates(den.IntPart()) {
		if whole == "" {
			return parts[0] + "/" + parts[1]
		}
		return whole + " " + parts[0] + "/" + parts[1]
	}
	value := num.Div(den)
	if whole != "" {
		w, err := decimal.NewFromString(whole)
		if err != nil {
			return match
		}
		value = value.Add(w)
	}
	return value.String()
}

// terminates reports whether 1/den has a finite decimal expansion.
func terminates(den int64) bool {
	for den%2 == 0 {
		den /= 2
	}
	for den%5 == 0 {
		den /= 5
	}
	return den == 1
}

// stripPunctuation keeps letters, digits, '%', '&' and '×'. A dot or slash
// survives only between two digits and a single dash only between two
// alphanumerics.
func stripPunctuation(s string) string {
	runes := []rune(s)
	for i, r := range runes {
		if isDash(r) {
			runes[i] = '-'
		}
	}

	var b strings.Builder
	b.Grow(len(s))
	for i, r := range runes {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '%', r == '&', r == '×':
			b.WriteRune(r)
		case r == '.', r == '/':
			if between(runes, i, unicode.IsDigit) {
				b.WriteRune(r)
			} else {
				b.WriteByte(' ')
			}
		case r == '-':
			if between(runes, i, isAlnum) {
				b.WriteRune(r)
			} else {
				b.WriteByte(' ')
			}
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func between(runes []rune, i int, pred func(rune) bool) bool {
	return i > 0 && i < len(runes)-1 && pred(runes[i-1]) && pred(runes[i+1])
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDash(r rune) bool {
	switch r {
	case '-', '‐', '‑', '‒', '–', '—', '―', '−':
		return true
	}
	return false
}

func replaceUntilStable(s string, re *regexp.Regexp, repl string) string {
	for {
		next := re.ReplaceAllString(s, repl)
		if next == s {
			return next
		}
		s = next
	}
}
