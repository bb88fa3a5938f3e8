package catalog

import (
	"regexp"
	"strings"
	"unicode"
)

// Meta holds best-effort enrichment guesses. Nil fields mean "no confident match".
type Meta struct {
	Brand *string
	Size  *string
}

// MetaExtractor guesses brand and size from a raw product name. Implementations
// must never fail; the output only fills gaps and never decides identity.
type MetaExtractor interface {
	Extract(rawName string) Meta
}

var (
	// the leading group keeps a size from starting mid-number or mid-word ("Max 2")
	// and the trailing group from ending inside a word, accented letters included ("10gé")
	sizeToken = regexp.MustCompile(`(?i)(?:^|[^\p{L}\d.,]|[x×])(\d+(?:[.,]\d+)?\s?(?:kg|g|ml|cl|l|lb|oz|pack|pcs)|[×x]\s?\d+)(?:$|[^\p{L}\p{N}])`)
	numeric   = regexp.MustCompile(`^[\d.,]+$`)
)

// RegexMetaExtractor is the default token-scanning heuristic.
type RegexMetaExtractor struct{}

var _ MetaExtractor = RegexMetaExtractor{}

func (RegexMetaExtractor) Extract(rawName string) Meta {
	var meta Meta

	if m := sizeToken.FindStringSubmatch(rawName); m != nil {
		size := strings.ToLower(strings.Join(strings.Fields(m[1]), ""))
		size = strings.Replace(size, "×", "x", 1)
		size = strings.Replace(size, ",", ".", 1)
		meta.Size = &size
	}

	fields := strings.Fields(rawName)
	if len(fields) == 0 {
		return meta
	}
	first := strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if first == "" || numeric.MatchString(first) || sizeToken.MatchString(first) {
		return meta
	}
	if r := []rune(first)[0]; unicode.IsUpper(r) {
		meta.Brand = &first
	}
	return meta
}
