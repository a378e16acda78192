package intake

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CategoryFamily groups categories by the kind of size domain they use.
type CategoryFamily string

const (
	FamilyNumeric CategoryFamily = "numeric" // footwear, numeric shoe sizes
	FamilyAlpha   CategoryFamily = "alpha"   // clothing, XS..XXL
	FamilyUnique  CategoryFamily = "unique"  // single "U" size
)

// DefaultCategory is returned when no keyword family matches the description.
const DefaultCategory = "accesorio"

// Keyword tables per family. Detection order is numeric > alpha > unique, so
// a description matching both families resolves to the numeric one.
var (
	numericKeywords = []string{
		"zapato", "botin", "bolichero", "mocasin", "teni", "sandalia",
		"sueco", "baleta", "forche", "plataforma", "bota",
		"forché", "mocasín", "botín",
	}
	alphaKeywords = []string{
		"chaqueta", "gorra", "boina", "guantes",
	}
	uniqueKeywords = []string{
		"combo", "correa", "bolso", "bolsa", "morral", "manos libres",
		"mariconera", "pechera", "monedera", "billetera", "areta",
		"portadocumento", "llavero", "riñonera", "portacelular",
		"grasa", "champú", "shampoo",
	}
)

// AlphaSizes is the fixed ordered label set for the alpha family.
var AlphaSizes = []string{"XS", "S", "M", "L", "XL", "XXL"}

// NumericSizeCount is how many consecutive sizes the numeric family spans.
const NumericSizeCount = 16

// DefaultNumericBase is the first size of the numeric domain (33..48).
const DefaultNumericBase = 33

// diacriticStripper removes combining marks after NFD decomposition, so
// "mocasín" and "mocasin" compare equal.
var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// Normalize lowercases a string and strips diacritics for keyword matching.
func Normalize(s string) string {
	stripped, _, err := transform.String(diacriticStripper, s)
	if err != nil {
		stripped = s
	}
	return strings.ToLower(stripped)
}

// Rules resolves product descriptions to categories and categories to their
// legal size domain. The numeric base is configurable; everything else is
// fixed business vocabulary.
type Rules struct {
	numericBase int
}

// NewRules creates a rules engine with the given numeric base size.
// A non-positive base falls back to DefaultNumericBase.
func NewRules(numericBase int) *Rules {
	if numericBase <= 0 {
		numericBase = DefaultNumericBase
	}
	return &Rules{numericBase: numericBase}
}

// DetectCategory returns the first keyword contained in the normalized
// description, honoring the numeric > alpha > unique family priority, or
// DefaultCategory when nothing matches.
func (r *Rules) DetectCategory(description string) string {
	normalized := Normalize(description)
	for _, family := range [][]string{numericKeywords, alphaKeywords, uniqueKeywords} {
		for _, keyword := range family {
			if strings.Contains(normalized, Normalize(keyword)) {
				return keyword
			}
		}
	}
	return DefaultCategory
}

// FamilyOf returns the size family a category belongs to.
func (r *Rules) FamilyOf(category string) CategoryFamily {
	normalized := Normalize(category)
	if containsNormalized(numericKeywords, normalized) {
		return FamilyNumeric
	}
	if containsNormalized(alphaKeywords, normalized) {
		return FamilyAlpha
	}
	return FamilyUnique
}

// ValidVariantsFor returns the ordered legal size tokens for a category.
func (r *Rules) ValidVariantsFor(category string) []string {
	switch r.FamilyOf(category) {
	case FamilyNumeric:
		sizes := make([]string, NumericSizeCount)
		for i := range sizes {
			sizes[i] = strconv.Itoa(r.numericBase + i)
		}
		return sizes
	case FamilyAlpha:
		return append([]string(nil), AlphaSizes...)
	default:
		return []string{"U"}
	}
}

// SyntaxExample returns a category-appropriate example of the size/quantity
// submission format, used in the instructions broadcast.
func (r *Rules) SyntaxExample(category string) string {
	switch r.FamilyOf(category) {
	case FamilyNumeric:
		return "`38 39:2 41` (una talla 38, dos 39, y una 41)"
	case FamilyAlpha:
		return "`S M:3 L` (una talla S, tres M, y una L)"
	default:
		return "`U:5` (cinco unidades de talla única)"
	}
}

func containsNormalized(keywords []string, normalized string) bool {
	for _, k := range keywords {
		if Normalize(k) == normalized {
			return true
		}
	}
	return false
}
