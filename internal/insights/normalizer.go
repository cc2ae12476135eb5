package insights

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// NormalizeDescription canonicalizes a free-text description for grouping:
// diacritics are folded, the text is lower-cased, every character that is not a
// letter, digit or whitespace is dropped and whitespace runs collapse to one space.
func NormalizeDescription(desc string) string {
	if desc == "" {
		return ""
	}

	// Transformers keep state, so a fresh chain is built per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, desc)
	if err != nil {
		folded = desc
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range strings.ToLower(folded) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// DisplayName formats a description for user-facing text: normalized and
// title-cased, short tokens upper-cased, capped at 50 characters.
func DisplayName(desc string) string {
	caser := cases.Title(language.English)
	words := strings.Fields(NormalizeDescription(desc))
	for i, word := range words {
		if len([]rune(word)) > 2 {
			words[i] = caser.String(word)
		} else {
			words[i] = strings.ToUpper(word)
		}
	}

	result := strings.Join(words, " ")
	if r := []rune(result); len(r) > 50 {
		result = string(r[:50])
	}
	return result
}

// CategoryOther is assigned when no keyword matches.
const CategoryOther = "other"

// DefaultCategoryKeywords maps a category to the keywords that identify it in a
// normalized description.
var DefaultCategoryKeywords = map[string][]string{
	"housing":        {"rent", "mortgage", "lease", "aluguel", "condominio", "hoa"},
	"utilities":      {"electric", "energia", "water", "agua", "gas", "internet", "broadband", "phone", "mobile", "telstra", "vodafone", "verizon", "comcast"},
	"entertainment":  {"netflix", "spotify", "disney", "hulu", "hbo", "youtube premium", "prime video", "cinema", "steam"},
	"food":           {"grocery", "supermarket", "mercado", "restaurant", "cafe", "coffee", "ifood", "uber eats", "doordash", "bakery"},
	"transportation": {"uber", "lyft", "fuel", "petrol", "combustivel", "parking", "toll", "metro", "train", "bus"},
	"healthcare":     {"pharmacy", "farmacia", "doctor", "medical", "dental", "hospital", "clinic", "health"},
	"insurance":      {"insurance", "seguro", "premium"},
	"education":      {"school", "university", "tuition", "course", "escola", "faculdade"},
	"shopping":       {"amazon", "ebay", "store", "shop", "mall"},
	"income":         {"salary", "salario", "payroll", "paycheck", "dividend", "refund", "pix recebido"},
}

type keywordEntry struct {
	keyword  string
	category string
}

// Categorizer assigns a category to a description by keyword lookup.
type Categorizer struct {
	entries []keywordEntry
}

// NewCategorizer builds a categorizer from a category → keywords table.
// Keywords are normalized the same way descriptions are. Longer keywords are
// tried first so "uber eats" beats "uber"; ties break alphabetically.
func NewCategorizer(table map[string][]string) *Categorizer {
	var entries []keywordEntry
	for category, keywords := range table {
		for _, kw := range keywords {
			if n := NormalizeDescription(kw); n != "" {
				entries = append(entries, keywordEntry{keyword: n, category: category})
			}
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if len(entries[i].keyword) != len(entries[j].keyword) {
			return len(entries[i].keyword) > len(entries[j].keyword)
		}
		if entries[i].keyword != entries[j].keyword {
			return entries[i].keyword < entries[j].keyword
		}
		return entries[i].category < entries[j].category
	})
	return &Categorizer{entries: entries}
}

// DefaultCategorizer uses DefaultCategoryKeywords.
func DefaultCategorizer() *Categorizer {
	return NewCategorizer(DefaultCategoryKeywords)
}

// Categorize returns the category of the first keyword that appears as a whole
// word sequence in the description, or CategoryOther.
func (c *Categorizer) Categorize(desc string) string {
	if c == nil {
		return CategoryOther
	}
	padded := " " + NormalizeDescription(desc) + " "
	for _, e := range c.entries {
		if strings.Contains(padded, " "+e.keyword+" ") {
			return e.category
		}
	}
	return CategoryOther
}
