package document

import (
	"strings"

	"golang.org/x/text/language"
)

// englishAliases covers the spellings scrapers feed us that the BCP 47 parser
// rejects.
var englishAliases = map[string]struct{}{
	"en":      {},
	"eng":     {},
	"english": {},
}

// IsEnglish reports whether a scraped language descriptor means English.
// Accepts BCP 47 tags ("en", "en-US") as well as the free-text values seen in
// upstream metadata.
func IsEnglish(code string) bool {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if normalized == "" {
		return false
	}
	if _, ok := englishAliases[normalized]; ok {
		return true
	}
	tag, err := language.Parse(normalized)
	if err != nil {
		return false
	}
	base, _ := tag.Base()
	return base.String() == "en"
}

// NormalizeLanguage trims a language descriptor and defaults it to English
// when empty, matching ingestion's metadata defaulting.
func NormalizeLanguage(code string) string {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if normalized == "" {
		return "en"
	}
	return normalized
}
