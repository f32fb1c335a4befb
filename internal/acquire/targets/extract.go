package targets

import (
	"regexp"

	"certhub/internal/domain"
)

// Expiry phrasing differs per authority, so extraction tries specific patterns
// first and falls back to keyword proximity. All of them scan raw bytes: even
// inside a PDF the relevant strings appear as plain text near the metadata.
var (
	datePattern = `(\d{2}/\d{2}/\d{4})`

	// "válida até DD/MM/YYYY" — the accented byte varies with the document
	// encoding, so only the stable tail is matched.
	validUntilPattern = regexp.MustCompile(`(?i)lida\s+at[ée]?\s*` + datePattern)

	// "Validade: DD/MM/YYYY". The colon is mandatory so a bare validity range
	// ("Validade DD/MM/YYYY a DD/MM/YYYY") falls through to the range rule.
	validityLabelPattern = regexp.MustCompile(`(?i)validade:\s*` + datePattern)

	// "DD/MM/YYYY a DD/MM/YYYY" — a validity range; the second date is the
	// expiry.
	rangePattern = regexp.MustCompile(datePattern + `\s+a\s+` + datePattern)

	// "efeitos até DD/MM/YYYY"
	effectsUntilPattern = regexp.MustCompile(`(?i)efeitos\s+at[ée]?\s*` + datePattern)

	// Last resort: any date within a short window after a validity keyword.
	keywordDatePattern = regexp.MustCompile(`(?i)valid[^\d]{0,60}` + datePattern)
)

// extractExpiry pulls the expiry date out of a document or result page.
// Returns the zero Date when nothing matches; absence of an expiry is not a
// failure.
func extractExpiry(text []byte) domain.Date {
	if m := validUntilPattern.FindSubmatch(text); m != nil {
		return parseOrZero(string(m[1]))
	}
	if m := validityLabelPattern.FindSubmatch(text); m != nil {
		return parseOrZero(string(m[1]))
	}
	if m := rangePattern.FindSubmatch(text); m != nil {
		return parseOrZero(string(m[2]))
	}
	if m := effectsUntilPattern.FindSubmatch(text); m != nil {
		return parseOrZero(string(m[1]))
	}
	if m := keywordDatePattern.FindSubmatch(text); m != nil {
		return parseOrZero(string(m[1]))
	}
	return domain.Date{}
}

func parseOrZero(s string) domain.Date {
	d, err := domain.ParseDate(s)
	if err != nil {
		return domain.Date{}
	}
	return d
}
