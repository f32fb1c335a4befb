package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// TaxpayerIDLength is the digit count of a normalized taxpayer identifier.
const TaxpayerIDLength = 14

// TaxpayerID is a normalized (digits-only) taxpayer identifier. It is one half
// of the record key and must always be exactly TaxpayerIDLength digits.
type TaxpayerID string

// NormalizeTaxpayerID strips punctuation from a raw identifier and validates
// the digit count. Targets reject anything else, so this is enforced before
// any session is opened.
func NormalizeTaxpayerID(raw string) (TaxpayerID, error) {
	var b strings.Builder
	for _, r := range raw {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) != TaxpayerIDLength {
		return "", fmt.Errorf("taxpayer id must have %d digits, got %d", TaxpayerIDLength, len(digits))
	}
	return TaxpayerID(digits), nil
}

// String returns the normalized digit string.
func (id TaxpayerID) String() string { return string(id) }

// Formatted renders the identifier in the conventional 00.000.000/0000-00 shape.
func (id TaxpayerID) Formatted() string {
	s := string(id)
	if len(s) != TaxpayerIDLength {
		return s
	}
	return fmt.Sprintf("%s.%s.%s/%s-%s", s[0:2], s[2:5], s[5:8], s[8:12], s[12:14])
}
