package utils

import "strings"

const countryCode = "55"

// NormalizePhone reduces a phone number to the digit-only, country-prefixed
// form the chat provider expects. Returns "" when the input has no usable
// digits.
func NormalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < 10 {
		return ""
	}
	if strings.HasPrefix(digits, countryCode) && len(digits) >= 12 {
		return digits
	}
	return countryCode + digits
}
