package conversation

import (
	"strings"
	"unicode"
)

const countryCode = "255"

// NormalizePhone strips formatting and applies the Tanzanian country code.
// The result must hold 10 to 15 digits.
func NormalizePhone(raw string) (string, bool) {
	digits := strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) && r < unicode.MaxASCII {
			return r
		}
		return -1
	}, raw)
	switch {
	case digits == "":
		return "", false
	case strings.HasPrefix(digits, "0"):
		digits = countryCode + strings.TrimLeft(digits, "0")
	case !strings.HasPrefix(digits, countryCode):
		digits = countryCode + digits
	}
	if len(digits) < 10 || len(digits) > 15 {
		return "", false
	}
	return digits, true
}
