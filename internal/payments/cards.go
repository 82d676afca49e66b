package payments

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	nonDigits    = regexp.MustCompile(`\D`)
	reMastercard = regexp.MustCompile(`^5[1-5]`)
	reAmex       = regexp.MustCompile(`^3[47]`)
)

// ValidateCardNumber checks length (13-19 digits after stripping separators)
// and the Luhn checksum.
func ValidateCardNumber(number string) bool {
	digits := nonDigits.ReplaceAllString(number, "")
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}

	sum := 0
	double := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

// CardType identifies the brand from the number prefix. Order matters: the
// Mastercard 2-series range overlaps nothing here, but Discover's "65" must
// be checked as a brand before falling through to Unknown.
func CardType(number string) string {
	digits := nonDigits.ReplaceAllString(number, "")

	switch {
	case strings.HasPrefix(digits, "4"):
		return "Visa"
	case reMastercard.MatchString(digits):
		return "Mastercard"
	case len(digits) >= 4 && inMastercard2Series(digits[:4]):
		return "Mastercard"
	case reAmex.MatchString(digits):
		return "Amex"
	case strings.HasPrefix(digits, "6011") || strings.HasPrefix(digits, "65"):
		return "Discover"
	default:
		return "Unknown"
	}
}

func inMastercard2Series(prefix4 string) bool {
	n, err := strconv.Atoi(prefix4)
	if err != nil {
		return false
	}
	return n >= 2221 && n <= 2720
}

// FormatCardNumber renders digits in groups of four for display.
func FormatCardNumber(number string) string {
	digits := nonDigits.ReplaceAllString(number, "")
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// MaskCardNumber hides all but the last four digits.
func MaskCardNumber(number string) string {
	digits := nonDigits.ReplaceAllString(number, "")
	if len(digits) <= 4 {
		return digits
	}
	return "•••• •••• •••• " + digits[len(digits)-4:]
}
