package reconcile

import (
	"regexp"
	"strings"
)

const countryCode = "254"

var validPhone = regexp.MustCompile(`^254[71]\d{8}$`)

// NormalizePhone rewrites a Kenyan mobile number into 254XXXXXXXXX form.
// Numbers it does not recognise are returned with separators stripped.
func NormalizePhone(phone string) string {
	p := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '-', '(', ')':
			return -1
		}
		return r
	}, phone)
	p = strings.TrimPrefix(p, "+")

	switch {
	case strings.HasPrefix(p, countryCode):
		return p
	case strings.HasPrefix(p, "07"), strings.HasPrefix(p, "01"):
		return countryCode + p[1:]
	case len(p) == 9 && (p[0] == '7' || p[0] == '1'):
		return countryCode + p
	}
	return p
}

// ValidPhone reports whether phone normalizes to a Kenyan mobile number.
func ValidPhone(phone string) bool {
	return validPhone.MatchString(NormalizePhone(phone))
}
