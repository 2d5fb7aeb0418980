// Package normalize turns raw facility fields into comparable linkage keys.
// Every function is total and pure: a false second result means the input
// carries too little information to link on.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/hippocratic-health/fraud-signal-engine/internal/fraud_signal_detection/domain"
)

const (
	minPhoneDigits = 10
	minTextLen     = 3
	zipLen         = 5

	// AddressSep joins address components into one key.
	AddressSep = "|"
)

// Phone keeps only the digits of raw. Country codes are not stripped, so
// a 10-digit and an 11-digit rendering of one number are different keys.
func Phone(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() < minPhoneDigits {
		return "", false
	}
	return b.String(), true
}

// Address lower-cases and trims each present component, cuts zip to five
// characters and joins what is left.
func Address(address, city, zip string) (string, bool) {
	parts := make([]string, 0, 3)
	if a := clean(address); a != "" {
		parts = append(parts, a)
	}
	if c := clean(city); c != "" {
		parts = append(parts, c)
	}
	if z := clean(zip); z != "" {
		parts = append(parts, truncate(z, zipLen))
	}
	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, AddressSep), true
}

// Text lower-cases and trims. Results of two characters or fewer ("NA",
// "-", initials) are rejected.
func Text(text string) (string, bool) {
	t := clean(text)
	if utf8.RuneCountInString(t) < minTextLen {
		return "", false
	}
	return t, true
}

// AdminEmail is Text restricted to values that look like an address.
func AdminEmail(raw string) (string, bool) {
	t, ok := Text(raw)
	if !ok || !strings.Contains(t, "@") {
		return "", false
	}
	return t, true
}

// AdminName is Text without the "n/a" placeholder.
func AdminName(raw string) (string, bool) {
	t, ok := Text(raw)
	if !ok || t == "n/a" {
		return "", false
	}
	return t, true
}

// Attribute returns the linkage key of type t for facility f.
func Attribute(t domain.AttributeType, f domain.Facility) (string, bool) {
	switch t {
	case domain.AttrOwner:
		return Text(f.OwnerName)
	case domain.AttrAdmin:
		return AdminEmail(f.AdminEmail)
	case domain.AttrPhone:
		return Phone(f.Phone)
	case domain.AttrAddress:
		return Address(f.Address, f.City, f.Zip)
	default:
		return "", false
	}
}

func clean(s string) string {
	return strings.ToLower(strings.TrimFunc(s, unicode.IsSpace))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
