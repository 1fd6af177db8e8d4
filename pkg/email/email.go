// Package email normalises and validates addresses used as login identifiers.
package email

import (
	"net/mail"
	"strings"
	"unicode"
)

const maxLength = 254

// Normalize trims whitespace and lowercases the address.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// IsValid reports whether address is a bare addr-spec with a dotted domain.
func IsValid(address string) bool {
	if address == "" || len(address) > maxLength {
		return false
	}
	parsed, err := mail.ParseAddress(address)
	if err != nil || parsed.Address != address || parsed.Name != "" {
		return false
	}
	at := strings.LastIndexByte(address, '@')
	return at > 0 && strings.Contains(address[at+1:], ".")
}

// DeriveNameFromEmail builds a display name from the local part, used when a
// signup omits the name.
func DeriveNameFromEmail(address string) string {
	localPart := address
	if at := strings.IndexByte(address, '@'); at > 0 {
		localPart = address[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "User"
	}
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
