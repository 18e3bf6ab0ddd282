// Package email derives display names from service email addresses. Party
// rosters migrated from legacy case management systems sometimes carry an
// address with no name on file; notices and service records still need
// something readable to print.
package email

import (
	"strings"
	"unicode"
)

// DisplayName builds a printable name from the local part of an address.
// "m.ortiz@example.org" becomes "M Ortiz". Returns "Unnamed Party" when
// nothing usable is left after splitting.
func DisplayName(addr string) string {
	localPart := addr
	if at := strings.IndexByte(addr, '@'); at > 0 {
		localPart = addr[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "Unnamed Party"
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
