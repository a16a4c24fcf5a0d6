package users

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeUsername applies NFKC and trims surrounding space so visually
// identical usernames collide on the unique index.
func NormalizeUsername(raw string) string {
	return norm.NFKC.String(strings.TrimSpace(raw))
}

// NormalizeEmail applies NFKC and case folding.
func NormalizeEmail(raw string) string {
	return cases.Fold().String(norm.NFKC.String(strings.TrimSpace(raw)))
}

// NormalizeIdentity prepares a login identifier, which may be either a
// username or an email.
func NormalizeIdentity(raw string) string {
	if strings.Contains(raw, "@") {
		return NormalizeEmail(raw)
	}
	return NormalizeUsername(raw)
}

// ValidUsername reports whether a normalised username may be stored.
// Usernames never contain '@', which keeps them disjoint from emails.
func ValidUsername(username string) bool {
	return username != "" && !strings.Contains(username, "@")
}

// identityLookup returns the column a login identifier is matched against
// and its normalised value.
func identityLookup(identity string) (column, value string) {
	value = NormalizeIdentity(identity)
	if strings.Contains(value, "@") {
		return "email", value
	}
	return "username", value
}
