package domain

import (
	"regexp"
	"strings"
)

var sessionIDPattern = regexp.MustCompile(`^[A-Z0-9]{4}-\d{4}$`)

// NormalizeSessionID uppercases user input, drops anything outside [A-Z0-9]
// and hyphenates it as XXXX-XXXX.
func NormalizeSessionID(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == 8 {
			break
		}
	}
	value := b.String()
	if len(value) > 4 {
		return value[:4] + "-" + value[4:]
	}
	return value
}

// ValidSessionID reports whether id has the XXXX-0000 shape.
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// MaskSessionID hides the middle of a session id for display: AB12-3456 becomes ABXX-##56.
func MaskSessionID(id string) string {
	if id == "" {
		return "Unknown Session"
	}
	parts := strings.Split(id, "-")
	if len(parts) != 2 || len(parts[0]) != 4 || len(parts[1]) != 4 {
		return id
	}
	return parts[0][:2] + "XX-##" + parts[1][2:]
}
