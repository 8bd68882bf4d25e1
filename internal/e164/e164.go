// Package e164 normalizes free-form US phone input to E.164.
package e164

import "strings"

// Normalize strips everything except digits and a leading plus, then
// prefixes +1 for bare ten-digit US numbers. Input it cannot make sense
// of is returned stripped rather than rejected; the receiving systems
// do their own validation.
func Normalize(raw string) string {
	var b strings.Builder
	for i, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && i == 0:
			b.WriteRune(r)
		}
	}
	s := b.String()
	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, "+"):
		return s
	case len(s) == 10:
		return "+1" + s
	case len(s) == 11 && strings.HasPrefix(s, "1"):
		return "+" + s
	default:
		return "+" + s
	}
}
