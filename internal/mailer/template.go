// Package mailer implements the outbound send pipeline: template rendering,
// tracking injection, sending-account selection and transmission.
package mailer

import (
	"strings"
)

// RenderTemplate substitutes the recognized placeholders in tmpl with lead
// attributes. Missing or empty attributes fall back to neutral defaults so a
// rendered email never contains a bare placeholder artifact. Unrecognized
// placeholder tokens are left verbatim. Pure function; attribute values are
// trusted lead-record input and are not escaped.
func RenderTemplate(tmpl string, attrs map[string]string) string {
	if tmpl == "" {
		return ""
	}

	firstName := attrs["first_name"]
	lastName := attrs["last_name"]

	fullName := strings.TrimSpace(firstName + " " + lastName)
	if fullName == "" {
		fullName = "there"
	}

	replacements := map[string]string{
		"{{first_name}}": fallback(firstName, "there"),
		"{{last_name}}":  lastName,
		"{{full_name}}":  fullName,
		"{{email}}":      attrs["email"],
		"{{company}}":    fallback(attrs["company"], "your company"),
		"{{position}}":   attrs["position"],
	}

	out := tmpl
	for placeholder, value := range replacements {
		out = strings.ReplaceAll(out, placeholder, value)
	}
	return out
}

func fallback(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
