package service

import "strings"

// Placeholder delimiters, kept exactly as authored in existing templates
const (
	placeholderOpen  = "{{"
	placeholderClose = "}}"
)

// RenderTemplate substitutes every {{name}} placeholder with the matching
// variable value. Unresolved placeholders are left verbatim rather than
// raising an error, for compatibility with previously authored templates.
// The scan is a single left-to-right pass: substituted values are never
// rescanned, so substitution does not recurse.
func RenderTemplate(template string, vars map[string]string) string {
	var b strings.Builder
	rest := template
	for {
		open := strings.Index(rest, placeholderOpen)
		if open < 0 {
			b.WriteString(rest)
			break
		}
		length := strings.Index(rest[open+len(placeholderOpen):], placeholderClose)
		if length < 0 {
			b.WriteString(rest)
			break
		}
		name := rest[open+len(placeholderOpen) : open+len(placeholderOpen)+length]
		end := open + len(placeholderOpen) + length + len(placeholderClose)

		b.WriteString(rest[:open])
		if value, ok := vars[name]; ok {
			b.WriteString(value)
		} else {
			b.WriteString(rest[open:end])
		}
		rest = rest[end:]
	}
	return b.String()
}
