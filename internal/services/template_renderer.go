package services

import (
	"regexp"
)

var placeholderRegex = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// RenderTemplate replaces {{key}} placeholders with values from vars.
// Unknown placeholders are left untouched.
func RenderTemplate(template string, vars map[string]string) string {
	if template == "" || len(vars) == 0 {
		return template
	}

	return placeholderRegex.ReplaceAllStringFunc(template, func(match string) string {
		submatch := placeholderRegex.FindStringSubmatch(match)
		if len(submatch) != 2 {
			return match
		}
		if value, ok := vars[submatch[1]]; ok {
			return value
		}
		return match
	})
}
