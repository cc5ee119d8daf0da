package planner

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

const defaultLanguage = "id"

// languageName renders a BCP 47 tag as an English language name. Free-form
// names such as "Bahasa Indonesia" are passed through untouched.
func languageName(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		value = defaultLanguage
	}
	tag, err := language.Parse(value)
	if err != nil {
		return value
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return value
}
