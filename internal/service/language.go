package service

import (
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var englishNames = display.English.Tags()

// languageName renders a dataset language code for log lines.
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return "unknown"
	}
	if name := englishNames.Name(tag); name != "" {
		return name
	}
	return "unknown"
}
