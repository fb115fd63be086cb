package normalizer

import (
	"regexp"

	"steamscraper/pkg/utils"
)

var requiresPrefix = regexp.MustCompile(`(?i)^requires?\s+`)

// CleanValue collapses whitespace and drops a leading "Requires " token.
func CleanValue(value string) string {
	if value == "" {
		return ""
	}

	value = utils.CollapseWhitespace(value)

	return requiresPrefix.ReplaceAllString(value, "")
}
