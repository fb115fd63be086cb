package normalizer

import (
	"strings"

	"steamscraper/internal/models"
)

// NormalizeOS maps a platform token such as "win", "MacOS" or "linux64" to
// windows, mac or linux. Unknown tokens come back lower-cased.
func NormalizeOS(token string) string {
	lower := strings.ToLower(token)

	switch {
	case strings.Contains(lower, "win"):
		return models.OSWindows
	case strings.Contains(lower, "mac"):
		return models.OSMac
	case strings.Contains(lower, "linux"):
		return models.OSLinux
	}

	return lower
}
