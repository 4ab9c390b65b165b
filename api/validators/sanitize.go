package validators

import "strings"

// SanitizeString trims surrounding whitespace and clamps the value to
// maxLen bytes. Idempotency keys and free-text fields pass through here
// before they reach the services.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.TrimSpace(input)
	if maxLen > 0 && len(cleaned) > maxLen {
		cleaned = cleaned[:maxLen]
	}
	return cleaned
}
