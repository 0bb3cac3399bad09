package testutil

import "regexp"

// volatileField matches JSON string fields whose values change on every run.
var volatileField = regexp.MustCompile(`("(?:generatedAt|timestamp|computedAt|startedAt)"\s*:\s*)"[^"]*"`)

// ScrubVolatile replaces the values of time-varying JSON fields with a placeholder
// so that golden comparisons stay stable.
func ScrubVolatile(data []byte) []byte {
	return volatileField.ReplaceAll(data, []byte(`$1"<volatile>"`))
}
