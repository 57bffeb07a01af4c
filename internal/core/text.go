package core

import "unicode/utf8"

// Truncate cuts s to at most limit characters. A non-positive limit
// disables the cap.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
