package helpers

import (
	"strconv"
	"strings"
)

var pathReplacer = strings.NewReplacer("/", "_", "\\", "_")

// SanitizeFileName keeps a user supplied fragment from escaping the output directory
func SanitizeFileName(name string) string {
	return pathReplacer.Replace(strings.TrimSpace(name))
}

// ParseCount parses a result counter such as " 1,204 " into a non-negative integer
func ParseCount(text string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(strings.ReplaceAll(text, ",", "")))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
