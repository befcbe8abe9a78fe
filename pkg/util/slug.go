package util

import (
	"regexp"
	"strings"
)

var (
	slugStrip    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugCollapse = regexp.MustCompile(`[\s-]+`)
)

// Slugify converts a title into a lowercase, hyphen-separated file name stem
func Slugify(text string) string {
	text = strings.ToLower(text)
	text = slugStrip.ReplaceAllString(text, "")
	text = slugCollapse.ReplaceAllString(text, "-")
	return strings.Trim(text, "-")
}
