// Package textnorm turns per-page recognizer output into the single string
// the extraction engine searches.
package textnorm

import "strings"

// PageSeparator is placed between consecutive pages.
const PageSeparator = "\n"

// Normalize joins pages with a single newline and trims leading and
// trailing whitespace from the result. Nil or empty input yields "".
func Normalize(pages []string) string {
	if len(pages) == 0 {
		return ""
	}
	return strings.TrimSpace(strings.Join(pages, PageSeparator))
}
