package ocr

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

var lineEndings = strings.NewReplacer("\r\n", "\n", "\r", "\n", "\f", "")

// cleanPage replaces invalid UTF-8, converts line endings to "\n" and
// returns the page in NFC. Tesseract ends every page with a form feed,
// which is dropped.
func cleanPage(s string) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	s = lineEndings.Replace(s)
	return norm.NFC.String(s)
}
