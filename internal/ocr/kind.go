// Package ocr recovers page text from scanned documents. PDFs are read
// through their text layer and form fields first; pages without text are
// rasterized and passed to tesseract. Images go to tesseract directly.
package ocr

import (
	"path/filepath"
	"strings"
)

// FileKind selects the recognition path for an input file.
type FileKind string

const (
	KindUnknown FileKind = ""
	KindPDF     FileKind = "pdf"
	KindImage   FileKind = "image"
)

var extensionKinds = map[string]FileKind{
	".pdf":  KindPDF,
	".jpg":  KindImage,
	".jpeg": KindImage,
	".png":  KindImage,
	".gif":  KindImage,
	".tif":  KindImage,
	".tiff": KindImage,
}

// KindForPath dispatches on the file extension, case-insensitively.
func KindForPath(path string) FileKind {
	return extensionKinds[strings.ToLower(filepath.Ext(path))]
}

// Extensions returns the supported extensions.
func Extensions() []string {
	return []string{".pdf", ".jpg", ".jpeg", ".png", ".gif", ".tif", ".tiff"}
}
