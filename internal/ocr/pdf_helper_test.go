package ocr

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

type testField struct {
	Name  string // T
	Label string // TU
	Value string // V
	Type  string // FT, defaults to Tx
}

// writeTestPDF writes a minimal PDF with one page per entry of pages. An
// empty entry produces a page without text. Fields become an AcroForm.
func writeTestPDF(t *testing.T, pages []string, fields []testField) string {
	t.Helper()

	var objects []string
	add := func(body string) int {
		objects = append(objects, body)
		return len(objects)
	}

	catalog := add("") // filled in below
	pagesObj := add("")
	font := add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var kids bytes.Buffer
	for _, text := range pages {
		content := "BT ET"
		if text != "" {
			content = fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		}
		contentObj := add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
		pageObj := add(fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>",
			pagesObj, font, contentObj))
		fmt.Fprintf(&kids, "%d 0 R ", pageObj)
	}
	objects[pagesObj-1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", bytes.TrimSpace(kids.Bytes()), len(pages))

	if len(fields) > 0 {
		var refs bytes.Buffer
		for _, f := range fields {
			ft := f.Type
			if ft == "" {
				ft = "Tx"
			}
			dict := fmt.Sprintf("<< /FT /%s /T (%s)", ft, f.Name)
			if f.Label != "" {
				dict += fmt.Sprintf(" /TU (%s)", f.Label)
			}
			if f.Value != "" {
				dict += fmt.Sprintf(" /V (%s)", f.Value)
			}
			dict += " >>"
			fmt.Fprintf(&refs, "%d 0 R ", add(dict))
		}
		acroForm := add(fmt.Sprintf("<< /Fields [%s] >>", bytes.TrimSpace(refs.Bytes())))
		objects[catalog-1] = fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R /AcroForm %d 0 R >>", pagesObj, acroForm)
	} else {
		objects[catalog-1] = fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesObj)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, catalog, xref)

	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write test PDF: %v", err)
	}
	return path
}
