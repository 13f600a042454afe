package ocr

import (
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// maxFieldDepth bounds recursion through the Kids of hierarchical fields.
const maxFieldDepth = 8

// formFieldLines renders the filled-in text and choice fields of the
// document's AcroForm as "label: value" lines, in field order. The label
// is the field's user-facing name (TU) when present, else its name (T).
func formFieldLines(ctx *model.Context) ([]string, error) {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}

	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return nil, nil
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil, nil
	}

	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}

	var lines []string
	for _, fieldRef := range fieldsArray {
		lines = appendFieldLines(ctx, fieldRef, "", 0, lines)
	}
	return lines, nil
}

func appendFieldLines(ctx *model.Context, fieldObj types.Object, inheritedType string, depth int, lines []string) []string {
	if depth > maxFieldDepth {
		return lines
	}

	fieldDict, err := ctx.DereferenceDict(fieldObj)
	if err != nil || fieldDict == nil {
		return lines
	}

	fieldType := inheritedType
	if ftObj, found := fieldDict.Find("FT"); found {
		if name, err := ctx.DereferenceName(ftObj, model.V10, nil); err == nil {
			fieldType = string(name)
		}
	}

	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
			for _, kid := range kids {
				lines = appendFieldLines(ctx, kid, fieldType, depth+1, lines)
			}
		}
	}

	if fieldType != "Tx" && fieldType != "Ch" {
		return lines
	}

	valueObj, found := fieldDict.Find("V")
	if !found {
		return lines
	}
	value, err := ctx.DereferenceStringOrHexLiteral(valueObj, model.V10, nil)
	if err != nil || strings.TrimSpace(value) == "" {
		return lines
	}

	label := fieldString(ctx, fieldDict, "TU")
	if label == "" {
		label = fieldString(ctx, fieldDict, "T")
	}
	if label == "" {
		return append(lines, strings.TrimSpace(value))
	}
	return append(lines, label+": "+strings.TrimSpace(value))
}

func fieldString(ctx *model.Context, dict types.Dict, key string) string {
	obj, found := dict.Find(key)
	if !found {
		return ""
	}
	s, err := ctx.DereferenceStringOrHexLiteral(obj, model.V10, nil)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}
