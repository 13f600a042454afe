// Package descriptions holds the long-form tool descriptions shown to MCP
// clients.
package descriptions

import "strings"

const (
	// Extraction Tools
	ProcessFileDescription = `Run OCR on a tax document and extract its structured fields.

**When to use:** You have a W-2, 1099 or receipt as a PDF or image in the document directory and need its values.

**What it returns:** JSON with the normalized raw_text, the extracted fields, the validation issues (when validate is true), the recognition method (text_layer, ocr, mixed or none) and any warnings.

**Examples:**
• Payroll intake: "Extract wages and employer from w2-2024.pdf and check nothing required is missing"
• Contractor income: "Process 1099-nec-acme.png as a 1099"
• Expense capture: "Get the total and date from receipt-0412.jpg"
• Unknown paperwork: "Process scan-17.pdf with document_type auto"

**Common workflows:**
1. Intake: taxdoc_process_file (validate) → fix issues by hand → store fields
2. Triage: taxdoc_process_file (auto) → inspect classification → rerun with the confirmed type

**Notes:** Paths are resolved inside the document directory. Unreadable files are not errors: they come back with empty text, empty fields and a warning.`

	ExtractTextDescription = `Extract structured fields from text that was already recognized.

**When to use:** OCR ran elsewhere and you hold one string per page.

**What it returns:** The same JSON as taxdoc_process_file, without a recognition method.

**Examples:**
• "Extract W-2 fields from these two pages of OCR output"
• "Classify and extract this pasted receipt text with document_type auto"

**Notes:** Pages are joined with a newline and trimmed before matching. Unknown document types return empty fields rather than an error.`

	ValidateFieldsDescription = `Check extracted fields against the required-field policy of a document type.

**When to use:** Fields were edited or assembled by hand and you need to know what is still missing.

**What it returns:** A JSON list of messages such as "Missing employer name", empty when nothing is missing.

**Examples:**
• "Validate {employer_name, wages} as a W-2" → ["Missing employee name"]
• "Validate these receipt fields" → [] (receipts have no required fields)

**Notes:** A field holding only whitespace counts as missing. Unknown document types have no policy and always validate cleanly.`

	ClassifyTextDescription = `Guess the document type of recognized text.

**When to use:** You do not know whether a document is a W-2, a 1099 or a receipt.

**What it returns:** The best type with a confidence between 0 and 1, ranked alternatives and the keyword and pattern evidence behind the score. Below the confidence threshold the type is "unknown".

**Examples:**
• "What kind of document is this OCR text?"
• "Is scan-17 more likely a 1099 or a receipt?"`

	// Discovery Tools
	DocumentTypesDescription = `List the registered document types.

**What it returns:** For each type its canonical name, accepted aliases, extractable fields in matching order and required fields.

**When to use:** Before extracting, to pick a document_type label, or to see which fields a type can produce.`

	ServerInfoDescription = `Get server information, limits and OCR engine status.

**What it returns:** Server name and version, the document directory, file size and text limits, supported extensions, registered document types, whether tesseract and pdftoppm are installed, and the state of the OCR circuit breaker.

**When to use:** At the start of a session, or when processing returns empty text and you suspect the OCR engines are missing or failing.`
)

// Tool names
const (
	ToolProcessFile    = "taxdoc_process_file"
	ToolExtractText    = "taxdoc_extract_text"
	ToolValidateFields = "taxdoc_validate_fields"
	ToolClassifyText   = "taxdoc_classify_text"
	ToolDocumentTypes  = "taxdoc_document_types"
	ToolServerInfo     = "taxdoc_server_info"
)

// toolOrder is the order in which tools are registered and listed.
var toolOrder = []string{
	ToolProcessFile,
	ToolExtractText,
	ToolValidateFields,
	ToolClassifyText,
	ToolDocumentTypes,
	ToolServerInfo,
}

// ToolDescriptions maps tool names to their comprehensive descriptions
var ToolDescriptions = map[string]string{
	ToolProcessFile:    ProcessFileDescription,
	ToolExtractText:    ExtractTextDescription,
	ToolValidateFields: ValidateFieldsDescription,
	ToolClassifyText:   ClassifyTextDescription,
	ToolDocumentTypes:  DocumentTypesDescription,
	ToolServerInfo:     ServerInfoDescription,
}

// GetToolDescription returns the comprehensive description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the tool names in registration order
func GetAllToolNames() []string {
	return append([]string(nil), toolOrder...)
}

// Summary returns the first line of a tool description.
func Summary(toolName string) string {
	line, _, _ := strings.Cut(GetToolDescription(toolName), "\n")
	return line
}
