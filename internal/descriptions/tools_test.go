package descriptions

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToolDescriptionsComplete(t *testing.T) {
	names := GetAllToolNames()
	assert.Len(t, names, len(ToolDescriptions))
	for _, name := range names {
		assert.True(t, strings.HasPrefix(name, "taxdoc_"), name)
		assert.NotEqual(t, "Tool description not available", GetToolDescription(name), name)
	}
}

func TestGetToolDescriptionUnknown(t *testing.T) {
	assert.Equal(t, "Tool description not available", GetToolDescription("pdf_read_file"))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "Guess the document type of recognized text.", Summary(ToolClassifyText))
	assert.Equal(t, "Tool description not available", Summary("missing"))
}

func TestGetAllToolNamesReturnsCopy(t *testing.T) {
	names := GetAllToolNames()
	names[0] = "changed"
	assert.Equal(t, ToolProcessFile, GetAllToolNames()[0])
}
