package validation

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-taxdoc-extractor/internal/extraction"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/schema"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		fields  extraction.Fields
		docType string
		want    []string
	}{
		{
			name:    "w-2 gap reported in policy order",
			fields:  extraction.Fields{"employer_name": "Acme"},
			docType: "w-2",
			want:    []string{"Missing employee name", "Missing wages"},
		},
		{
			name:    "w-2 fully populated",
			fields:  extraction.Fields{"employer_name": "Acme", "employee_name": "John Smith", "wages": "1,200.00"},
			docType: "w-2",
			want:    []string{},
		},
		{
			name:    "w-2 nothing extracted",
			fields:  extraction.Fields{},
			docType: "W2",
			want:    []string{"Missing employer name", "Missing employee name", "Missing wages"},
		},
		{
			name:    "nil fields",
			fields:  nil,
			docType: "w-2",
			want:    []string{"Missing employer name", "Missing employee name", "Missing wages"},
		},
		{
			name:    "whitespace value counts as missing",
			fields:  extraction.Fields{"employer_name": "  \t", "employee_name": "Jo", "wages": "1"},
			docType: "w-2",
			want:    []string{"Missing employer name"},
		},
		{
			name:    "empty value counts as missing",
			fields:  extraction.Fields{"payer_name": "", "recipient_name": "Jane"},
			docType: "1099",
			want:    []string{"Missing payer name"},
		},
		{
			name:    "1099 both missing",
			fields:  extraction.Fields{"federal_tax": "10.00"},
			docType: "1099-NEC",
			want:    []string{"Missing payer name", "Missing recipient name"},
		},
		{
			name:    "extra fields ignored",
			fields:  extraction.Fields{"payer_name": "Globex", "recipient_name": "Jane", "unrelated": ""},
			docType: "1099",
			want:    []string{},
		},
		{
			name:    "receipt has no policy",
			fields:  extraction.Fields{},
			docType: "receipt",
			want:    []string{},
		},
		{
			name:    "receipt ignores content",
			fields:  extraction.Fields{"merchant_name": " ", "total_amount": ""},
			docType: "RECEIPT",
			want:    []string{},
		},
		{
			name:    "unknown type",
			fields:  extraction.Fields{},
			docType: "1040",
			want:    []string{},
		},
	}

	e := NewEngine(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Validate(tt.fields, tt.docType)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIssue(t *testing.T) {
	assert.Equal(t, "Missing employer name", Issue("employer_name"))
	assert.Equal(t, "Missing social security wages", Issue("social_security_wages"))
	assert.Equal(t, "Missing wages", Issue("wages"))
}

func TestValidateExtractedText(t *testing.T) {
	fields := extraction.NewEngine(nil).Extract("Employer: Acme Corp\nWages: $1,200.00", "w-2")

	got := NewEngine(nil).Validate(fields, "w-2")
	assert.Equal(t, []string{"Missing employee name"}, got)
}

func TestValidateCustomPolicy(t *testing.T) {
	r, err := schema.NewBuilder().Add(schema.TypeSpec{
		Type: "w-2c",
		Fields: []schema.FieldSpec{
			{Name: "corrected_wages", Pattern: `corrected wages[:\s]*([0-9,.]+)`},
			{Name: "employer_name", Pattern: `employer[:\s]*(.+)`},
		},
		Required: []string{"corrected_wages", "employer_name"},
	}).Build()
	require.NoError(t, err)

	e := NewEngine(r)
	assert.Equal(t, []string{"Missing corrected wages"}, e.Validate(extraction.Fields{"employer_name": "Acme"}, "W-2C"))
	assert.Equal(t, []string{}, e.Validate(extraction.Fields{}, "w-2"))
}

func TestValidateConcurrent(t *testing.T) {
	e := NewEngine(nil)
	fields := extraction.Fields{"employer_name": "Acme"}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, []string{"Missing employee name", "Missing wages"}, e.Validate(fields, "w-2"))
		}()
	}
	wg.Wait()
}
