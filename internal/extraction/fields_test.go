package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"1,200.00", 1200, true},
		{"$45,000", 45000, true},
		{" 12.5 ", 12.5, true},
		{"100.", 100, true},
		{"0", 0, true},
		{"", 0, false},
		{"$", 0, false},
		{",,,", 0, false},
		{"12-3456789", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseAmount(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestFieldsHelpers(t *testing.T) {
	f := Fields{"wages": "1,200.00", "employer_name": "Acme"}

	v, ok := f.Amount("wages")
	assert.True(t, ok)
	assert.InDelta(t, 1200.0, v, 1e-9)

	_, ok = f.Amount("federal_tax")
	assert.False(t, ok)

	_, ok = f.Amount("employer_name")
	assert.False(t, ok)

	assert.Equal(t, []string{"employer_name", "wages"}, f.Names())

	c := f.Clone()
	c["wages"] = "0"
	assert.Equal(t, "1,200.00", f["wages"])
}
