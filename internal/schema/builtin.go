package schema

// Shared label/value shapes. A label is followed by optional colons or
// whitespace (line breaks included) and then the captured value.
const (
	amountValue = `[:\s]*\$?([0-9,]+\.?[0-9]*)`
	idValue     = `[:\s]*([0-9-]+)`
	orgName     = `[:\s]*([A-Za-z\s&,.-]+?)(?:\n|$)`
	personName  = `[:\s]*([A-Za-z\s,.-]+?)(?:\n|$)`
)

// builtinTypes is the default catalog. Order inside Fields is the order in
// which patterns are evaluated and reported.
var builtinTypes = []TypeSpec{
	{
		Type:        string(DocumentTypeW2),
		Description: "Form W-2 Wage and Tax Statement",
		Aliases:     []string{"w2", "form w-2", "form w2"},
		Keywords:    []string{"w-2", "wage and tax statement", "employer identification", "medicare wages", "social security wages", "federal income tax withheld"},
		Fields: []FieldSpec{
			{Name: "employer_name", Pattern: `(?:employer|company)` + orgName},
			{Name: "employee_name", Pattern: `(?:employee|name)` + personName},
			{Name: "wages", Pattern: `(?:wages|box\s*1)` + amountValue},
			{Name: "federal_tax", Pattern: `(?:federal.*?tax|box\s*2)` + amountValue},
			{Name: "social_security_wages", Pattern: `(?:social.*?security.*?wages|box\s*3)` + amountValue},
			{Name: "medicare_wages", Pattern: `(?:medicare.*?wages|box\s*5)` + amountValue},
			{Name: "ein", Pattern: `(?:ein|employer.*?id)` + idValue},
			{Name: "ssn", Pattern: `(?:ssn|social.*?security)` + idValue},
		},
		Required: []string{"employer_name", "employee_name", "wages"},
	},
	{
		Type:        string(DocumentType1099),
		Description: "Form 1099 information return",
		Aliases:     []string{"1099-nec", "form 1099", "form 1099-nec"},
		Keywords:    []string{"1099", "nonemployee compensation", "payer's tin", "recipient's tin", "payer", "recipient"},
		Fields: []FieldSpec{
			{Name: "payer_name", Pattern: `(?:payer|company)` + orgName},
			{Name: "recipient_name", Pattern: `(?:recipient|payee)` + personName},
			{Name: "nonemployee_compensation", Pattern: `(?:nonemployee.*?compensation|box\s*1)` + amountValue},
			{Name: "federal_tax", Pattern: `(?:federal.*?tax|box\s*4)` + amountValue},
			{Name: "payer_tin", Pattern: `(?:payer.*?tin|ein)` + idValue},
			{Name: "recipient_tin", Pattern: `(?:recipient.*?tin|ssn)` + idValue},
		},
		Required: []string{"payer_name", "recipient_name"},
	},
	{
		Type:        string(DocumentTypeReceipt),
		Description: "Purchase receipt",
		Aliases:     []string{"receipts"},
		Keywords:    []string{"receipt", "subtotal", "total", "change", "cash", "visa", "thank you"},
		Fields: []FieldSpec{
			{Name: "merchant_name", Pattern: `^([A-Za-z\s&,.-]+?)(?:\n|$)`},
			{Name: "total_amount", Pattern: `(?:total|amount)` + amountValue},
			{Name: "date", Pattern: `(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`},
			{Name: "tax_amount", Pattern: `(?:tax)` + amountValue},
		},
		// Receipts carry no required-field policy.
		Required: []string{},
	},
}

// BuiltinTypes returns a copy of the default catalog.
func BuiltinTypes() []TypeSpec {
	out := make([]TypeSpec, len(builtinTypes))
	for i, spec := range builtinTypes {
		out[i] = spec.clone()
	}
	return out
}

func (s TypeSpec) clone() TypeSpec {
	c := s
	c.Aliases = append([]string(nil), s.Aliases...)
	c.Keywords = append([]string(nil), s.Keywords...)
	c.Fields = append([]FieldSpec(nil), s.Fields...)
	c.Required = append([]string{}, s.Required...)
	return c
}
