package extraction

import (
	"sort"
	"strconv"
	"strings"
)

// Fields maps a field name to the text captured for it. Absent fields are
// missing keys, never empty strings.
type Fields map[string]string

// Get returns the value of name and whether it was extracted.
func (f Fields) Get(name string) (string, bool) {
	v, ok := f[name]
	return v, ok
}

// Names returns the extracted field names sorted alphabetically.
func (f Fields) Names() []string {
	names := make([]string, 0, len(f))
	for k := range f {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Clone returns an independent copy.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Amount parses a captured monetary value such as "$1,200.00" into a
// float. Currency signs, thousands separators and spaces are ignored.
func (f Fields) Amount(name string) (float64, bool) {
	v, ok := f[name]
	if !ok {
		return 0, false
	}
	return ParseAmount(v)
}

// ParseAmount parses a monetary string leniently. It reports false when
// nothing numeric remains after cleanup.
func ParseAmount(s string) (float64, bool) {
	clean := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(s))
	clean = strings.TrimSuffix(clean, ".")
	if clean == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
