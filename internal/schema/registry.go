// Package schema holds the document-type registry: for every known type,
// its ordered field patterns, its required-field policy, and the aliases
// that dispatch to it.
package schema

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

// Registry maps canonical document types to their schemas. A Registry is
// never mutated after Build and is safe for concurrent readers.
type Registry struct {
	schemas map[DocumentType]*Schema
	aliases map[string]DocumentType
	order   []DocumentType
}

var (
	defaultRegistry *Registry
	defaultOnce     sync.Once
)

// Default returns the registry built from the built-in catalog. It is
// constructed on first use and shared afterwards.
func Default() *Registry {
	defaultOnce.Do(func() {
		b := NewBuilder()
		for _, spec := range builtinTypes {
			b.Add(spec)
		}
		defaultRegistry = b.MustBuild()
	})
	return defaultRegistry
}

// Fold case-folds a free-form label: surrounding whitespace is dropped,
// inner runs of whitespace collapse to one space, letters are lowercased.
func Fold(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}

// Canonicalize maps a user supplied label to its canonical type. Labels
// that match neither a type nor an alias come back folded, so callers can
// still report what was asked for.
func (r *Registry) Canonicalize(label string) DocumentType {
	folded := Fold(label)
	if r == nil {
		return DocumentType(folded)
	}
	if _, ok := r.schemas[DocumentType(folded)]; ok {
		return DocumentType(folded)
	}
	if dt, ok := r.aliases[folded]; ok {
		return dt
	}
	return DocumentType(folded)
}

// Lookup canonicalizes label and returns its schema.
func (r *Registry) Lookup(label string) (*Schema, bool) {
	if r == nil {
		return nil, false
	}
	s, ok := r.schemas[r.Canonicalize(label)]
	return s, ok
}

// Types returns the registered types in registration order.
func (r *Registry) Types() []DocumentType {
	if r == nil {
		return nil
	}
	return append([]DocumentType(nil), r.order...)
}

// Schemas returns every schema in registration order.
func (r *Registry) Schemas() []*Schema {
	if r == nil {
		return nil
	}
	out := make([]*Schema, 0, len(r.order))
	for _, dt := range r.order {
		out = append(out, r.schemas[dt])
	}
	return out
}

// Builder accumulates type specs and compiles them into a Registry.
// Adding a spec whose type is already present replaces the earlier one
// in place.
type Builder struct {
	specs []TypeSpec
	index map[string]int
}

// NewBuilder returns an empty builder.
func NewBuilder() *Builder {
	return &Builder{index: make(map[string]int)}
}

// Add queues spec for compilation.
func (b *Builder) Add(spec TypeSpec) *Builder {
	key := Fold(spec.Type)
	if i, ok := b.index[key]; ok {
		b.specs[i] = spec.clone()
		return b
	}
	b.index[key] = len(b.specs)
	b.specs = append(b.specs, spec.clone())
	return b
}

// AddAll queues every spec in order.
func (b *Builder) AddAll(specs []TypeSpec) *Builder {
	for _, spec := range specs {
		b.Add(spec)
	}
	return b
}

// Build compiles every queued spec. Any invalid pattern, duplicate field,
// dangling required field or alias collision fails the whole build.
func (b *Builder) Build() (*Registry, error) {
	r := &Registry{
		schemas: make(map[DocumentType]*Schema, len(b.specs)),
		aliases: make(map[string]DocumentType),
	}

	for _, spec := range b.specs {
		s, err := compileSpec(spec)
		if err != nil {
			return nil, err
		}
		r.schemas[s.Type] = s
		r.order = append(r.order, s.Type)
	}

	for _, dt := range r.order {
		for _, alias := range r.schemas[dt].Aliases {
			if _, clash := r.schemas[DocumentType(alias)]; clash && DocumentType(alias) != dt {
				return nil, fmt.Errorf("document type %q: alias %q shadows a registered type", dt, alias)
			}
			if owner, taken := r.aliases[alias]; taken && owner != dt {
				return nil, fmt.Errorf("document type %q: alias %q already used by %q", dt, alias, owner)
			}
			r.aliases[alias] = dt
		}
	}

	return r, nil
}

// MustBuild is Build for tables known to be valid; it panics on error.
func (b *Builder) MustBuild() *Registry {
	r, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("schema: %v", err))
	}
	return r
}

func compileSpec(spec TypeSpec) (*Schema, error) {
	dt := DocumentType(Fold(spec.Type))
	if dt == "" {
		return nil, fmt.Errorf("document type name cannot be empty")
	}

	s := &Schema{
		Type:        dt,
		Description: spec.Description,
		Keywords:    append([]string(nil), spec.Keywords...),
		Patterns:    make([]FieldPattern, 0, len(spec.Fields)),
		Required:    make([]string, 0, len(spec.Required)),
	}

	seen := make(map[string]bool, len(spec.Fields))
	for _, f := range spec.Fields {
		if f.Name == "" {
			return nil, fmt.Errorf("document type %q: field name cannot be empty", dt)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("document type %q: duplicate field %q", dt, f.Name)
		}
		seen[f.Name] = true

		expr, err := CompilePattern(f.Pattern)
		if err != nil {
			return nil, fmt.Errorf("document type %q: field %q: %w", dt, f.Name, err)
		}
		s.Patterns = append(s.Patterns, FieldPattern{Name: f.Name, Expr: expr})
	}

	for _, name := range spec.Required {
		if !seen[name] {
			return nil, fmt.Errorf("document type %q: required field %q has no pattern", dt, name)
		}
		s.Required = append(s.Required, name)
	}

	for _, alias := range spec.Aliases {
		folded := Fold(alias)
		if folded == "" || DocumentType(folded) == dt {
			continue
		}
		s.Aliases = append(s.Aliases, folded)
	}

	return s, nil
}

// CompilePattern compiles a field pattern case-insensitively and checks
// that it has exactly one capturing group.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	if pattern == "" {
		return nil, fmt.Errorf("pattern cannot be empty")
	}
	expr, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	if n := expr.NumSubexp(); n != 1 {
		return nil, fmt.Errorf("pattern must have exactly one capturing group, has %d", n)
	}
	return expr, nil
}
