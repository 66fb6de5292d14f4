package params

import (
	"github.com/uc-cdis/nf-rangeland/runerr"
)

// Registry is the ordered, validated set of parameters a pipeline declares.
// Declaration order is presentation order and flag order; it has no other meaning.
type Registry struct {
	descriptors []Descriptor
	index       map[string]int
}

// Section is a run of consecutive descriptors under one section title
type Section struct {
	Title       string       `json:"title" yaml:"title"`
	Descriptors []Descriptor `json:"parameters" yaml:"parameters"`
}

// NewRegistry validates every descriptor and returns the registry.
// A malformed descriptor or a repeated name is a configuration error.
func NewRegistry(descs ...Descriptor) (*Registry, error) {
	reg := &Registry{
		descriptors: make([]Descriptor, 0, len(descs)),
		index:       make(map[string]int, len(descs)),
	}
	for _, d := range descs {
		if err := d.validate(); err != nil {
			return nil, runerr.Config(err, "invalid parameter declaration")
		}
		if _, exists := reg.index[d.Name]; exists {
			return nil, runerr.Config(nil, "parameter %q declared more than once", d.Name)
		}
		reg.index[d.Name] = len(reg.descriptors)
		reg.descriptors = append(reg.descriptors, d)
	}
	return reg, nil
}

// MustRegistry is NewRegistry that panics on error, for tables compiled into the binary
func MustRegistry(descs ...Descriptor) *Registry {
	reg, err := NewRegistry(descs...)
	if err != nil {
		panic(err)
	}
	return reg
}

// Lookup returns the descriptor for name
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	i, ok := r.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return r.descriptors[i], true
}

// Descriptors returns a copy of every descriptor in declaration order
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.descriptors))
	copy(out, r.descriptors)
	return out
}

// Names returns parameter names in declaration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.descriptors))
	for i, d := range r.descriptors {
		names[i] = d.Name
	}
	return names
}

func (r *Registry) Len() int {
	return len(r.descriptors)
}

// Sections groups descriptors the way the parameter form shows them:
// a descriptor with a section title opens a new section,
// one without stays in the current section.
func (r *Registry) Sections() []Section {
	sections := []Section{}
	for _, d := range r.descriptors {
		if d.SectionTitle != "" || len(sections) == 0 {
			sections = append(sections, Section{Title: d.SectionTitle})
		}
		last := &sections[len(sections)-1]
		last.Descriptors = append(last.Descriptors, d)
	}
	return sections
}
