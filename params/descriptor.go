package params

import (
	"fmt"
	"strings"
)

// SemanticType determines how a runtime value is rendered on the nextflow command line
type SemanticType string

const (
	String          SemanticType = "string"
	OptionalString  SemanticType = "optional-string"
	OptionalBool    SemanticType = "optional-bool"
	OptionalInt     SemanticType = "optional-int"
	OutputDirectory SemanticType = "output-directory-reference"
)

func (t SemanticType) valid() bool {
	switch t {
	case String, OptionalString, OptionalBool, OptionalInt, OutputDirectory:
		return true
	}
	return false
}

// Required reports whether a value must always be supplied for this type
func (t SemanticType) Required() bool {
	return t == String || t == OutputDirectory
}

// Descriptor declares one pipeline parameter.
// SectionTitle and Description only matter to whoever renders the parameter form.
type Descriptor struct {
	Name         string       `json:"name" yaml:"name"`
	Type         SemanticType `json:"type" yaml:"type"`
	Default      interface{}  `json:"default,omitempty" yaml:"default,omitempty"`
	SectionTitle string       `json:"section_title,omitempty" yaml:"section_title,omitempty"`
	Description  string       `json:"description" yaml:"description"`
}

// checks the shape of a descriptor; called once when the registry is built
func (d *Descriptor) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("parameter name is empty")
	}
	if strings.HasPrefix(d.Name, "-") || strings.ContainsAny(d.Name, " \t\n=") {
		return fmt.Errorf("parameter name %q is not usable as a flag", d.Name)
	}
	if !d.Type.valid() {
		return fmt.Errorf("parameter %v has unknown type %q", d.Name, d.Type)
	}
	if d.Default == nil {
		return nil
	}
	if d.Type.Required() {
		return fmt.Errorf("parameter %v of type %v cannot declare a default", d.Name, d.Type)
	}
	v, err := normalize(d.Type, d.Default)
	if err != nil {
		return fmt.Errorf("parameter %v has a bad default: %v", d.Name, err)
	}
	d.Default = v
	return nil
}
