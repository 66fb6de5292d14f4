package params

import (
	"fmt"
	"strconv"

	"github.com/uc-cdis/nf-rangeland/runerr"
)

// Translate renders one parameter as nextflow command line tokens.
//
//	optional-bool                    true -> [--name]; false or absent -> []
//	optional-string, optional-int    absent -> []; otherwise [--name, value]
//	string                           [--name, value]; absent is a config error
//	output-directory-reference       [--name, path]; absent or relative is a config error
func Translate(name string, value interface{}, t SemanticType) ([]string, error) {
	flag := "--" + name
	switch t {
	case OptionalBool:
		if value == nil {
			return []string{}, nil
		}
		b, ok := value.(bool)
		if !ok {
			return nil, runerr.Config(nil, "parameter %q: expected a boolean, got %T", name, value)
		}
		if !b {
			return []string{}, nil
		}
		return []string{flag}, nil
	case OptionalString, OptionalInt:
		if value == nil {
			return []string{}, nil
		}
		s, err := render(t, value)
		if err != nil {
			return nil, runerr.Config(err, "parameter %q", name)
		}
		return []string{flag, s}, nil
	case String, OutputDirectory:
		if value == nil {
			return nil, runerr.Config(nil, "missing required parameter %q", name)
		}
		s, err := render(t, value)
		if err != nil {
			return nil, runerr.Config(err, "parameter %q", name)
		}
		return []string{flag, s}, nil
	}
	return nil, runerr.Config(nil, "parameter %q has unknown type %q", name, t)
}

// render formats a value as text; integers are always plain base 10
func render(t SemanticType, value interface{}) (string, error) {
	v, err := normalize(t, value)
	if err != nil {
		return "", err
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	}
	return "", fmt.Errorf("cannot render %T", v)
}

// Flags translates every declared parameter, in declaration order
func Flags(v *Values) ([]string, error) {
	flags := []string{}
	for _, d := range v.registry.Descriptors() {
		value, _ := v.Get(d.Name)
		tokens, err := Translate(d.Name, value, d.Type)
		if err != nil {
			return nil, err
		}
		flags = append(flags, tokens...)
	}
	return flags, nil
}
