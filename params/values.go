package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"math"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/uc-cdis/nf-rangeland/runerr"
	yaml "gopkg.in/yaml.v2"
)

// Values is the runtime parameter set for one execution.
// It is built once by NewValues and never mutated afterwards.
type Values struct {
	registry *Registry
	values   map[string]interface{}
}

// NewValues checks raw against the registry and fills in declared defaults
// for every parameter that is absent or nil.
// Every problem is a configuration error, so it surfaces before anything is launched.
func NewValues(reg *Registry, raw map[string]interface{}) (*Values, error) {
	for name := range raw {
		if _, ok := reg.Lookup(name); !ok {
			return nil, runerr.Config(nil, "unknown parameter %q", name)
		}
	}
	values := make(map[string]interface{}, reg.Len())
	for _, d := range reg.Descriptors() {
		v, ok := raw[d.Name]
		if !ok || v == nil {
			v = d.Default
		}
		if v == nil {
			if d.Type.Required() {
				return nil, runerr.Config(nil, "missing required parameter %q", d.Name)
			}
			continue
		}
		n, err := normalize(d.Type, v)
		if err != nil {
			return nil, runerr.Config(err, "parameter %q", d.Name)
		}
		values[d.Name] = n
	}
	return &Values{registry: reg, values: values}, nil
}

// LoadValues reads a runtime parameter set from a JSON or YAML file.
// Files ending in .json are parsed as JSON, everything else as YAML.
func LoadValues(reg *Registry, file string) (*Values, error) {
	b, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, runerr.Config(err, "failed to read parameters file %v", file)
	}
	raw, err := decodeValues(b, strings.HasSuffix(strings.ToLower(file), ".json"))
	if err != nil {
		return nil, runerr.Config(err, "failed to parse parameters file %v", file)
	}
	return NewValues(reg, raw)
}

// DecodeValues parses a JSON document into a raw parameter map.
// Numbers are kept as json.Number so large integers survive intact.
func DecodeValues(b []byte) (map[string]interface{}, error) {
	return decodeValues(b, true)
}

func decodeValues(b []byte, isJSON bool) (map[string]interface{}, error) {
	raw := map[string]interface{}{}
	if isJSON {
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		return raw, nil
	}
	// yaml.v2 decodes into map[interface{}]interface{} for nested maps,
	// but parameter values are scalars so a string-keyed map is enough
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Get returns the resolved value of a parameter.
// ok is false when the parameter is absent (and had no default).
func (v *Values) Get(name string) (value interface{}, ok bool) {
	value, ok = v.values[name]
	return value, ok
}

// Registry returns the registry these values were checked against
func (v *Values) Registry() *Registry {
	return v.registry
}

// Map returns a copy of the resolved values
func (v *Values) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(v.values))
	for k, val := range v.values {
		m[k] = val
	}
	return m
}

// normalize converts a decoded JSON/YAML value into the canonical Go type
// for t: string for string types, bool for optional-bool, int64 for optional-int.
func normalize(t SemanticType, v interface{}) (interface{}, error) {
	switch t {
	case String, OptionalString:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", v)
		}
		return s, nil
	case OutputDirectory:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected a path, got %T", v)
		}
		if !isAbsoluteLocation(s) {
			return nil, fmt.Errorf("output directory %q must be an absolute path or a storage URI", s)
		}
		return s, nil
	case OptionalBool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a boolean, got %T", v)
		}
		return b, nil
	case OptionalInt:
		return toInt64(v)
	}
	return nil, fmt.Errorf("unknown type %q", t)
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		return uintToInt64(uint64(n))
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		return uintToInt64(n)
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("expected an integer, got %q", n.String())
		}
		return floatToInt64(f)
	}
	return 0, fmt.Errorf("expected an integer, got %T", v)
}

func uintToInt64(n uint64) (int64, error) {
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("integer %d out of range", n)
	}
	return int64(n), nil
}

func floatToInt64(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("expected an integer, got %v", f)
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, fmt.Errorf("integer %v out of range", f)
	}
	return int64(f), nil
}

// an output directory must be somewhere the pipeline can write persistently:
// an absolute local path, or a URI with a scheme and a path (s3://bucket/dir, latch:///dir)
func isAbsoluteLocation(s string) bool {
	if s == "" {
		return false
	}
	if filepath.IsAbs(s) || path.IsAbs(s) {
		return true
	}
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || !strings.Contains(s, "://") {
		return false
	}
	return u.Host != "" || u.Path != ""
}
