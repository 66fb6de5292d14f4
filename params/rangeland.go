package params

import (
	_ "embed"
	"sync"

	"github.com/uc-cdis/nf-rangeland/runerr"
	yaml "gopkg.in/yaml.v2"
)

//go:embed rangeland.yaml
var rangelandTable []byte

var (
	rangelandOnce sync.Once
	rangeland     *Registry
	rangelandErr  error
)

// ParseTable decodes a YAML list of descriptors and builds a registry from it
func ParseTable(b []byte) (*Registry, error) {
	descs := []Descriptor{}
	if err := yaml.Unmarshal(b, &descs); err != nil {
		return nil, runerr.Config(err, "failed to parse parameter table")
	}
	return NewRegistry(descs...)
}

// Rangeland returns the nf-core/rangeland parameter registry.
// The table is parsed and validated on first use and shared afterwards.
func Rangeland() (*Registry, error) {
	rangelandOnce.Do(func() {
		rangeland, rangelandErr = ParseTable(rangelandTable)
	})
	return rangeland, rangelandErr
}
