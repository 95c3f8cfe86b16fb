package dataset

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/derval/core/factory"
)

// Fleet lists the distributed energy resources of a site.
type Fleet struct {
	Resources []factory.ModuleConfig `yaml:"resources"`
}

// LoadFleet reads a YAML fleet definition file.
func LoadFleet(path string) ([]factory.ModuleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseFleet(data)
}

// ParseFleet decodes a fleet definition. Every resource needs a type.
func ParseFleet(data []byte) ([]factory.ModuleConfig, error) {
	var f Fleet
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: fleet: %v", ErrFormat, err)
	}
	for i, r := range f.Resources {
		if r.Type == "" {
			return nil, fmt.Errorf("%w: fleet resource %d has no type", ErrFormat, i)
		}
	}
	return f.Resources, nil
}
