package configstore

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// descriptor is a minimal, read-only view of a docker-compose.yml stack
// descriptor: just enough to enumerate declared service names for
// internal/health's diagnostics when a stack fails to resolve at all.
type descriptor struct {
	Services map[string]yaml.Node `yaml:"services"`
}

// ServiceNames parses the world stack descriptor and returns the declared
// service short-names. A missing or unparsable descriptor yields an empty
// slice and a non-nil error.
func (s *Store) ServiceNames(event, user string) ([]string, error) {
	path := s.WorldDescriptorPath(event, user)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("configstore: reading descriptor %s: %w", path, err)
	}

	var d descriptor
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("configstore: parsing descriptor %s: %w", path, err)
	}

	names := make([]string, 0, len(d.Services))
	for name := range d.Services {
		names = append(names, name)
	}
	return names, nil
}
