package sdk

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/modulant/lattice"
)

// Manifest describes a service the way its author ships it: a small YAML
// file next to the binary naming the service and what it provides.
type Manifest struct {
	ID           string            `yaml:"id"`
	Name         string            `yaml:"name"`
	Version      string            `yaml:"version"`
	Capabilities []string          `yaml:"capabilities"`
	Metadata     map[string]string `yaml:"metadata"`

	HTTP struct {
		Port int `yaml:"port"`
	} `yaml:"http"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	if m.Name == "" {
		return fmt.Errorf("%w: manifest is missing a name", lattice.ErrValidation)
	}
	if len(m.Capabilities) == 0 {
		return fmt.Errorf("%w: manifest declares no capabilities", lattice.ErrValidation)
	}
	return nil
}

// Record converts the manifest into a registration record. A missing id
// gets a generated one so two instances of the same service never collide.
func (m *Manifest) Record(location string) *lattice.ServiceRecord {
	id := m.ID
	if id == "" {
		id = fmt.Sprintf("%s-%s", m.Name, uuid.NewString()[:8])
	}
	return &lattice.ServiceRecord{
		ID:           id,
		Name:         m.Name,
		Version:      m.Version,
		Capabilities: lattice.DedupeCapabilities(m.Capabilities),
		Location:     location,
		Mode:         lattice.ModeHTTP,
		Metadata:     m.Metadata,
	}
}
