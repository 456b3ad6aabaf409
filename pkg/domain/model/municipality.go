package model

import (
	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
)

// Municipality represents a municipality under surveillance
type Municipality struct {
	ID         types.MunicipalityID `yaml:"id" json:"id"`
	Name       string               `yaml:"nome" json:"nome"`
	Code       string               `yaml:"codigo" json:"codigo"`
	Latitude   float64              `yaml:"latitude" json:"latitude"`
	Longitude  float64              `yaml:"longitude" json:"longitude"`
	Population int                  `yaml:"populacao" json:"populacao"`
	AreaKm2    float64              `yaml:"area_km2" json:"area_km2"`
}

// Validate validates the municipality
func (m *Municipality) Validate() error {
	if m.Name == "" {
		return goerr.New("municipality name is required")
	}
	if m.Latitude < -90 || m.Latitude > 90 {
		return goerr.New("latitude out of range", goerr.V("latitude", m.Latitude))
	}
	if m.Longitude < -180 || m.Longitude > 180 {
		return goerr.New("longitude out of range", goerr.V("longitude", m.Longitude))
	}
	if m.Population < 0 {
		return goerr.New("population must not be negative", goerr.V("population", m.Population))
	}
	return nil
}

// Catalog represents the municipality catalog configuration file
type Catalog struct {
	Municipalities []Municipality `yaml:"municipios"`
}

// Validate validates the catalog and rejects duplicate names
func (c *Catalog) Validate() error {
	if len(c.Municipalities) == 0 {
		return goerr.New("at least one municipality is required")
	}

	seen := make(map[string]bool)
	for i, m := range c.Municipalities {
		if err := m.Validate(); err != nil {
			return goerr.Wrap(err, "invalid municipality",
				goerr.V("index", i),
				goerr.V("name", m.Name))
		}
		if seen[m.Name] {
			return goerr.New("duplicate municipality name", goerr.V("name", m.Name))
		}
		seen[m.Name] = true
	}
	return nil
}
