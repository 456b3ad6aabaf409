package ingest

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"gopkg.in/yaml.v3"
)

// LoadCatalog reads the municipality catalog YAML file
func LoadCatalog(path string) (*model.Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read municipality catalog", goerr.V("path", path))
	}

	var catalog model.Catalog
	if err := yaml.Unmarshal(raw, &catalog); err != nil {
		return nil, goerr.Wrap(err, "failed to parse municipality catalog", goerr.V("path", path))
	}
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	return &catalog, nil
}
