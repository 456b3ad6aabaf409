package ml

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
)

// Model is the trained artifact: the forest plus the feature schema it was
// fitted on. It is what gets persisted to MODEL_PATH and served at runtime.
type Model struct {
	Version   types.ModelVersion `json:"version"`
	Type      types.ModelType    `json:"type"`
	TrainedAt time.Time          `json:"trained_at"`
	Columns   []string           `json:"columns"`
	Forest    *Forest            `json:"forest"`
}

// Validate checks artifact integrity after load
func (m *Model) Validate() error {
	if m.Version == "" {
		return goerr.New("model version is missing")
	}
	if m.Forest == nil || len(m.Forest.Trees) == 0 {
		return goerr.New("model has no trees")
	}
	if len(m.Columns) != m.Forest.NumFeatures {
		return goerr.New("feature schema does not match forest",
			goerr.V("columns", len(m.Columns)),
			goerr.V("num_features", m.Forest.NumFeatures))
	}
	return nil
}

// SaveModel writes the artifact as JSON. The write is atomic: a temp file
// in the same directory followed by rename.
func SaveModel(m *Model, path string) error {
	if err := m.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return goerr.Wrap(err, "failed to create model directory", goerr.V("dir", dir))
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return goerr.Wrap(err, "failed to create temp model file")
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	if err := enc.Encode(m); err != nil {
		tmp.Close()
		return goerr.Wrap(err, "failed to encode model artifact")
	}
	if err := tmp.Close(); err != nil {
		return goerr.Wrap(err, "failed to close temp model file")
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return goerr.Wrap(err, "failed to replace model artifact", goerr.V("path", path))
	}
	return nil
}

// LoadModel reads a model artifact from disk. A missing file maps to
// ErrModelNotTrained so callers can treat it as a cold start.
func LoadModel(path string) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(model.ErrModelNotTrained, "no model artifact on disk",
				goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to read model artifact", goerr.V("path", path))
	}

	var m Model
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, goerr.Wrap(err, "failed to decode model artifact", goerr.V("path", path))
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
