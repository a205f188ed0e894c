package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v2"
)

// ErrArtifactNotFound is returned when the model file does not exist.
var ErrArtifactNotFound = errors.New("model artifact not found")

// LoadModel reads a model artifact. The format follows the extension:
// .json, .yaml/.yml, or .db/.sqlite for the SQLite layout.
func LoadModel(path string) (Classifier, error) {
	artifact, err := ReadArtifact(path)
	if err != nil {
		return nil, err
	}
	return artifact.Build()
}

// ReadArtifact decodes a model file without building it.
func ReadArtifact(path string) (*Artifact, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrArtifactNotFound, path)
		}
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return readSQLiteArtifact(path)
	case ".yaml", ".yml":
		return decodeFile(path, func(r io.Reader, a *Artifact) error {
			return yaml.NewDecoder(r).Decode(a)
		})
	case ".json":
		return decodeFile(path, func(r io.Reader, a *Artifact) error {
			dec := json.NewDecoder(r)
			dec.DisallowUnknownFields()
			return dec.Decode(a)
		})
	default:
		return nil, fmt.Errorf("unsupported model file extension %q", filepath.Ext(path))
	}
}

func decodeFile(path string, decode func(io.Reader, *Artifact) error) (*Artifact, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var artifact Artifact
	if err := decode(file, &artifact); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &artifact, nil
}
