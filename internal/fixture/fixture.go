// Package fixture loads sourced values, OCR observations and seed
// applications from YAML, JSON or XLSX files.
package fixture

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/reconcile-cli/internal/model"
	"github.com/sells-group/reconcile-cli/internal/store"
)

// File is the content of a fixture file. Any section may be empty.
type File struct {
	Values       []model.SourcedValue        `yaml:"values" json:"values"`
	Observations []model.OcrFieldObservation `yaml:"ocr" json:"ocr"`
	Applications []store.Application         `yaml:"applications" json:"applications"`
}

// Load reads a fixture file, choosing the decoder by extension.
func Load(path string) (*File, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path)
	case ".json":
		return loadJSON(path)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, eris.Errorf("fixture: unsupported file type %q", filepath.Ext(path))
	}
}

func loadYAML(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "fixture: read yaml")
	}
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, eris.Wrapf(err, "fixture: parse %s", path)
	}
	return normalize(&f), nil
}

func loadJSON(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "fixture: read json")
	}
	var f File
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, eris.Wrapf(err, "fixture: parse %s", path)
	}
	return normalize(&f), nil
}

func normalize(f *File) *File {
	if f.Values == nil {
		f.Values = []model.SourcedValue{}
	}
	if f.Observations == nil {
		f.Observations = []model.OcrFieldObservation{}
	}
	return f
}
