package vehicle

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed data/reference.yaml
var referenceYAML []byte

// Keywords are substring hints used when a make/model is not in the
// reference table.
type Keywords struct {
	Truck      []string `yaml:"truck"`
	TruckMakes []string `yaml:"truck_makes"`
	Compact    []string `yaml:"compact"`
	Midsize    []string `yaml:"midsize"`
}

// Dataset is the read-only reference data behind the classifier.
type Dataset struct {
	LuxuryMakes []string `yaml:"luxury_makes"`
	Keywords    Keywords `yaml:"keywords"`
	Vehicles    []Row    `yaml:"vehicles"`

	index map[string]Row
}

// LoadDataset decodes a reference dataset and indexes it by make/model.
func LoadDataset(r io.Reader) (*Dataset, error) {
	var ds Dataset
	if err := yaml.NewDecoder(r).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode vehicle dataset: %w", err)
	}
	if len(ds.Vehicles) == 0 && len(ds.LuxuryMakes) == 0 {
		return nil, errors.New("vehicle dataset is empty")
	}
	ds.index = make(map[string]Row, len(ds.Vehicles))
	for i, v := range ds.Vehicles {
		if !v.Category.Valid() {
			return nil, fmt.Errorf("vehicle dataset entry %d (%s %s): missing type_category", i, v.Make, v.Model)
		}
		v.Make, v.Model = Normalize(v.Make), Normalize(v.Model)
		ds.Vehicles[i] = v
		if _, dup := ds.index[v.Key()]; !dup {
			ds.index[v.Key()] = v
		}
	}
	for i, m := range ds.LuxuryMakes {
		ds.LuxuryMakes[i] = Normalize(m)
	}
	return &ds, nil
}

// LoadDatasetFile reads a dataset from disk.
func LoadDatasetFile(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadDataset(f)
}

// DefaultDataset returns the embedded reference dataset.
func DefaultDataset() *Dataset {
	ds, err := LoadDataset(bytes.NewReader(referenceYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded vehicle dataset: %v", err))
	}
	return ds
}

func (d *Dataset) lookup(mk, model string) (Row, bool) {
	r, ok := d.index[KeyOf(mk, model)]
	return r, ok
}
