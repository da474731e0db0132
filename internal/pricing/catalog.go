package pricing

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed data/catalog.yaml
var catalogYAML []byte

// Prices holds one price per tier, in whole currency units.
type Prices struct {
	Compact float64 `yaml:"compact" json:"compact"`
	Midsize float64 `yaml:"midsize" json:"midsize"`
	Truck   float64 `yaml:"truck" json:"truck"`
	Luxury  float64 `yaml:"luxury" json:"luxury"`
}

// For returns the price for tier, or 0 for an unknown tier.
func (p Prices) For(t Tier) float64 {
	switch t {
	case Compact:
		return p.Compact
	case Midsize:
		return p.Midsize
	case Truck:
		return p.Truck
	case Luxury:
		return p.Luxury
	}
	return 0
}

// Step is one checklist item of a service package.
type Step struct {
	ID    string `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Phase string `yaml:"phase" json:"phase"`
}

type ServicePackage struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Pricing     Prices `yaml:"pricing" json:"pricing"`
	Steps       []Step `yaml:"steps" json:"steps"`
}

type AddOn struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Pricing     Prices `yaml:"pricing" json:"pricing"`
}

// Catalog is the immutable service and add-on price list. Load it once at
// startup and share it; nothing mutates it afterwards.
type Catalog struct {
	Services []ServicePackage `yaml:"services" json:"services"`
	AddOns   []AddOn          `yaml:"add_ons" json:"add_ons"`

	services map[string]ServicePackage
	addOns   map[string]AddOn
}

// LoadCatalog decodes and indexes a catalog. Duplicate ids are rejected.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(c.Services) == 0 {
		return nil, errors.New("catalog has no service packages")
	}
	c.services = make(map[string]ServicePackage, len(c.Services))
	c.addOns = make(map[string]AddOn, len(c.AddOns))
	for _, s := range c.Services {
		if _, dup := c.services[s.ID]; dup || s.ID == "" {
			return nil, fmt.Errorf("catalog: invalid or duplicate service id %q", s.ID)
		}
		c.services[s.ID] = s
	}
	for _, a := range c.AddOns {
		if _, dup := c.addOns[a.ID]; dup || a.ID == "" {
			return nil, fmt.Errorf("catalog: invalid or duplicate add-on id %q", a.ID)
		}
		c.addOns[a.ID] = a
	}
	return &c, nil
}

// LoadCatalogFile reads a catalog from path, falling back to the embedded
// catalog when path is empty.
func LoadCatalogFile(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return LoadCatalog(f)
}

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	c, err := LoadCatalog(bytes.NewReader(catalogYAML))
	if err != nil {
		panic(fmt.Sprintf("embedded catalog: %v", err))
	}
	return c
}

func (c *Catalog) Service(id string) (ServicePackage, bool) {
	s, ok := c.services[id]
	return s, ok
}

func (c *Catalog) AddOn(id string) (AddOn, bool) {
	a, ok := c.addOns[id]
	return a, ok
}

// Price looks up a service package or add-on price for tier. Unknown ids
// price at 0; callers should treat 0 as "check the id", not as free.
func (c *Catalog) Price(id string, t Tier) float64 {
	if s, ok := c.services[id]; ok {
		return s.Pricing.For(t)
	}
	if a, ok := c.addOns[id]; ok {
		return a.Pricing.For(t)
	}
	return 0
}
