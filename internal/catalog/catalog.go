// Package catalog describes the options a client may offer for a truck.
package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/platform43/firerig/internal/sim"
	"github.com/platform43/firerig/pkg/core"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Swatch is one entry of the body color palette.
type Swatch struct {
	Name string `yaml:"name" json:"name"`
	Hex  string `yaml:"hex" json:"hex"`
}

// Option is a selectable enum value with a display label.
type Option struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

type Range struct {
	Min  float64 `yaml:"min" json:"min"`
	Max  float64 `yaml:"max" json:"max"`
	Step float64 `yaml:"step,omitempty" json:"step,omitempty"`
}

type Wheels struct {
	Counts []int    `yaml:"counts" json:"counts"`
	Types  []Option `yaml:"types" json:"types"`
}

// Catalog is the full option set plus the configuration a new session starts with.
type Catalog struct {
	Palette      []Swatch           `yaml:"palette" json:"palette"`
	Ladder       Range              `yaml:"ladder" json:"ladder"`
	Wheels       Wheels             `yaml:"wheels" json:"wheels"`
	CabStyles    []Option           `yaml:"cabStyles" json:"cabStyles"`
	FireStrength Range              `yaml:"fireStrength" json:"fireStrength"`
	Defaults     core.Configuration `yaml:"-" json:"defaults"`
}

// Default returns the built-in catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from path, or the built-in one when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	c.Defaults = core.DefaultConfiguration()
	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Palette) == 0 {
		return fmt.Errorf("catalog palette is empty")
	}
	for i, s := range c.Palette {
		hex, ok := sim.NormalizeColor(s.Hex)
		if !ok {
			return fmt.Errorf("palette entry %q: invalid color %q", s.Name, s.Hex)
		}
		c.Palette[i].Hex = hex
	}

	if c.Ladder.Min < core.MinLadderLength || c.Ladder.Max > core.MaxLadderLength || c.Ladder.Min > c.Ladder.Max {
		return fmt.Errorf("ladder range [%v, %v] outside [%v, %v]", c.Ladder.Min, c.Ladder.Max, core.MinLadderLength, core.MaxLadderLength)
	}

	for _, n := range c.Wheels.Counts {
		if n%2 != 0 || n < core.MinWheelCount || n > core.MaxWheelCount {
			return fmt.Errorf("invalid wheel count %d", n)
		}
	}
	for _, o := range c.Wheels.Types {
		if !core.WheelType(o.ID).Valid() {
			return fmt.Errorf("unknown wheel type %q", o.ID)
		}
	}
	for _, o := range c.CabStyles {
		if !core.CabStyle(o.ID).Valid() {
			return fmt.Errorf("unknown cab style %q", o.ID)
		}
	}

	if c.FireStrength.Min < core.MinFireStrength || c.FireStrength.Max > core.MaxFireStrength {
		return fmt.Errorf("fire strength range [%v, %v] outside [%d, %d]", c.FireStrength.Min, c.FireStrength.Max, core.MinFireStrength, core.MaxFireStrength)
	}
	return nil
}
