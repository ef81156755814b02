package state

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	factory "github.com/goliatone/go-factory"
	"github.com/goliatone/go-factory/layering"
	"gopkg.in/yaml.v3"
)

// Fixture is one YAML document describing the named states of a factory:
//
//	factory: account
//	config:
//	  max_depth: 8
//	states:
//	  admin:
//	    role: admin
//	  suspended:
//	    active: false
type Fixture struct {
	Factory string                        `yaml:"factory"`
	Config  *factory.Config               `yaml:"config,omitempty"`
	States  map[string]factory.Attributes `yaml:"states"`
	Source  string                        `yaml:"-"`
}

// Options returns the factory options declared by the fixture's config block.
func (f Fixture) Options() []factory.Option {
	if f.Config == nil {
		return nil
	}
	return []factory.Option{factory.WithConfig(*f.Config)}
}

// LoadYAML decodes every document of r into fixtures.
func LoadYAML(r io.Reader) ([]Fixture, error) {
	decoder := yaml.NewDecoder(r)
	var fixtures []Fixture
	for index := 0; ; index++ {
		var fx Fixture
		err := decoder.Decode(&fx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("state: decode fixture document %d: %w", index, err)
		}
		fx.Factory = strings.TrimSpace(fx.Factory)
		if fx.Factory == "" {
			return nil, fmt.Errorf("state: fixture document %d: factory is required", index)
		}
		fixtures = append(fixtures, fx)
	}
	return fixtures, nil
}

// LoadFile reads fixtures from a YAML file and records the path as their
// source.
func LoadFile(path string) ([]Fixture, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("state: open fixtures: %w", err)
	}
	defer file.Close()

	fixtures, err := LoadYAML(file)
	if err != nil {
		return nil, fmt.Errorf("%w (%s)", err, path)
	}
	for i := range fixtures {
		fixtures[i].Source = path
	}
	return fixtures, nil
}

// Seed saves every state of the fixtures into store, in sorted name order.
// The fixture source, when known, is kept in Meta.Extra["source"].
func Seed(ctx context.Context, store Store, fixtures ...Fixture) error {
	if store == nil {
		return fmt.Errorf("state: store is required")
	}
	for _, fx := range fixtures {
		meta := Meta{}
		if fx.Source != "" {
			meta.Extra = map[string]string{"source": fx.Source}
		}
		for _, name := range layering.Keys(fx.States) {
			attrs := fx.States[name]
			if attrs == nil {
				attrs = factory.Attributes{}
			}
			ref := Ref{Factory: fx.Factory, Name: name}
			if _, err := store.Save(ctx, ref, attrs, meta); err != nil {
				return fmt.Errorf("state: seed %s/%s: %w", fx.Factory, name, err)
			}
		}
	}
	return nil
}
