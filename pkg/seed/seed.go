// Package seed loads the embedded fixture dataset into a store. The
// dataset ships inside the binary so a fresh deployment serves data with
// no external fixture files.
package seed

import (
	"context"
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/apimockr/apimockr/pkg/resource"
)

//go:embed seed.yaml
var seedYAML []byte

type dataset struct {
	Users    []resource.Record `yaml:"users"`
	Posts    []resource.Record `yaml:"posts"`
	Todos    []resource.Record `yaml:"todos"`
	Comments []resource.Record `yaml:"comments"`
}

// load parses the embedded dataset. Kept separate from Seed so tests can
// inspect the fixtures without a store.
func load() (*dataset, error) {
	var ds dataset
	if err := yaml.Unmarshal(seedYAML, &ds); err != nil {
		return nil, fmt.Errorf("parse seed dataset: %w", err)
	}
	return &ds, nil
}

// Seed wipes every table and inserts the embedded dataset. Parents are
// inserted before children so foreign keys in the fixtures line up with
// the freshly assigned ids.
func Seed(ctx context.Context, st Store) error {
	ds, err := load()
	if err != nil {
		return err
	}

	tables := []struct {
		name string
		recs []resource.Record
	}{
		{"users", ds.Users},
		{"posts", ds.Posts},
		{"todos", ds.Todos},
		{"comments", ds.Comments},
	}

	// Clear children first so a fixture insert never collides with a
	// leftover unique value.
	for i := len(tables) - 1; i >= 0; i-- {
		if err := st.DeleteAll(ctx, tables[i].name); err != nil {
			return err
		}
	}

	for _, t := range tables {
		for _, rec := range t.recs {
			if _, err := st.Insert(ctx, t.name, rec); err != nil {
				return fmt.Errorf("seed %s: %w", t.name, err)
			}
		}
	}
	return nil
}

// Store is the subset of the storage layer seeding needs.
type Store interface {
	DeleteAll(ctx context.Context, table string) error
	Insert(ctx context.Context, table string, data resource.Record) (resource.Record, error)
}
