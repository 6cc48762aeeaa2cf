// Package catalog loads pattern rules and guided exercises from YAML and
// seeds them into the record store.
package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"

	"github.com/ashureev/tandem/internal/domain"
	"github.com/ashureev/tandem/internal/store"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the reference data the engine reads.
type Catalog struct {
	Rules     []domain.PatternRule    `yaml:"rules"`
	Exercises []domain.GuidedExercise `yaml:"exercises"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Load(bytes.NewReader(defaultCatalog))
}

// Load decodes and validates a catalog.
func Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks every rule and exercise and rejects duplicate IDs.
func (c *Catalog) Validate() error {
	seen := make(map[string]bool)
	for i := range c.Rules {
		if err := c.Rules[i].Validate(); err != nil {
			return fmt.Errorf("invalid catalog: %w", err)
		}
		if seen["rule:"+c.Rules[i].ID] {
			return fmt.Errorf("invalid catalog: duplicate rule id %q", c.Rules[i].ID)
		}
		seen["rule:"+c.Rules[i].ID] = true
	}
	for _, e := range c.Exercises {
		if e.ID == "" {
			return fmt.Errorf("invalid catalog: exercise %q has no id", e.Title)
		}
		if !e.Category.Valid() {
			return fmt.Errorf("invalid catalog: exercise %s has unknown category %q", e.ID, e.Category)
		}
		if e.Difficulty.Rank() > 2 {
			return fmt.Errorf("invalid catalog: exercise %s has unknown difficulty %q", e.ID, e.Difficulty)
		}
		if seen["exercise:"+e.ID] {
			return fmt.Errorf("invalid catalog: duplicate exercise id %q", e.ID)
		}
		seen["exercise:"+e.ID] = true
	}
	return nil
}

// SeedResult counts what Seed wrote.
type SeedResult struct {
	Rules     int `json:"rules"`
	Exercises int `json:"exercises"`
}

// Seed upserts the catalog into repo by ID.
func Seed(ctx context.Context, repo store.Repository, c *Catalog) (SeedResult, error) {
	var res SeedResult
	for i := range c.Rules {
		if err := repo.UpsertRule(ctx, &c.Rules[i]); err != nil {
			return res, fmt.Errorf("seed rule %s: %w", c.Rules[i].ID, err)
		}
		res.Rules++
	}
	for i := range c.Exercises {
		if err := repo.UpsertExercise(ctx, &c.Exercises[i]); err != nil {
			return res, fmt.Errorf("seed exercise %s: %w", c.Exercises[i].ID, err)
		}
		res.Exercises++
	}
	slog.Info("Catalog seeded", "rules", res.Rules, "exercises", res.Exercises)
	return res, nil
}
