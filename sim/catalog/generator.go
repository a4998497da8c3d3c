package catalog

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/jaswdr/faker"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// GeneratorConfig controls the size and shape of a generated catalog.
type GeneratorConfig struct {
	NumSuppliers        int       `yaml:"suppliers"`
	NumItems            int       `yaml:"items"`
	NumCustomers        int       `yaml:"customers"`
	Categories          []string  `yaml:"categories"`
	Regions             []string  `yaml:"regions"`
	SupplierMaxQuantity int64     `yaml:"supplier_max_quantity"`
	Start               time.Time `yaml:"start"`
}

// DefaultGeneratorConfig mirrors the population the simulator was calibrated on:
// 10 suppliers over 5 categories, 50 items, 200 customers over 4 regions.
func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		NumSuppliers:        10,
		NumItems:            50,
		NumCustomers:        200,
		Categories:          []string{"Electronics", "Clothing", "Food", "Medical", "Hardware"},
		Regions:             []string{"North", "South", "East", "West"},
		SupplierMaxQuantity: 40,
		Start:               time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Validate checks population sizes and category/region lists.
func (cfg GeneratorConfig) Validate() error {
	if cfg.NumSuppliers <= 0 || cfg.NumItems <= 0 || cfg.NumCustomers <= 0 {
		return fmt.Errorf("%w: suppliers=%d items=%d customers=%d",
			ErrEmptyPopulation, cfg.NumSuppliers, cfg.NumItems, cfg.NumCustomers)
	}
	if len(cfg.Categories) == 0 {
		return fmt.Errorf("catalog: at least one category is required")
	}
	if len(cfg.Regions) == 0 {
		return fmt.Errorf("catalog: at least one region is required")
	}
	if cfg.SupplierMaxQuantity <= 0 {
		return fmt.Errorf("catalog: supplier_max_quantity must be positive, got %d", cfg.SupplierMaxQuantity)
	}
	return nil
}

// Generate builds a randomized catalog. All randomness, names included, is
// drawn from rng so the same seed yields the same catalog.
//
// Suppliers are assigned categories round-robin; items pick from the
// categories actually used by suppliers so every item has at least one
// eligible supplier.
func Generate(cfg GeneratorConfig, rng *rand.Rand) (*Catalog, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fake := faker.NewWithSeed(rand.NewSource(rng.Int63()))
	title := cases.Title(language.English)

	suppliers := make([]Supplier, 0, cfg.NumSuppliers)
	var usedCategories []string
	seen := make(map[string]bool)
	for i := 0; i < cfg.NumSuppliers; i++ {
		category := cfg.Categories[i%len(cfg.Categories)]
		if !seen[category] {
			seen[category] = true
			usedCategories = append(usedCategories, category)
		}
		suppliers = append(suppliers, Supplier{
			ID:                int64(i),
			Name:              fake.Company().Name(),
			Category:          category,
			MaxQuantity:       cfg.SupplierMaxQuantity,
			FailureRate:       round2(uniform(rng, 0.01, 0.05)),
			FulfillmentWeight: round2(uniform(rng, 0.1, 9.0)),
		})
	}

	items := make([]Item, 0, cfg.NumItems)
	names := make(map[string]bool)
	for i := 1; i <= cfg.NumItems; i++ {
		items = append(items, Item{
			ID:            int64(i),
			Name:          uniqueName(names, title.String(fake.Lorem().Word()), i),
			Category:      usedCategories[rng.Intn(len(usedCategories))],
			UnitPrice:     decimal.NewFromFloat(uniform(rng, 5.0, 50.0)).Round(2),
			FailureRate:   round2(uniform(rng, 0.01, 0.05)),
			RestockWeight: round2(uniform(rng, 0.1, 9.0)),
		})
	}

	customers := make([]Customer, 0, cfg.NumCustomers)
	for i := 1; i <= cfg.NumCustomers; i++ {
		customers = append(customers, Customer{
			ID:     int64(i),
			Name:   fake.Person().Name(),
			Region: cfg.Regions[rng.Intn(len(cfg.Regions))],
		})
	}

	return New(suppliers, items, customers, cfg.Start)
}

// uniqueName disambiguates repeated faker words with the item ordinal.
func uniqueName(used map[string]bool, name string, ordinal int) string {
	if used[name] {
		name = fmt.Sprintf("%s %d", name, ordinal)
	}
	used[name] = true
	return name
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
