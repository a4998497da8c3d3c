// Package catalog holds the immutable reference data a simulation runs against:
// suppliers, items, customers, and the supplier→item eligibility mapping.
// This package has no dependencies on sim/; it stores pure data types.
package catalog

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Supplier provides inventory for exactly one item category.
type Supplier struct {
	ID                int64
	Name              string
	Category          string
	MaxQuantity       int64   // upper bound on a restocked inventory row
	FailureRate       float64 // probability a fulfillment attempt fails on the supplier side
	FulfillmentWeight float64 // selection weight when choosing a supplier for fulfillment
}

// Item is a product customers can order.
type Item struct {
	ID            int64
	Name          string
	Category      string
	UnitPrice     decimal.Decimal
	FailureRate   float64 // probability an item-related issue fails a fulfillment attempt
	RestockWeight float64 // selection weight when choosing which low-stock row to restock
}

// Customer places orders.
type Customer struct {
	ID     int64
	Name   string
	Region string
}

// ErrEmptyPopulation is returned when a catalog would be built without any
// suppliers, items or customers. A simulation cannot start from such a bundle.
var ErrEmptyPopulation = errors.New("catalog: empty population")

// Catalog is the read-only entity bundle consumed by the simulator.
// It is never mutated after New returns.
type Catalog struct {
	Suppliers     map[int64]Supplier
	Items         map[int64]Item
	Customers     map[int64]Customer
	SupplierItems map[int64][]int64 // supplier ID → eligible item IDs (ascending)
	Start         time.Time         // simulated start time

	supplierIDs []int64
	itemIDs     []int64
	customerIDs []int64
	eligible    map[int64][]int64 // item ID → eligible supplier IDs (ascending)
}

// New builds a Catalog and derives the eligibility mapping from category equality.
func New(suppliers []Supplier, items []Item, customers []Customer, start time.Time) (*Catalog, error) {
	if len(suppliers) == 0 {
		return nil, fmt.Errorf("%w: no suppliers", ErrEmptyPopulation)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no items", ErrEmptyPopulation)
	}
	if len(customers) == 0 {
		return nil, fmt.Errorf("%w: no customers", ErrEmptyPopulation)
	}

	c := &Catalog{
		Suppliers: make(map[int64]Supplier, len(suppliers)),
		Items:     make(map[int64]Item, len(items)),
		Customers: make(map[int64]Customer, len(customers)),
		Start:     start.UTC(),
	}
	for _, s := range suppliers {
		if _, dup := c.Suppliers[s.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate supplier id %d", s.ID)
		}
		if s.MaxQuantity < 0 {
			return nil, fmt.Errorf("catalog: supplier %d has negative max quantity %d", s.ID, s.MaxQuantity)
		}
		c.Suppliers[s.ID] = s
		c.supplierIDs = append(c.supplierIDs, s.ID)
	}
	for _, it := range items {
		if _, dup := c.Items[it.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate item id %d", it.ID)
		}
		if it.RestockWeight < 0 {
			return nil, fmt.Errorf("catalog: item %d has negative restock weight %v", it.ID, it.RestockWeight)
		}
		c.Items[it.ID] = it
		c.itemIDs = append(c.itemIDs, it.ID)
	}
	for _, cu := range customers {
		if _, dup := c.Customers[cu.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate customer id %d", cu.ID)
		}
		c.Customers[cu.ID] = cu
		c.customerIDs = append(c.customerIDs, cu.ID)
	}
	sortIDs(c.supplierIDs)
	sortIDs(c.itemIDs)
	sortIDs(c.customerIDs)

	c.SupplierItems, c.eligible = mapSupplierItems(c)
	return c, nil
}

// mapSupplierItems pairs every item with every supplier of the same category.
// Both directions are returned so per-item supplier lookups stay O(1).
func mapSupplierItems(c *Catalog) (map[int64][]int64, map[int64][]int64) {
	bySupplier := make(map[int64][]int64, len(c.supplierIDs))
	byItem := make(map[int64][]int64, len(c.itemIDs))
	for _, sid := range c.supplierIDs {
		bySupplier[sid] = []int64{}
	}
	for _, iid := range c.itemIDs {
		item := c.Items[iid]
		for _, sid := range c.supplierIDs {
			if c.Suppliers[sid].Category == item.Category {
				bySupplier[sid] = append(bySupplier[sid], iid)
				byItem[iid] = append(byItem[iid], sid)
			}
		}
	}
	return bySupplier, byItem
}

// SupplierIDs returns all supplier IDs in ascending order.
func (c *Catalog) SupplierIDs() []int64 { return c.supplierIDs }

// ItemIDs returns all item IDs in ascending order.
func (c *Catalog) ItemIDs() []int64 { return c.itemIDs }

// CustomerIDs returns all customer IDs in ascending order.
func (c *Catalog) CustomerIDs() []int64 { return c.customerIDs }

// EligibleSuppliers returns the suppliers able to serve itemID, ascending.
// The result is empty when no supplier shares the item's category.
func (c *Catalog) EligibleSuppliers(itemID int64) []int64 {
	return c.eligible[itemID]
}

// Supplier looks up a supplier by ID.
func (c *Catalog) Supplier(id int64) (Supplier, bool) {
	s, ok := c.Suppliers[id]
	return s, ok
}

// Item looks up an item by ID.
func (c *Catalog) Item(id int64) (Item, bool) {
	it, ok := c.Items[id]
	return it, ok
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
