package sim

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/supplychain-sim/supplychain-sim/sim/catalog"
	"github.com/supplychain-sim/supplychain-sim/sim/store"
)

// PopulateInventory inserts one inventory row per eligible (item, supplier)
// pair with an on-hand quantity drawn uniformly from [0, supplier max] and
// commits. Returns the number of rows written.
func PopulateInventory(ctx context.Context, st store.Store, cat *catalog.Catalog, rng *rand.Rand, reorderPoint int64, at time.Time) (int, error) {
	n := 0
	for _, itemID := range cat.ItemIDs() {
		for _, supplierID := range cat.EligibleSuppliers(itemID) {
			supplier, _ := cat.Supplier(supplierID)
			onHand := rng.Int63n(supplier.MaxQuantity + 1)
			if err := st.Execute(ctx,
				`INSERT INTO inventory (item_id, supplier_id, quantity_on_hand, reorder_point, last_updated)
				 VALUES (?, ?, ?, ?, ?)`,
				itemID, supplierID, onHand, reorderPoint, at); err != nil {
				return n, fmt.Errorf("insert inventory (%d, %d): %w", itemID, supplierID, err)
			}
			n++
		}
	}
	if err := st.Commit(ctx); err != nil {
		return n, fmt.Errorf("commit inventory: %w", err)
	}
	return n, nil
}
