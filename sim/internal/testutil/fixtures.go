// Package testutil provides shared test fixtures for the simulator: a small
// hand-built catalog and an in-memory store with a fresh schema.
package testutil

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/supplychain-sim/supplychain-sim/sim/catalog"
	"github.com/supplychain-sim/supplychain-sim/sim/store"
)

// Start is the simulated start time of the fixture catalog.
var Start = time.Date(2025, time.January, 1, 8, 0, 0, 0, time.UTC)

// Fixture ids.
const (
	SupplierFoodA  int64 = 0
	SupplierFoodB  int64 = 1
	SupplierTools  int64 = 2
	ItemBread      int64 = 1
	ItemCheese     int64 = 2
	ItemHammer     int64 = 3
	ItemOrphan     int64 = 4 // no supplier serves its category
	CustomerAlice  int64 = 1
	CustomerBob    int64 = 2
	MaxQuantity    int64 = 40
	RestockWeight5       = 5.0
)

// Catalog builds a small catalog with zero failure rates so fulfillment
// outcomes depend only on inventory.
func Catalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	suppliers := []catalog.Supplier{
		{ID: SupplierFoodA, Name: "Food A", Category: "Food", MaxQuantity: MaxQuantity, FulfillmentWeight: 1},
		{ID: SupplierFoodB, Name: "Food B", Category: "Food", MaxQuantity: MaxQuantity, FulfillmentWeight: 2},
		{ID: SupplierTools, Name: "Tools", Category: "Hardware", MaxQuantity: MaxQuantity, FulfillmentWeight: 1},
	}
	items := []catalog.Item{
		{ID: ItemBread, Name: "Bread", Category: "Food", UnitPrice: decimal.RequireFromString("2.50"), RestockWeight: RestockWeight5},
		{ID: ItemCheese, Name: "Cheese", Category: "Food", UnitPrice: decimal.RequireFromString("7.25"), RestockWeight: 1},
		{ID: ItemHammer, Name: "Hammer", Category: "Hardware", UnitPrice: decimal.RequireFromString("19.99"), RestockWeight: 2},
		{ID: ItemOrphan, Name: "Kite", Category: "Toys", UnitPrice: decimal.RequireFromString("4.00"), RestockWeight: 1},
	}
	customers := []catalog.Customer{
		{ID: CustomerAlice, Name: "Alice", Region: "North"},
		{ID: CustomerBob, Name: "Bob", Region: "South"},
	}
	cat, err := catalog.New(suppliers, items, customers, Start)
	require.NoError(t, err)
	return cat
}

// MemoryStore opens an in-memory SQLite store with a fresh schema. The store
// is closed when the test ends.
func MemoryStore(t *testing.T) *store.SQLStore {
	t.Helper()
	st, err := store.Open(context.Background(), store.Config{Driver: store.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ResetSchema(context.Background()))
	return st
}

// SetInventory inserts or replaces one inventory row.
func SetInventory(t *testing.T, st store.Store, itemID, supplierID, onHand, reorderPoint int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, st.Execute(ctx,
		`DELETE FROM inventory WHERE item_id = ? AND supplier_id = ?`, itemID, supplierID))
	require.NoError(t, st.Execute(ctx,
		`INSERT INTO inventory (item_id, supplier_id, quantity_on_hand, reorder_point, last_updated)
		 VALUES (?, ?, ?, ?, ?)`,
		itemID, supplierID, onHand, reorderPoint, Start))
}

// OnHand reads an inventory row's quantity, failing the test if it is missing.
func OnHand(t *testing.T, st store.Store, itemID, supplierID int64) int64 {
	t.Helper()
	var n int64
	found, err := st.QueryOne(context.Background(), &n,
		`SELECT quantity_on_hand FROM inventory WHERE item_id = ? AND supplier_id = ?`, itemID, supplierID)
	require.NoError(t, err)
	require.True(t, found, "inventory row (%d, %d) missing", itemID, supplierID)
	return n
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
