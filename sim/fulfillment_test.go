package sim

import (
	"context"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/supplychain-sim/supplychain-sim/sim/catalog"
	"github.com/supplychain-sim/supplychain-sim/sim/internal/testutil"
	"github.com/supplychain-sim/supplychain-sim/sim/trace"
)

func TestAttemptFulfillment_PartialSuccess(t *testing.T) {
	// GIVEN a line for 5 units with only 3 on hand, beside a completed line
	sim := newTestSimulator(t)
	testutil.SetInventory(t, sim.Store, testutil.ItemBread, testutil.SupplierFoodA, 3, 10)
	orderID, lineIDs := insertOrder(t, sim.Store, sim.Clock, StatusUnfulfilled,
		testLine{testutil.ItemBread, testutil.SupplierFoodA, 5, 0},
		testLine{testutil.ItemCheese, testutil.SupplierFoodB, 2, 2})

	// WHEN the line is attempted
	rec, err := sim.AttemptFulfillment(context.Background(), openLine(t, sim.Store, lineIDs[0]))
	require.NoError(t, err)

	// THEN all 3 units move and the order is partial
	assert.True(t, rec.Success)
	assert.Equal(t, trace.ReasonNone, rec.FailureReason)
	assert.Equal(t, int64(3), rec.NewlyFulfilled)
	assert.Equal(t, int64(5), rec.RequestedQty)
	assert.Equal(t, int64(0), rec.PreviouslyFulfilled)
	assert.Equal(t, int64(0), testutil.OnHand(t, sim.Store, testutil.ItemBread, testutil.SupplierFoodA))
	assert.Equal(t, int64(3), lineFulfilled(t, sim.Store, lineIDs[0]))
	assert.Equal(t, StatusPartial, orderStatus(t, sim.Store, orderID))

	assert.Equal(t, 3.0, promtest.ToFloat64(sim.Metrics.UnitsFulfilled))
	testutil.AssertFloat64Equal(t, "fulfilled value", 7.5, promtest.ToFloat64(sim.Metrics.FulfilledValue), 1e-9)
}

func TestAttemptFulfillment_CompletesLineAndOrder(t *testing.T) {
	sim := newTestSimulator(t)
	testutil.SetInventory(t, sim.Store, testutil.ItemHammer, testutil.SupplierTools, 20, 10)
	orderID, lineIDs := insertOrder(t, sim.Store, sim.Clock, StatusPartial,
		testLine{testutil.ItemHammer, testutil.SupplierTools, 4, 1})

	rec, err := sim.AttemptFulfillment(context.Background(), openLine(t, sim.Store, lineIDs[0]))
	require.NoError(t, err)

	assert.True(t, rec.Success)
	assert.Equal(t, int64(3), rec.NewlyFulfilled)
	assert.Equal(t, int64(1), rec.PreviouslyFulfilled)
	assert.Equal(t, int64(17), testutil.OnHand(t, sim.Store, testutil.ItemHammer, testutil.SupplierTools))
	assert.Equal(t, StatusFulfilled, orderStatus(t, sim.Store, orderID))

	var stamped int
	_, err = sim.Store.QueryOne(context.Background(), &stamped,
		`SELECT COUNT(*) FROM order_items WHERE order_item_id = ? AND fulfilled_date IS NOT NULL`, lineIDs[0])
	require.NoError(t, err)
	assert.Equal(t, 1, stamped)
}

func TestAttemptFulfillment_StockoutLeavesStateUnchanged(t *testing.T) {
	// GIVEN an inventory row with nothing on hand
	sim := newTestSimulator(t)
	testutil.SetInventory(t, sim.Store, testutil.ItemBread, testutil.SupplierFoodA, 0, 10)
	orderID, lineIDs := insertOrder(t, sim.Store, sim.Clock, StatusUnfulfilled,
		testLine{testutil.ItemBread, testutil.SupplierFoodA, 2, 0})

	// WHEN the line is attempted
	rec, err := sim.AttemptFulfillment(context.Background(), openLine(t, sim.Store, lineIDs[0]))

	// THEN it fails with stockout and nothing is written
	require.NoError(t, err)
	assert.False(t, rec.Success)
	assert.Equal(t, trace.ReasonStockout, rec.FailureReason)
	assert.Equal(t, int64(0), rec.NewlyFulfilled)
	assert.Equal(t, int64(0), testutil.OnHand(t, sim.Store, testutil.ItemBread, testutil.SupplierFoodA))
	assert.Equal(t, int64(0), lineFulfilled(t, sim.Store, lineIDs[0]))
	assert.Equal(t, StatusUnfulfilled, orderStatus(t, sim.Store, orderID))
	assert.Equal(t, 1.0, promtest.ToFloat64(sim.Metrics.Fulfillments.WithLabelValues(string(trace.ReasonStockout))))
}

func TestAttemptFulfillment_MissingInventoryRow(t *testing.T) {
	sim := newTestSimulator(t)
	_, lineIDs := insertOrder(t, sim.Store, sim.Clock, StatusUnfulfilled,
		testLine{testutil.ItemCheese, testutil.SupplierFoodB, 2, 0})

	rec, err := sim.AttemptFulfillment(context.Background(), openLine(t, sim.Store, lineIDs[0]))

	require.NoError(t, err)
	assert.False(t, rec.Success)
	assert.Equal(t, trace.ReasonNoInventoryEntry, rec.FailureReason)
	assert.Equal(t, int64(0), lineFulfilled(t, sim.Store, lineIDs[0]))
}

func TestAttemptFulfillment_CombinedFailureRateAtLeastOneAlwaysFails(t *testing.T) {
	// GIVEN a supplier and item whose failure rates sum past 1
	cat, err := catalog.New(
		[]catalog.Supplier{{ID: 0, Name: "Flaky", Category: "Food", MaxQuantity: 40, FailureRate: 0.6}},
		[]catalog.Item{{ID: 1, Name: "Bread", Category: "Food", UnitPrice: decimal.NewFromInt(1), FailureRate: 0.5, RestockWeight: 1}},
		[]catalog.Customer{{ID: 1, Name: "Alice", Region: "North"}},
		testutil.Start)
	require.NoError(t, err)
	sim := newTestSimulatorWith(t, cat, DefaultConfig())
	testutil.SetInventory(t, sim.Store, 1, 0, 40, 10)
	_, lineIDs := insertOrder(t, sim.Store, sim.Clock, StatusUnfulfilled, testLine{1, 0, 5, 0})
	line := openLine(t, sim.Store, lineIDs[0])

	// WHEN the line is attempted many times
	for i := 0; i < 200; i++ {
		rec, err := sim.AttemptFulfillment(context.Background(), line)
		require.NoError(t, err)

		// THEN every attempt fails on reliability and inventory is untouched
		require.False(t, rec.Success)
		require.Equal(t, trace.ReasonUnreliableSupplier, rec.FailureReason)
	}
	assert.Equal(t, int64(40), testutil.OnHand(t, sim.Store, 1, 0))
}

func TestAttemptFulfillment_NothingRemainingIsAnError(t *testing.T) {
	sim := newTestSimulator(t)
	_, err := sim.AttemptFulfillment(context.Background(), OrderLine{
		LineID: 1, OrderID: 1, ItemID: testutil.ItemBread, SupplierID: testutil.SupplierFoodA,
		Requested: 2, Fulfilled: 2,
	})
	assert.Error(t, err)
}

func TestFulfillOrder_EmptyCacheIsNoOp(t *testing.T) {
	sim := newTestSimulator(t)

	rec, ok, err := sim.FulfillOrder(context.Background())

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, trace.FulfillmentRecord{}, rec)
	assert.Empty(t, sim.Log.Pending)
}

func TestFulfillOrder_StaleCacheEntryIsNoOp(t *testing.T) {
	// GIVEN a cached order whose only line is already complete
	sim := newTestSimulator(t)
	orderID, _ := insertOrder(t, sim.Store, sim.Clock, StatusUnfulfilled,
		testLine{testutil.ItemBread, testutil.SupplierFoodA, 2, 2})
	sim.Cache.Replace([]int64{orderID}, sim.Clock)

	_, ok, err := sim.FulfillOrder(context.Background())

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, sim.Log.Pending)
}

func TestFulfillOrder_BuffersAttempt(t *testing.T) {
	sim := newTestSimulator(t)
	testutil.SetInventory(t, sim.Store, testutil.ItemBread, testutil.SupplierFoodA, 10, 10)
	orderID, _ := insertOrder(t, sim.Store, sim.Clock, StatusUnfulfilled,
		testLine{testutil.ItemBread, testutil.SupplierFoodA, 2, 0})
	sim.Cache.Replace([]int64{orderID}, sim.Clock)

	rec, ok, err := sim.FulfillOrder(context.Background())

	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, rec.Success)
	assert.Equal(t, orderID, rec.OrderID)
	assert.Equal(t, sim.Clock, rec.Timestamp)
	require.Len(t, sim.Log.Pending, 1)
	assert.Empty(t, sim.Log.Fulfillments, "attempts stay buffered until the next flush")
}
