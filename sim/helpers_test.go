package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/supplychain-sim/supplychain-sim/sim/catalog"
	"github.com/supplychain-sim/supplychain-sim/sim/internal/testutil"
	"github.com/supplychain-sim/supplychain-sim/sim/store"
)

// newTestSimulator wires a simulator over the fixture catalog and a fresh
// in-memory store with no inventory.
func newTestSimulator(t *testing.T) *Simulator {
	t.Helper()
	return newTestSimulatorWith(t, testutil.Catalog(t), DefaultConfig())
}

func newTestSimulatorWith(t *testing.T, cat *catalog.Catalog, cfg Config) *Simulator {
	t.Helper()
	s, err := NewSimulator(cfg, cat, testutil.MemoryStore(t), NewPartitionedRNG(NewSimulationKey(42)))
	require.NoError(t, err)
	return s
}

type testLine struct {
	itemID, supplierID, qty, fulfilled int64
}

// insertOrder writes an order and its lines directly, bypassing CreateOrder.
// Returns the order id and the line ids in insertion order.
func insertOrder(t *testing.T, st store.Store, createdAt time.Time, status OrderStatus, lines ...testLine) (int64, []int64) {
	t.Helper()
	ctx := context.Background()
	var orderID int64
	_, err := st.QueryOne(ctx, &orderID,
		`INSERT INTO orders (customer_id, order_date, order_status) VALUES (?, ?, ?) RETURNING order_id`,
		testutil.CustomerAlice, createdAt, string(status))
	require.NoError(t, err)

	lineIDs := make([]int64, 0, len(lines))
	for _, l := range lines {
		var lineID int64
		_, err := st.QueryOne(ctx, &lineID,
			`INSERT INTO order_items (order_id, item_id, supplier_id, quantity, fulfilled_quantity)
			 VALUES (?, ?, ?, ?, ?) RETURNING order_item_id`,
			orderID, l.itemID, l.supplierID, l.qty, l.fulfilled)
		require.NoError(t, err)
		lineIDs = append(lineIDs, lineID)
	}
	return orderID, lineIDs
}

func orderStatus(t *testing.T, st store.Store, orderID int64) OrderStatus {
	t.Helper()
	var s string
	found, err := st.QueryOne(context.Background(), &s,
		`SELECT order_status FROM orders WHERE order_id = ?`, orderID)
	require.NoError(t, err)
	require.True(t, found)
	return OrderStatus(s)
}

func lineFulfilled(t *testing.T, st store.Store, lineID int64) int64 {
	t.Helper()
	var n int64
	found, err := st.QueryOne(context.Background(), &n,
		`SELECT fulfilled_quantity FROM order_items WHERE order_item_id = ?`, lineID)
	require.NoError(t, err)
	require.True(t, found)
	return n
}

// openLine reads a line back in the shape the fulfillment step consumes.
func openLine(t *testing.T, st store.Store, lineID int64) OrderLine {
	t.Helper()
	var l OrderLine
	found, err := st.QueryOne(context.Background(), &l, `
		SELECT oi.order_item_id AS order_item_id, oi.order_id AS order_id, oi.item_id AS item_id,
		       oi.supplier_id AS supplier_id, oi.quantity AS quantity,
		       oi.fulfilled_quantity AS fulfilled_quantity, o.order_date AS order_date
		FROM order_items oi JOIN orders o ON o.order_id = oi.order_id
		WHERE oi.order_item_id = ?`, lineID)
	require.NoError(t, err)
	require.True(t, found)
	return l
}

var errTxAborted = errors.New("current transaction is aborted, commands ignored until end of transaction block")

// abortingStore gives a store PostgreSQL's failed-transaction behaviour:
// after any statement error every statement fails until Commit.
type abortingStore struct {
	store.Store
	aborted bool
	commits int
}

func (s *abortingStore) QueryOne(ctx context.Context, dest any, query string, args ...any) (bool, error) {
	if s.aborted {
		return false, errTxAborted
	}
	found, err := s.Store.QueryOne(ctx, dest, query, args...)
	s.aborted = err != nil
	return found, err
}

func (s *abortingStore) QueryAll(ctx context.Context, dest any, query string, args ...any) error {
	if s.aborted {
		return errTxAborted
	}
	err := s.Store.QueryAll(ctx, dest, query, args...)
	s.aborted = err != nil
	return err
}

func (s *abortingStore) Execute(ctx context.Context, query string, args ...any) error {
	if s.aborted {
		return errTxAborted
	}
	err := s.Store.Execute(ctx, query, args...)
	s.aborted = err != nil
	return err
}

func (s *abortingStore) Commit(ctx context.Context) error {
	s.commits++
	s.aborted = false
	return s.Store.Commit(ctx)
}
