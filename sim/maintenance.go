package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/supplychain-sim/supplychain-sim/sim/trace"
)

type agedOrder struct {
	OrderID   int64     `db:"order_id"`
	OrderDate time.Time `db:"order_date"`
}

// ExpireOrders re-evaluates every open order old enough to have crossed the
// expiration threshold and returns how many were reclassified.
func (sim *Simulator) ExpireOrders(ctx context.Context) (int, error) {
	cutoff := expiryCutoff(sim.Clock, sim.Config.ExpirationDays)
	var orders []agedOrder
	if err := sim.Store.QueryAll(ctx, &orders,
		`SELECT order_id, order_date FROM orders
		 WHERE order_status IN (?, ?) AND order_date < ?
		 ORDER BY order_id`,
		string(StatusUnfulfilled), string(StatusPartial), cutoff); err != nil {
		return 0, fmt.Errorf("select aged orders: %w", err)
	}
	for _, o := range orders {
		status, err := sim.RecomputeOrderStatus(ctx, o.OrderID, o.OrderDate)
		if err != nil {
			return 0, err
		}
		sim.Metrics.OrdersExpired.WithLabelValues(string(status)).Inc()
	}
	return len(orders), nil
}

// RefreshOrderCache replaces the order cache with the open orders still
// inside the expiration window.
func (sim *Simulator) RefreshOrderCache(ctx context.Context) error {
	cutoff := expiryCutoff(sim.Clock, sim.Config.ExpirationDays)
	var ids []int64
	if err := sim.Store.QueryAll(ctx, &ids,
		`SELECT order_id FROM orders
		 WHERE order_status IN (?, ?) AND order_date >= ?
		 ORDER BY order_id`,
		string(StatusUnfulfilled), string(StatusPartial), cutoff); err != nil {
		return fmt.Errorf("select open orders: %w", err)
	}
	sim.Cache.Replace(ids, sim.Clock)
	sim.Metrics.CacheSize.Set(float64(len(ids)))
	return nil
}

type inventoryRow struct {
	ItemID     int64 `db:"item_id"`
	SupplierID int64 `db:"supplier_id"`
	OnHand     int64 `db:"quantity_on_hand"`
	Backlog    int64 `db:"backlog"`
}

const snapshotQuery = `
	SELECT i.item_id AS item_id, i.supplier_id AS supplier_id,
	       i.quantity_on_hand AS quantity_on_hand,
	       CAST(COALESCE(b.backlog, 0) AS BIGINT) AS backlog
	FROM inventory i
	LEFT JOIN (
		SELECT item_id, supplier_id, SUM(quantity - fulfilled_quantity) AS backlog
		FROM order_items
		WHERE fulfilled_quantity < quantity
		GROUP BY item_id, supplier_id
	) b ON b.item_id = i.item_id AND b.supplier_id = i.supplier_id
	ORDER BY i.item_id, i.supplier_id`

// SnapshotInventory appends one snapshot row per inventory row, stamped with
// the current clock, including the outstanding backlog for the pair.
func (sim *Simulator) SnapshotInventory(ctx context.Context) error {
	var rows []inventoryRow
	if err := sim.Store.QueryAll(ctx, &rows, snapshotQuery); err != nil {
		return fmt.Errorf("snapshot inventory: %w", err)
	}
	snaps := make([]trace.InventorySnapshot, 0, len(rows))
	for _, r := range rows {
		snap := trace.InventorySnapshot{
			Timestamp:      sim.Clock,
			ItemID:         r.ItemID,
			SupplierID:     r.SupplierID,
			QuantityOnHand: r.OnHand,
			BacklogQty:     r.Backlog,
		}
		if item, ok := sim.Catalog.Item(r.ItemID); ok {
			snap.RestockWeight = item.RestockWeight
		}
		if supplier, ok := sim.Catalog.Supplier(r.SupplierID); ok {
			snap.FulfillmentWeight = supplier.FulfillmentWeight
		}
		snaps = append(snaps, snap)
	}
	sim.Log.RecordSnapshot(snaps...)
	return nil
}

// Maintain runs the periodic pass: expire aged orders, refresh the order
// cache, flush buffered fulfillment records, snapshot inventory and commit.
// The commit is attempted even when an earlier part fails, so a store left
// unusable by a failed statement gets a fresh transaction.
func (sim *Simulator) Maintain(ctx context.Context) error {
	var errs []error
	expired, err := sim.ExpireOrders(ctx)
	if err != nil {
		errs = append(errs, err)
	}
	if err := sim.RefreshOrderCache(ctx); err != nil {
		errs = append(errs, err)
	}
	flushed := sim.Log.Flush()
	if err := sim.SnapshotInventory(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := sim.Store.Commit(ctx); err != nil {
		errs = append(errs, fmt.Errorf("commit: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	sim.Logger.WithFields(logrus.Fields{
		"step":    sim.StepCount,
		"expired": expired,
		"cached":  sim.Cache.Len(),
		"flushed": flushed,
	}).Infof("Maintenance at %s", sim.Clock.Format(time.RFC3339))
	return nil
}
