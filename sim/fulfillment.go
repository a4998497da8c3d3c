package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/supplychain-sim/supplychain-sim/sim/trace"
)

// OrderLine is an open order line together with the parent order's creation
// time, read once by candidate selection and threaded into
// AttemptFulfillment so the attempt never re-reads it.
type OrderLine struct {
	LineID     int64     `db:"order_item_id"`
	OrderID    int64     `db:"order_id"`
	ItemID     int64     `db:"item_id"`
	SupplierID int64     `db:"supplier_id"`
	Requested  int64     `db:"quantity"`
	Fulfilled  int64     `db:"fulfilled_quantity"`
	OrderDate  time.Time `db:"order_date"`
}

// Remaining is the quantity still to fulfill.
func (l OrderLine) Remaining() int64 { return l.Requested - l.Fulfilled }

const openLinesQuery = `
	SELECT oi.order_item_id AS order_item_id, oi.order_id AS order_id, oi.item_id AS item_id,
	       oi.supplier_id AS supplier_id, oi.quantity AS quantity,
	       oi.fulfilled_quantity AS fulfilled_quantity, o.order_date AS order_date
	FROM order_items oi
	JOIN orders o ON o.order_id = oi.order_id
	WHERE oi.order_id = ? AND oi.fulfilled_quantity < oi.quantity
	ORDER BY oi.order_item_id`

// FulfillOrder picks a random cached order, then a random open line within
// it, and attempts to fulfill it. ok is false when there was nothing to
// attempt: an empty cache or an order with no open lines left.
func (sim *Simulator) FulfillOrder(ctx context.Context) (rec trace.FulfillmentRecord, ok bool, err error) {
	rng := sim.RNG.ForSubsystem(SubsystemFulfillment)
	orderID, found := sim.Cache.Pick(rng)
	if !found {
		return rec, false, nil
	}

	var lines []OrderLine
	if err := sim.Store.QueryAll(ctx, &lines, openLinesQuery, orderID); err != nil {
		return rec, false, fmt.Errorf("open lines for order %d: %w", orderID, err)
	}
	if len(lines) == 0 {
		return rec, false, nil
	}

	rec, err = sim.AttemptFulfillment(ctx, UniformChoice(rng, lines))
	if err != nil {
		return rec, false, err
	}
	sim.Log.RecordAttempt(rec)
	return rec, true, nil
}

// AttemptFulfillment tries to move min(on hand, remaining) units of the
// line's item from its supplier's inventory row onto the line.
//
// The attempt fails without side effects when a uniform draw falls below the
// combined supplier+item failure rate (a combined rate of 1 or more always
// fails), when the inventory row is missing, or when it is out of stock.
// Those outcomes are reported in the record; err is reserved for faults.
func (sim *Simulator) AttemptFulfillment(ctx context.Context, line OrderLine) (trace.FulfillmentRecord, error) {
	rec := trace.FulfillmentRecord{
		OrderID:             line.OrderID,
		ItemID:              line.ItemID,
		SupplierID:          line.SupplierID,
		RequestedQty:        line.Requested,
		PreviouslyFulfilled: line.Fulfilled,
		Timestamp:           sim.Clock,
	}
	remaining := line.Remaining()
	if remaining <= 0 {
		return rec, fmt.Errorf("order line %d has nothing left to fulfill", line.LineID)
	}
	item, ok := sim.Catalog.Item(line.ItemID)
	if !ok {
		return rec, fmt.Errorf("order line %d references unknown item %d", line.LineID, line.ItemID)
	}
	supplier, ok := sim.Catalog.Supplier(line.SupplierID)
	if !ok {
		return rec, fmt.Errorf("order line %d references unknown supplier %d", line.LineID, line.SupplierID)
	}

	rng := sim.RNG.ForSubsystem(SubsystemFulfillment)
	if rng.Float64() < supplier.FailureRate+item.FailureRate {
		return sim.failed(rec, trace.ReasonUnreliableSupplier), nil
	}

	var onHand int64
	found, err := sim.Store.QueryOne(ctx, &onHand,
		`SELECT quantity_on_hand FROM inventory WHERE item_id = ? AND supplier_id = ?`,
		line.ItemID, line.SupplierID)
	if err != nil {
		return rec, fmt.Errorf("read inventory (%d, %d): %w", line.ItemID, line.SupplierID, err)
	}
	if !found {
		return sim.failed(rec, trace.ReasonNoInventoryEntry), nil
	}
	if onHand <= 0 {
		return sim.failed(rec, trace.ReasonStockout), nil
	}

	qty := min(onHand, remaining)
	if err := sim.Store.Execute(ctx,
		`UPDATE inventory SET quantity_on_hand = quantity_on_hand - ?, last_updated = ?
		 WHERE item_id = ? AND supplier_id = ?`,
		qty, sim.Clock, line.ItemID, line.SupplierID); err != nil {
		return rec, fmt.Errorf("decrement inventory (%d, %d): %w", line.ItemID, line.SupplierID, err)
	}
	if err := sim.Store.Execute(ctx,
		`UPDATE order_items SET fulfilled_quantity = fulfilled_quantity + ?, fulfilled_date = ?
		 WHERE order_item_id = ?`,
		qty, sim.Clock, line.LineID); err != nil {
		return rec, fmt.Errorf("increment line %d: %w", line.LineID, err)
	}
	if _, err := sim.RecomputeOrderStatus(ctx, line.OrderID, line.OrderDate); err != nil {
		return rec, err
	}

	rec.NewlyFulfilled = qty
	rec.Success = true
	sim.Metrics.Fulfillments.WithLabelValues("success").Inc()
	sim.Metrics.UnitsFulfilled.Add(float64(qty))
	sim.Metrics.ObserveFulfilledValue(qty, item.UnitPrice)
	return rec, nil
}

func (sim *Simulator) failed(rec trace.FulfillmentRecord, reason trace.FailureReason) trace.FulfillmentRecord {
	rec.FailureReason = reason
	sim.Metrics.Fulfillments.WithLabelValues(string(reason)).Inc()
	return rec
}
