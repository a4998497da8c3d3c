// Order lifecycle state machine.
// An order's status is a pure function of its line aggregate and its age; no
// transition history is kept, so recomputing with unchanged inputs is a no-op.

package sim

import (
	"context"
	"fmt"
	"time"
)

// OrderStatus is the lifecycle state stored in ORDERS.ORDER_STATUS.
type OrderStatus string

const (
	StatusUnfulfilled    OrderStatus = "unfulfilled"
	StatusPartial        OrderStatus = "partial"
	StatusFulfilled      OrderStatus = "fulfilled"
	StatusPartialExpired OrderStatus = "partial-expired"
	StatusExpired        OrderStatus = "expired"
)

// IsOpen reports whether an order with this status can still be fulfilled.
func (s OrderStatus) IsOpen() bool {
	return s == StatusUnfulfilled || s == StatusPartial
}

// LineCounts aggregates an order's lines by fulfillment progress.
type LineCounts struct {
	Unfulfilled int64 `db:"unfulfilled"` // lines with nothing fulfilled
	Fulfilled   int64 `db:"fulfilled"`   // lines fulfilled in full
	Total       int64 `db:"total"`
}

// ComputeOrderStatus applies the lifecycle rules in precedence order:
// expired, partial-expired, fulfilled, unfulfilled, partial.
// An order stays unfulfilled until at least one line is complete; partly
// filled lines alone do not make it partial.
func ComputeOrderStatus(c LineCounts, ageDays, thresholdDays int) OrderStatus {
	expired := ageDays >= thresholdDays
	switch {
	case expired && c.Unfulfilled == c.Total:
		return StatusExpired
	case expired:
		return StatusPartialExpired
	case c.Fulfilled == c.Total:
		return StatusFulfilled
	case c.Fulfilled == 0:
		return StatusUnfulfilled
	default:
		return StatusPartial
	}
}

// AgeDays counts whole calendar days between the creation date and now (UTC).
func AgeDays(createdAt, now time.Time) int {
	return int(startOfDay(now).Sub(startOfDay(createdAt)).Hours() / 24)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// expiryCutoff is the earliest creation time still inside the expiration
// window: orders created before it are at least thresholdDays old.
func expiryCutoff(now time.Time, thresholdDays int) time.Time {
	return startOfDay(now).AddDate(0, 0, -(thresholdDays - 1))
}

const lineCountsQuery = `
	SELECT
		CAST(COALESCE(SUM(CASE WHEN fulfilled_quantity = 0 THEN 1 ELSE 0 END), 0) AS BIGINT) AS unfulfilled,
		CAST(COALESCE(SUM(CASE WHEN fulfilled_quantity = quantity THEN 1 ELSE 0 END), 0) AS BIGINT) AS fulfilled,
		COUNT(*) AS total
	FROM order_items
	WHERE order_id = ?`

// RecomputeOrderStatus reads the order's line aggregate, applies
// ComputeOrderStatus at the current clock and writes the result back.
func (sim *Simulator) RecomputeOrderStatus(ctx context.Context, orderID int64, createdAt time.Time) (OrderStatus, error) {
	var counts LineCounts
	if _, err := sim.Store.QueryOne(ctx, &counts, lineCountsQuery, orderID); err != nil {
		return "", fmt.Errorf("line counts for order %d: %w", orderID, err)
	}
	status := ComputeOrderStatus(counts, AgeDays(createdAt, sim.Clock), sim.Config.ExpirationDays)
	if err := sim.Store.Execute(ctx,
		`UPDATE orders SET order_status = ? WHERE order_id = ?`, string(status), orderID); err != nil {
		return "", fmt.Errorf("update status for order %d: %w", orderID, err)
	}
	return status, nil
}
