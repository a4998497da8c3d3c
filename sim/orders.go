package sim

import (
	"context"
	"fmt"
)

// CreateOrder places an order for a random customer with between
// LinesPerOrder.Min and LinesPerOrder.Max distinct random items. Each line is
// assigned a uniformly random eligible supplier; an item no supplier can
// serve is skipped. Returns the new order id.
func (sim *Simulator) CreateOrder(ctx context.Context) (int64, error) {
	rng := sim.RNG.ForSubsystem(SubsystemOrders)
	customerID := UniformChoice(rng, sim.Catalog.CustomerIDs())

	var orderID int64
	if _, err := sim.Store.QueryOne(ctx, &orderID,
		`INSERT INTO orders (customer_id, order_date, order_status) VALUES (?, ?, ?) RETURNING order_id`,
		customerID, sim.Clock, string(StatusUnfulfilled)); err != nil {
		return 0, fmt.Errorf("insert order: %w", err)
	}
	sim.Metrics.OrdersCreated.Inc()

	itemIDs := sim.Catalog.ItemIDs()
	k := min(randInRange(rng.Intn, sim.Config.LinesPerOrder), len(itemIDs))
	for _, idx := range rng.Perm(len(itemIDs))[:k] {
		itemID := itemIDs[idx]
		eligible := sim.Catalog.EligibleSuppliers(itemID)
		if len(eligible) == 0 {
			continue
		}
		supplierID := UniformChoice(rng, eligible)
		qty := randInRange(rng.Intn, sim.Config.LineQuantity)
		if err := sim.Store.Execute(ctx,
			`INSERT INTO order_items (order_id, item_id, supplier_id, quantity, fulfilled_quantity, fulfilled_date)
			 VALUES (?, ?, ?, ?, 0, NULL)`,
			orderID, itemID, supplierID, qty); err != nil {
			return orderID, fmt.Errorf("insert line for order %d: %w", orderID, err)
		}
		sim.Metrics.LinesCreated.Inc()
	}
	sim.Logger.Debugf("created order %d for customer %d", orderID, customerID)
	return orderID, nil
}
