package sim

import (
	"context"
	"fmt"
	"math"
)

// RestockAmount is the number of units a restock adds to a row:
// floor(base × weight), capped so on-hand never exceeds maxQty.
// A row already at or above maxQty gets 0.
func RestockAmount(base int64, weight float64, onHand, maxQty int64) int64 {
	want := int64(math.Floor(float64(base) * weight))
	room := maxQty - onHand
	if room < 0 {
		room = 0
	}
	if want < 0 {
		want = 0
	}
	return min(want, room)
}

// RestockOutcome describes what a restock step did. Restocked is false when
// there were no low-stock rows or the computed amount was zero.
type RestockOutcome struct {
	ItemID     int64
	SupplierID int64
	Amount     int64
	Restocked  bool
}

type lowStockRow struct {
	ItemID     int64 `db:"item_id"`
	SupplierID int64 `db:"supplier_id"`
	OnHand     int64 `db:"quantity_on_hand"`
}

const lowStockQuery = `
	SELECT item_id, supplier_id, quantity_on_hand
	FROM inventory
	WHERE quantity_on_hand <= reorder_point
	ORDER BY item_id, supplier_id`

// RestockOneLowStockRow picks one inventory row at or below its reorder point,
// weighted by the item's restock weight, and tops it up by RestockAmount.
func (sim *Simulator) RestockOneLowStockRow(ctx context.Context) (RestockOutcome, error) {
	var rows []lowStockRow
	if err := sim.Store.QueryAll(ctx, &rows, lowStockQuery); err != nil {
		return RestockOutcome{}, fmt.Errorf("low stock rows: %w", err)
	}
	if len(rows) == 0 {
		return RestockOutcome{}, nil
	}

	weights := make([]float64, len(rows))
	total := 0.0
	for i, r := range rows {
		item, ok := sim.Catalog.Item(r.ItemID)
		if !ok {
			return RestockOutcome{}, fmt.Errorf("inventory row references unknown item %d", r.ItemID)
		}
		weights[i] = item.RestockWeight
		total += item.RestockWeight
	}

	rng := sim.RNG.ForSubsystem(SubsystemRestock)
	var row lowStockRow
	if total > 0 {
		row = WeightedChoice(rng, rows, weights)
	} else {
		row = UniformChoice(rng, rows)
	}

	supplier, ok := sim.Catalog.Supplier(row.SupplierID)
	if !ok {
		return RestockOutcome{}, fmt.Errorf("inventory row references unknown supplier %d", row.SupplierID)
	}
	item, _ := sim.Catalog.Item(row.ItemID)
	out := RestockOutcome{
		ItemID:     row.ItemID,
		SupplierID: row.SupplierID,
		Amount:     RestockAmount(sim.Config.RestockBase, item.RestockWeight, row.OnHand, supplier.MaxQuantity),
	}
	if out.Amount == 0 {
		return out, nil
	}

	if err := sim.Store.Execute(ctx,
		`UPDATE inventory SET quantity_on_hand = quantity_on_hand + ?, last_updated = ?
		 WHERE item_id = ? AND supplier_id = ?`,
		out.Amount, sim.Clock, row.ItemID, row.SupplierID); err != nil {
		return out, fmt.Errorf("restock (%d, %d): %w", row.ItemID, row.SupplierID, err)
	}
	out.Restocked = true
	sim.Metrics.UnitsRestocked.Add(float64(out.Amount))
	sim.Logger.Debugf("restocked item %d from supplier %d by %d", row.ItemID, row.SupplierID, out.Amount)
	return out, nil
}
