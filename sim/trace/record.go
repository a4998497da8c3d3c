// Package trace provides the fulfillment attempt log and inventory snapshot
// history collected during a simulation run.
// This package has no dependencies on sim/; it stores pure data types.
package trace

import "time"

// FailureReason explains why a fulfillment attempt moved no units.
// The empty reason means the attempt succeeded.
type FailureReason string

const (
	ReasonNone               FailureReason = ""
	ReasonUnreliableSupplier FailureReason = "unreliable_supplier"
	ReasonNoInventoryEntry   FailureReason = "no_inventory_entry"
	ReasonStockout           FailureReason = "stockout"
)

// FulfillmentRecord captures a single fulfillment attempt against an order line.
type FulfillmentRecord struct {
	OrderID             int64
	ItemID              int64
	SupplierID          int64
	RequestedQty        int64 // units requested by the line
	PreviouslyFulfilled int64 // units fulfilled before this attempt
	NewlyFulfilled      int64 // units moved by this attempt; 0 on failure
	Success             bool
	FailureReason       FailureReason
	Timestamp           time.Time
}

// InventorySnapshot captures one inventory row at a maintenance pass.
type InventorySnapshot struct {
	Timestamp         time.Time
	ItemID            int64
	SupplierID        int64
	QuantityOnHand    int64
	RestockWeight     float64
	FulfillmentWeight float64
	BacklogQty        int64 // outstanding requested − fulfilled over open lines for the pair
}
