package sim

import (
	"context"
	"fmt"
)

// EventKind tags the event dispatched by a step.
type EventKind string

const (
	EventCreateOrder  EventKind = "create_order"
	EventFulfillOrder EventKind = "fulfill_order"
	EventRestock      EventKind = "restock"
	EventIdle         EventKind = "idle"
)

// EventHandler advances simulation state for one dispatched event.
// Expected business outcomes (stockouts, empty candidate sets) are not
// errors; only faults such as storage failures are returned.
type EventHandler func(ctx context.Context, sim *Simulator) error

// EventSpec is one row of the step event table.
type EventSpec struct {
	Kind    EventKind
	Weight  float64
	Handler EventHandler
}

// EventTable builds the declarative (kind → weight → handler) table used by
// every step. Adding an event type means adding a row here; the selection
// mechanism does not change.
func EventTable(w EventWeights) []EventSpec {
	return []EventSpec{
		{Kind: EventCreateOrder, Weight: w.CreateOrder, Handler: handleCreateOrder},
		{Kind: EventFulfillOrder, Weight: w.FulfillOrder, Handler: handleFulfillOrder},
		{Kind: EventRestock, Weight: w.Restock, Handler: handleRestock},
		{Kind: EventIdle, Weight: w.Idle, Handler: handleIdle},
	}
}

func handleCreateOrder(ctx context.Context, sim *Simulator) error {
	_, err := sim.CreateOrder(ctx)
	return err
}

func handleFulfillOrder(ctx context.Context, sim *Simulator) error {
	_, _, err := sim.FulfillOrder(ctx)
	return err
}

func handleRestock(ctx context.Context, sim *Simulator) error {
	_, err := sim.RestockOneLowStockRow(ctx)
	return err
}

func handleIdle(context.Context, *Simulator) error { return nil }

func validateEventTable(events []EventSpec) error {
	if len(events) == 0 {
		return fmt.Errorf("event table is empty")
	}
	total := 0.0
	seen := make(map[EventKind]bool, len(events))
	for _, e := range events {
		if e.Handler == nil {
			return fmt.Errorf("event %q has no handler", e.Kind)
		}
		if e.Weight < 0 {
			return fmt.Errorf("event %q has negative weight %f", e.Kind, e.Weight)
		}
		if seen[e.Kind] {
			return fmt.Errorf("event %q listed twice", e.Kind)
		}
		seen[e.Kind] = true
		total += e.Weight
	}
	if total <= 0 {
		return fmt.Errorf("event weights must not all be zero")
	}
	return nil
}
