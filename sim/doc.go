// Package sim provides the step-driven supply-chain simulation engine.
//
// # Reading Guide
//
// Start with these files to understand the simulation kernel:
//   - simulator.go: the Simulator context, the step loop and clock advance
//   - event.go: the (kind, weight, handler) event table dispatched by each step
//   - order_status.go: the order lifecycle as a pure function of line counts and age
//
// Event handlers live in orders.go (create), fulfillment.go (fulfill) and
// restock.go (restock). maintenance.go holds the periodic pass that expires
// aged orders, refreshes the order cache, flushes the fulfillment buffer,
// snapshots inventory and commits.
//
// # Architecture
//
// The engine owns no storage or reference data of its own:
//   - sim/catalog/: suppliers, items, customers and item eligibility
//   - sim/store/: the relational store (SQLite or PostgreSQL)
//   - sim/trace/: fulfillment and inventory logs and their CSV export
//
// All randomness flows through PartitionedRNG so a run is reproducible from
// its seed.
package sim
