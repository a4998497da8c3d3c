// sim/simulator.go
package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/supplychain-sim/supplychain-sim/sim/catalog"
	"github.com/supplychain-sim/supplychain-sim/sim/store"
	"github.com/supplychain-sim/supplychain-sim/sim/trace"
)

// Simulator is the explicit simulation context: clock, cache, buffers, RNG,
// store and catalog. Every step function receives it; nothing is global, so
// independent instances can run side by side in tests.
type Simulator struct {
	// Clock is the simulated time, advanced only by Step.
	Clock     time.Time
	StepCount int
	Config    Config
	Catalog   *catalog.Catalog
	Store     store.Store
	RNG       *PartitionedRNG
	// Cache holds open order ids as of the last maintenance pass.
	Cache   *OrderCache
	Log     *trace.Log
	Metrics *Metrics
	Logger  *logrus.Entry

	events  []EventSpec
	weights []float64
}

// NewSimulator wires a simulator at the catalog's start time. The store must
// already hold the schema and initial inventory.
func NewSimulator(cfg Config, cat *catalog.Catalog, st store.Store, rng *PartitionedRNG) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if cat == nil {
		return nil, fmt.Errorf("catalog is required")
	}
	if st == nil {
		return nil, fmt.Errorf("store is required")
	}
	if rng == nil {
		return nil, fmt.Errorf("rng is required")
	}
	s := &Simulator{
		Clock:   cat.Start,
		Config:  cfg,
		Catalog: cat,
		Store:   st,
		RNG:     rng,
		Cache:   &OrderCache{},
		Log:     trace.NewLog(),
		Metrics: NewMetrics(),
		Logger:  logrus.NewEntry(logrus.StandardLogger()),
	}
	if err := s.SetEventTable(EventTable(cfg.EventWeights)); err != nil {
		return nil, err
	}
	return s, nil
}

// SetEventTable replaces the step event table.
func (sim *Simulator) SetEventTable(events []EventSpec) error {
	if err := validateEventTable(events); err != nil {
		return err
	}
	sim.events = events
	sim.weights = make([]float64, len(events))
	for i, e := range events {
		sim.weights[i] = e.Weight
	}
	return nil
}

// AdvanceClock moves the clock forward by a uniform number of whole minutes.
func (sim *Simulator) AdvanceClock() {
	rng := sim.RNG.ForSubsystem(SubsystemClock)
	minutes := randInRange(rng.Intn, sim.Config.StepMinutes)
	sim.Clock = sim.Clock.Add(time.Duration(minutes) * time.Minute)
}

// Step runs one iteration: advance the clock, then either run maintenance
// (every MaintenanceInterval steps) or dispatch one weighted-random event.
//
// A fault inside maintenance or the event handler is logged and counted but
// never stops the run; writes the step made before the fault are kept.
func (sim *Simulator) Step(ctx context.Context) {
	sim.StepCount++
	sim.Metrics.Steps.Inc()
	sim.AdvanceClock()

	if sim.StepCount%sim.Config.MaintenanceInterval == 0 {
		if err := sim.Maintain(ctx); err != nil {
			sim.Metrics.StepErrors.WithLabelValues("maintenance").Inc()
			sim.Logger.WithFields(logrus.Fields{
				"step":  sim.StepCount,
				"clock": sim.Clock,
			}).Errorf("Error during maintenance: %v", err)
		}
		return
	}

	ev := sim.events[WeightedIndex(sim.RNG.ForSubsystem(SubsystemEvents), sim.weights)]
	sim.Metrics.Events.WithLabelValues(string(ev.Kind)).Inc()
	sim.Logger.Debugf("[step %07d] %s at %s", sim.StepCount, ev.Kind, sim.Clock.Format(time.RFC3339))
	if err := ev.Handler(ctx, sim); err != nil {
		sim.Metrics.StepErrors.WithLabelValues(string(ev.Kind)).Inc()
		sim.Logger.WithFields(logrus.Fields{
			"step":  sim.StepCount,
			"event": ev.Kind,
			"clock": sim.Clock,
		}).Errorf("Error during %s: %v", ev.Kind, err)
	}
}

// Run executes Config.Steps steps, then commits and flushes the remaining
// fulfillment records. Only the final commit can fail the run.
func (sim *Simulator) Run(ctx context.Context) error {
	sim.Logger.Infof("Starting simulation at %s with %d steps...",
		sim.Clock.Format("2006-01-02"), sim.Config.Steps)

	for i := 0; i < sim.Config.Steps; i++ {
		sim.Step(ctx)
	}

	if err := sim.Store.Commit(ctx); err != nil {
		return fmt.Errorf("final commit: %w", err)
	}
	sim.Log.Flush()
	sim.Logger.Infof("Simulation completed at %s.", sim.Clock.Format("2006-01-02"))
	return nil
}
