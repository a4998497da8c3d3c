package sim

import "fmt"

// EventWeights holds the relative selection weight of each step event.
type EventWeights struct {
	CreateOrder  float64 `yaml:"create_order"`
	FulfillOrder float64 `yaml:"fulfill_order"`
	Restock      float64 `yaml:"restock"`
	Idle         float64 `yaml:"idle"`
}

// IntRange is an inclusive [Min, Max] range.
type IntRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Config groups the engine's tunables. Zero values are not meaningful; start
// from DefaultConfig.
type Config struct {
	Steps               int          `yaml:"steps"`                // number of simulated steps
	MaintenanceInterval int          `yaml:"maintenance_interval"` // steps between maintenance passes
	ExpirationDays      int          `yaml:"expiration_days"`      // order age at which open orders expire
	RestockBase         int64        `yaml:"restock_base"`         // base unit scaled by item restock weight
	ReorderPoint        int64        `yaml:"reorder_point"`        // initial reorder threshold per inventory row
	StepMinutes         IntRange     `yaml:"step_minutes"`         // clock advance per step
	LinesPerOrder       IntRange     `yaml:"lines_per_order"`      // distinct items per new order
	LineQuantity        IntRange     `yaml:"line_quantity"`        // requested units per line
	EventWeights        EventWeights `yaml:"event_weights"`
}

// DefaultConfig returns the calibrated defaults.
func DefaultConfig() Config {
	return Config{
		Steps:               100000,
		MaintenanceInterval: 100,
		ExpirationDays:      14,
		RestockBase:         10,
		ReorderPoint:        10,
		StepMinutes:         IntRange{Min: 1, Max: 15},
		LinesPerOrder:       IntRange{Min: 1, Max: 5},
		LineQuantity:        IntRange{Min: 1, Max: 5},
		EventWeights: EventWeights{
			CreateOrder:  0.20,
			FulfillOrder: 0.65,
			Restock:      0.05,
			Idle:         0.10,
		},
	}
}

// Validate checks ranges and weights.
func (c Config) Validate() error {
	if c.Steps < 0 {
		return fmt.Errorf("steps must be non-negative, got %d", c.Steps)
	}
	if c.MaintenanceInterval <= 0 {
		return fmt.Errorf("maintenance_interval must be positive, got %d", c.MaintenanceInterval)
	}
	if c.ExpirationDays <= 0 {
		return fmt.Errorf("expiration_days must be positive, got %d", c.ExpirationDays)
	}
	if c.RestockBase < 0 {
		return fmt.Errorf("restock_base must be non-negative, got %d", c.RestockBase)
	}
	if c.ReorderPoint < 0 {
		return fmt.Errorf("reorder_point must be non-negative, got %d", c.ReorderPoint)
	}
	for name, r := range map[string]IntRange{
		"step_minutes":    c.StepMinutes,
		"lines_per_order": c.LinesPerOrder,
		"line_quantity":   c.LineQuantity,
	} {
		if r.Min < 1 || r.Max < r.Min {
			return fmt.Errorf("%s must satisfy 1 <= min <= max, got [%d, %d]", name, r.Min, r.Max)
		}
	}
	w := c.EventWeights
	for name, v := range map[string]float64{
		"create_order":  w.CreateOrder,
		"fulfill_order": w.FulfillOrder,
		"restock":       w.Restock,
		"idle":          w.Idle,
	} {
		if v < 0 {
			return fmt.Errorf("event weight %s must be non-negative, got %f", name, v)
		}
	}
	if w.CreateOrder+w.FulfillOrder+w.Restock+w.Idle <= 0 {
		return fmt.Errorf("event weights must not all be zero")
	}
	return nil
}

// randInRange draws uniformly from the inclusive range.
func randInRange(intn func(int) int, r IntRange) int {
	return r.Min + intn(r.Max-r.Min+1)
}
