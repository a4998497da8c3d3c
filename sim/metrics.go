// Tracks run-wide counters: dispatched events, fulfillment outcomes, units
// moved, expirations and step errors.

package sim

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
)

const metricsNamespace = "supplychain_sim"

// Metrics aggregates statistics about the simulation for final reporting.
// Each Simulator owns a private registry so parallel instances never share
// counters.
type Metrics struct {
	registry *prometheus.Registry

	Steps          prometheus.Counter
	Events         *prometheus.CounterVec // by event kind
	StepErrors     *prometheus.CounterVec // by event kind
	OrdersCreated  prometheus.Counter
	LinesCreated   prometheus.Counter
	Fulfillments   *prometheus.CounterVec // by outcome: "success" or failure reason
	UnitsFulfilled prometheus.Counter
	FulfilledValue prometheus.Counter // Σ units × unit price
	UnitsRestocked prometheus.Counter
	OrdersExpired  *prometheus.CounterVec // by resulting status
	CacheSize      prometheus.Gauge
}

// NewMetrics creates and registers all counters on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "steps_total",
			Help: "Simulated steps executed.",
		}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "events_total",
			Help: "Events dispatched, by kind.",
		}, []string{"kind"}),
		StepErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "step_errors_total",
			Help: "Faults caught at the step boundary, by event kind.",
		}, []string{"kind"}),
		OrdersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "orders_created_total",
			Help: "Orders created.",
		}),
		LinesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "order_lines_created_total",
			Help: "Order lines created.",
		}),
		Fulfillments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "fulfillment_attempts_total",
			Help: "Fulfillment attempts, by outcome.",
		}, []string{"outcome"}),
		UnitsFulfilled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "units_fulfilled_total",
			Help: "Units moved from inventory to order lines.",
		}),
		FulfilledValue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "fulfilled_value_total",
			Help: "Value of fulfilled units at item unit price.",
		}),
		UnitsRestocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "units_restocked_total",
			Help: "Units added to inventory by restocking.",
		}),
		OrdersExpired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "orders_expired_total",
			Help: "Orders reclassified by the expiration pass, by resulting status.",
		}, []string{"status"}),
		CacheSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Name: "unfulfilled_cache_size",
			Help: "Order ids in the unfulfilled-order cache after the last refresh.",
		}),
	}
	m.registry.MustRegister(
		m.Steps, m.Events, m.StepErrors, m.OrdersCreated, m.LinesCreated,
		m.Fulfillments, m.UnitsFulfilled, m.FulfilledValue, m.UnitsRestocked,
		m.OrdersExpired, m.CacheSize,
	)
	return m
}

// Registry exposes the registry for scraping or inspection.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveFulfilledValue adds qty × unitPrice to the fulfilled value counter.
func (m *Metrics) ObserveFulfilledValue(qty int64, unitPrice decimal.Decimal) {
	m.FulfilledValue.Add(unitPrice.Mul(decimal.NewFromInt(qty)).InexactFloat64())
}

// Print writes every non-empty series, sorted by name, one per line.
func (m *Metrics) Print(w io.Writer) error {
	families, err := m.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	fmt.Fprintln(w, "=== Simulation Metrics ===")
	var lines []string
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			lines = append(lines, fmt.Sprintf("%-60s : %s",
				mf.GetName()+formatLabels(metric.GetLabel()), formatValue(mf.GetType(), metric)))
		}
	}
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
	return nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	parts := make([]string, 0, len(labels))
	for _, lp := range labels {
		parts = append(parts, fmt.Sprintf("%s=%q", lp.GetName(), lp.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func formatValue(t dto.MetricType, metric *dto.Metric) string {
	switch t {
	case dto.MetricType_COUNTER:
		return fmt.Sprintf("%.2f", metric.GetCounter().GetValue())
	case dto.MetricType_GAUGE:
		return fmt.Sprintf("%.2f", metric.GetGauge().GetValue())
	default:
		return "?"
	}
}
