package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PlannerCollector holds the route planner metrics.
type PlannerCollector struct {
	Plans         *prometheus.CounterVec
	PlanDuration  prometheus.Histogram
	BatchDuration prometheus.Histogram
}

// NewPlannerCollector registers planner metrics against reg, defaulting to the
// global registry when reg is nil. Registering twice returns the existing
// collectors.
func NewPlannerCollector(reg prometheus.Registerer) (*PlannerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	plans, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_plans_total",
		Help: "Plans processed by the batch planner, labeled by outcome (routed or unrouted).",
	}, []string{"outcome"}), "planner_plans_total")
	if err != nil {
		return nil, err
	}

	planDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_plan_duration_seconds",
		Help:    "Time spent computing a single plan.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}), "planner_plan_duration_seconds")
	if err != nil {
		return nil, err
	}

	batchDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_batch_duration_seconds",
		Help:    "Wall time of a whole planning batch.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
	}), "planner_batch_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &PlannerCollector{Plans: plans, PlanDuration: planDuration, BatchDuration: batchDuration}, nil
}

// ObservePlan records one processed plan. Safe on a nil collector.
func (c *PlannerCollector) ObservePlan(routed bool, seconds float64) {
	if c == nil {
		return
	}
	outcome := "routed"
	if !routed {
		outcome = "unrouted"
	}
	c.Plans.WithLabelValues(outcome).Inc()
	c.PlanDuration.Observe(seconds)
}

func (c *PlannerCollector) ObserveBatch(seconds float64) {
	if c == nil {
		return
	}
	c.BatchDuration.Observe(seconds)
}

// SimCollector holds the agent simulation metrics.
type SimCollector struct {
	Ticks        prometheus.Counter
	Active       prometheus.Gauge
	Arrived      prometheus.Gauge
	TickDuration prometheus.Histogram
}

func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sim_ticks_total",
		Help: "Simulation ticks completed.",
	}), "sim_ticks_total")
	if err != nil {
		return nil, err
	}
	active, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_active_agents",
		Help: "Agents that moved during the last tick.",
	}), "sim_active_agents")
	if err != nil {
		return nil, err
	}
	arrived, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_arrived_agents",
		Help: "Agents that have exhausted their route.",
	}), "sim_arrived_agents")
	if err != nil {
		return nil, err
	}
	tickDuration, err := registerHistogram(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sim_tick_duration_seconds",
		Help:    "Wall time of one simulation tick.",
		Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
	}), "sim_tick_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &SimCollector{Ticks: ticks, Active: active, Arrived: arrived, TickDuration: tickDuration}, nil
}

// ObserveTick records the outcome of one tick. Safe on a nil collector.
func (c *SimCollector) ObserveTick(active, arrived int, seconds float64) {
	if c == nil {
		return
	}
	c.Ticks.Inc()
	c.Active.Set(float64(active))
	c.Arrived.Set(float64(arrived))
	c.TickDuration.Observe(seconds)
}

// Handler exposes gatherer on /metrics, defaulting to the global gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerCounter(reg prometheus.Registerer, c prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return c, nil
}

func registerHistogram(reg prometheus.Registerer, h prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return h, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
