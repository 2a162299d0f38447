package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics are the run counters on a private registry. A nil *Metrics records
// nothing.
type Metrics struct {
	registry     *prometheus.Registry
	steps        prometheus.Counter
	simTime      prometheus.Gauge
	dt           prometheus.Gauge
	invalidCells prometheus.Counter
	wallSolver   prometheus.Counter
	snapshots    prometheus.Counter
	stepDuration prometheus.Histogram
	residuals    *prometheus.GaugeVec
	slotNames    []string
}

// NewMetrics registers the run metrics. slotNames label the residual of each
// conserved quantity.
func NewMetrics(namespace string, slotNames []string) (m *Metrics) {
	m = &Metrics{
		registry: prometheus.NewRegistry(),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "steps_total", Help: "Completed time steps"}),
		simTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "sim_time_seconds", Help: "Simulation time"}),
		dt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "dt_seconds", Help: "Current time step"}),
		invalidCells: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "invalid_cells_total", Help: "Cells that failed to decode"}),
		wallSolver: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "wall_solver_nonconverged_total",
			Help: "Wall pressure solves that hit their iteration limit"}),
		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "snapshots_total", Help: "Snapshots written"}),
		stepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "step_duration_seconds", Help: "Wall clock time per step",
			Buckets: prometheus.ExponentialBuckets(1e-4, 4, 10)}),
		residuals: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "residual", Help: "Maximum |dU/dt| per conserved quantity"},
			[]string{"quantity"}),
		slotNames: slotNames,
	}
	m.registry.MustRegister(m.steps, m.simTime, m.dt, m.invalidCells, m.wallSolver, m.snapshots,
		m.stepDuration, m.residuals)
	return
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) StepDone(elapsed time.Duration, t, dt float64) {
	if m == nil {
		return
	}
	m.steps.Inc()
	m.simTime.Set(t)
	m.dt.Set(dt)
	m.stepDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) InvalidCells(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.invalidCells.Add(float64(n))
}

func (m *Metrics) WallNonConverged(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.wallSolver.Add(float64(n))
}

func (m *Metrics) SnapshotWritten() {
	if m == nil {
		return
	}
	m.snapshots.Inc()
}

func (m *Metrics) Residuals(res []float64) {
	if m == nil {
		return
	}
	for i, r := range res {
		if i < len(m.slotNames) {
			m.residuals.WithLabelValues(m.slotNames[i]).Set(r)
		}
	}
}
