package sweep

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mergeq-sim/mergeq-sim/sim"
)

// Metrics exposes sweep results as Prometheus collectors labelled by queue
// capacity. Observe is safe for concurrent use by trial workers.
type Metrics struct {
	registry *prometheus.Registry

	merged     *prometheus.CounterVec
	lost       *prometheus.CounterVec
	restarts   *prometheus.CounterVec
	rounds     *prometheus.CounterVec
	trials     prometheus.Counter
	throughput *prometheus.GaugeVec
	lossRate   *prometheus.GaugeVec
	meanWait   *prometheus.GaugeVec
	medianWait *prometheus.GaugeVec
	occupancy  *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on a private registry.
func NewMetrics() *Metrics {
	labels := []string{"capacity"}
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		merged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mergeq", Name: "merged_total", Help: "Jobs merged during the trial.",
		}, labels),
		lost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mergeq", Name: "lost_total", Help: "Jobs removed as the failure point during the trial.",
		}, labels),
		restarts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mergeq", Name: "restarts_total", Help: "Speculative builds discarded by cascading restarts.",
		}, labels),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mergeq", Name: "rounds_total", Help: "Rounds simulated during the trial.",
		}, labels),
		trials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mergeq", Name: "trials_total", Help: "Trials completed.",
		}),
		throughput: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mergeq", Name: "throughput_per_hour", Help: "Merges per simulated hour.",
		}, labels),
		lossRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mergeq", Name: "loss_rate_per_hour", Help: "Lost jobs per simulated hour.",
		}, labels),
		meanWait: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mergeq", Name: "mean_wait_minutes", Help: "Mean time from first admission to merge.",
		}, labels),
		medianWait: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mergeq", Name: "median_wait_minutes", Help: "Median time from first admission to merge.",
		}, labels),
		occupancy: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mergeq", Name: "mean_occupancy", Help: "Time-weighted mean number of resident jobs.",
		}, labels),
	}
	m.registry.MustRegister(m.merged, m.lost, m.restarts, m.rounds, m.trials,
		m.throughput, m.lossRate, m.meanWait, m.medianWait, m.occupancy)
	return m
}

// Observe records a finished trial.
func (m *Metrics) Observe(r *sim.TrialResult) {
	capacity := strconv.Itoa(r.Capacity)
	m.merged.WithLabelValues(capacity).Add(float64(r.Merged))
	m.lost.WithLabelValues(capacity).Add(float64(r.Lost))
	m.restarts.WithLabelValues(capacity).Add(float64(r.Restarts))
	m.rounds.WithLabelValues(capacity).Add(float64(r.Rounds))
	m.throughput.WithLabelValues(capacity).Set(r.Throughput)
	m.lossRate.WithLabelValues(capacity).Set(r.LossRate)
	m.meanWait.WithLabelValues(capacity).Set(r.MeanWait)
	m.medianWait.WithLabelValues(capacity).Set(r.MedianWait)
	m.occupancy.WithLabelValues(capacity).Set(r.MeanOccupancy)
	m.trials.Inc()
}

// Registry returns the registry holding the sweep collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the collectors to path in the Prometheus text format,
// suitable for the node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}
