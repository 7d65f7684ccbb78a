package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "foilscan"

// Block outcomes recorded by the collector.
const (
	OutcomeShort     = "short"
	OutcomeDuplicate = "duplicate"
	OutcomeAnomaly   = "anomaly"
	OutcomeDropped   = "dropped"
	OutcomeRetained  = "retained"
)

// Recorder owns the registry and the collectors registered in it.
// All methods are safe on a nil *Recorder, which records nothing.
type Recorder struct {
	registry *prometheus.Registry

	blocks       *prometheus.CounterVec
	scrollPasses *prometheus.CounterVec
	runs         *prometheus.CounterVec
	runDuration  *prometheus.GaugeVec
	lastPosts    *prometheus.GaugeVec
}

// NewRecorder creates a Recorder with a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "content_blocks_total",
			Help:      "Content blocks received by the collector, by outcome.",
		}, []string{"surface", "outcome"}),
		scrollPasses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scroll_passes_total",
			Help:      "Scroll passes performed by the discovery engine.",
		}, []string{"surface"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs, by status.",
		}, []string{"surface", "status"}),
		runDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the most recent run.",
		}, []string{"surface"}),
		lastPosts: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_posts",
			Help:      "Qualifying posts collected by the most recent run.",
		}, []string{"surface"}),
	}
	r.registry.MustRegister(r.blocks, r.scrollPasses, r.runs, r.runDuration, r.lastPosts)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Block counts one content block with the given outcome.
func (r *Recorder) Block(surface, outcome string) {
	if r == nil {
		return
	}
	r.blocks.WithLabelValues(surface, outcome).Inc()
}

// ScrollPass counts one scroll pass.
func (r *Recorder) ScrollPass(surface string) {
	if r == nil {
		return
	}
	r.scrollPasses.WithLabelValues(surface).Inc()
}

// RunFinished records the outcome of a run.
func (r *Recorder) RunFinished(surface, status string, posts int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(surface, status).Inc()
	r.runDuration.WithLabelValues(surface).Set(elapsed.Seconds())
	r.lastPosts.WithLabelValues(surface).Set(float64(posts))
}

// WriteTextfile writes the registry in the text exposition format.
// The file is replaced atomically, as the node exporter expects.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
