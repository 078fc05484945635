// Package metrics counts per-file outcomes and stage durations with
// Prometheus collectors on a private registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomeProcessed = "processed"
	OutcomeSkipped   = "skipped"
	OutcomeMissing   = "missing"
)

// Recorder receives pipeline observations.
type Recorder interface {
	File(stage, outcome string)
	StageDuration(stage string, d time.Duration)
}

// Prometheus implements Recorder.
type Prometheus struct {
	registry *prometheus.Registry
	files    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// New registers the pipeline collectors on a fresh registry.
func New() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "corpusprep_files_total",
			Help: "Files handled per stage, by outcome.",
		}, []string{"stage", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "corpusprep_stage_duration_seconds",
			Help:    "Wall time of each pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"stage"}),
	}
	p.registry.MustRegister(p.files, p.duration)
	return p
}

func (p *Prometheus) File(stage, outcome string) {
	p.files.WithLabelValues(stage, outcome).Inc()
}

func (p *Prometheus) StageDuration(stage string, d time.Duration) {
	p.duration.WithLabelValues(stage).Observe(d.Seconds())
}

// Registry exposes the gatherer, e.g. for tests.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// WriteTextfile dumps the registry in the node-exporter textfile format.
// The write is atomic.
func (p *Prometheus) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.registry)
}

type nop struct{}

func (nop) File(string, string)                 {}
func (nop) StageDuration(string, time.Duration) {}

// Nop discards observations.
func Nop() Recorder { return nop{} }

// OrNop returns r, or Nop when r is nil.
func OrNop(r Recorder) Recorder {
	if r == nil {
		return Nop()
	}
	return r
}
