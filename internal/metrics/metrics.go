package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const Namespace = "shift"

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Recorder receives the outcome of every executed migration step
type Recorder interface {
	Step(direction string, version uint64, status string, took time.Duration)
	Current(version uint64)
}

type NullRecorder struct{}

func (NullRecorder) Step(string, uint64, string, time.Duration) {}

func (NullRecorder) Current(uint64) {}

// Collector keeps prometheus metrics of migration runs
type Collector struct {
	Steps          *prometheus.CounterVec
	StepDuration   *prometheus.HistogramVec
	CurrentVersion prometheus.Gauge
}

var _ Recorder = (*Collector)(nil)

func NewCollector() *Collector {
	return &Collector{
		Steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "migration_steps_total",
			Help:      "Total number of executed migration steps",
		}, []string{"direction", "version", "status"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "migration_step_duration_seconds",
			Help:      "Duration of migration steps in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"direction"}),
		CurrentVersion: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "current_version",
			Help:      "Schema version persisted after the last successful step",
		}),
	}
}

// Register adds every metric of the collector to the registerer
func (c *Collector) Register(r prometheus.Registerer) error {
	for _, m := range []prometheus.Collector{c.Steps, c.StepDuration, c.CurrentVersion} {
		if err := r.Register(m); err != nil {
			return err
		}
	}

	return nil
}

func (c *Collector) Step(direction string, version uint64, status string, took time.Duration) {
	c.Steps.WithLabelValues(direction, strconv.FormatUint(version, 10), status).Inc()
	c.StepDuration.WithLabelValues(direction).Observe(took.Seconds())
}

func (c *Collector) Current(version uint64) {
	c.CurrentVersion.Set(float64(version))
}
