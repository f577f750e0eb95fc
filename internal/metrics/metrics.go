// Package metrics exposes Prometheus counters for reminder generation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder records generation metrics. A nil *Recorder is valid and
// records nothing.
type Recorder struct {
	generated      *prometheus.CounterVec
	vehicleErrors  *prometheus.CounterVec
	malformedRules prometheus.Counter
	ruleFailures   prometheus.Counter
	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
}

// New registers the generation metrics on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		generated: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleet",
			Subsystem: "reminders",
			Name:      "generated_total",
			Help:      "Reminders created, by trigger type.",
		}, []string{"trigger_type"}),
		vehicleErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleet",
			Subsystem: "reminders",
			Name:      "vehicle_errors_total",
			Help:      "Store failures while processing a single vehicle, by stage.",
		}, []string{"stage"}),
		malformedRules: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fleet",
			Subsystem: "reminders",
			Name:      "malformed_rules_total",
			Help:      "Rules skipped because their trigger or maintenance type could not be resolved.",
		}),
		ruleFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fleet",
			Subsystem: "reminders",
			Name:      "rule_failures_total",
			Help:      "Rules whose processing failed during a generation pass.",
		}),
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fleet",
			Subsystem: "reminders",
			Name:      "runs_total",
			Help:      "Generation passes, by outcome.",
		}, []string{"outcome"}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fleet",
			Subsystem: "reminders",
			Name:      "run_duration_seconds",
			Help:      "Duration of generation passes.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

func (r *Recorder) ReminderGenerated(triggerType string) {
	if r == nil {
		return
	}
	r.generated.WithLabelValues(triggerType).Inc()
}

func (r *Recorder) VehicleError(stage string) {
	if r == nil {
		return
	}
	r.vehicleErrors.WithLabelValues(stage).Inc()
}

func (r *Recorder) MalformedRule() {
	if r == nil {
		return
	}
	r.malformedRules.Inc()
}

func (r *Recorder) RuleFailed() {
	if r == nil {
		return
	}
	r.ruleFailures.Inc()
}

// RunFinished records a pass outcome: "ok", "partial", "locked" or "error".
func (r *Recorder) RunFinished(outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.runs.WithLabelValues(outcome).Inc()
	r.runDuration.Observe(d.Seconds())
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
