// Package telemetry records critic activity: one structured log line plus
// prometheus series per evaluation. Sinks are best-effort collaborators;
// callers are expected to swallow their errors.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Sink receives evaluation and lifecycle events from the critic.
type Sink interface {
	LogEvaluation(slotID, question string, ratio, pYes, pNo float64, duration time.Duration) error
	LogInstanceCreated(slotID, component string, ok bool, errMsg string) error
}

// Recorder is the production Sink: zerolog for the event stream and
// prometheus for aggregates.
type Recorder struct {
	log zerolog.Logger

	evaluations      prometheus.Counter
	evaluationRatio  prometheus.Histogram
	evaluationTime   prometheus.Histogram
	instancesCreated *prometheus.CounterVec
}

func NewRecorder(log zerolog.Logger, reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		log: log.With().Str("component", "telemetry").Logger(),
		evaluations: factory.NewCounter(prometheus.CounterOpts{
			Name: "critic_evaluations_total",
			Help: "Total number of yes/no evaluations performed by the critic.",
		}),
		evaluationRatio: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "critic_evaluation_ratio",
			Help:    "Distribution of yes-ratios returned by the critic.",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		evaluationTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "critic_evaluation_duration_seconds",
			Help:    "Histogram of constrained probability query durations.",
			Buckets: prometheus.DefBuckets,
		}),
		instancesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "critic_instances_created_total",
			Help: "Inference instance creation attempts, partitioned by outcome.",
		}, []string{"component", "status"}),
	}
}

func (r *Recorder) LogEvaluation(slotID, question string, ratio, pYes, pNo float64, duration time.Duration) error {
	r.evaluations.Inc()
	r.evaluationRatio.Observe(ratio)
	r.evaluationTime.Observe(duration.Seconds())
	r.log.Debug().
		Str("slot_id", slotID).
		Str("question", question).
		Float64("ratio", ratio).
		Float64("p_yes", pYes).
		Float64("p_no", pNo).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("evaluation")
	return nil
}

func (r *Recorder) LogInstanceCreated(slotID, component string, ok bool, errMsg string) error {
	status := "success"
	if !ok {
		status = "error"
	}
	r.instancesCreated.WithLabelValues(component, status).Inc()
	event := r.log.Info()
	if !ok {
		event = r.log.Error().Str("error", errMsg)
	}
	event.Str("slot_id", slotID).Str("for", component).Msg("instance creation")
	return nil
}
