package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	tasksReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "action_critic_tasks_received_total",
			Help: "Total number of evaluation tasks received by the worker.",
		},
	)
	tasksSucceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "action_critic_tasks_succeeded_total",
			Help: "Total number of evaluation tasks successfully processed.",
		},
	)
	tasksFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "action_critic_tasks_failed_total",
			Help: "Total number of evaluation tasks failed, partitioned by reason.",
		},
		[]string{"reason"},
	)
	taskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "action_critic_task_duration_seconds",
			Help:    "Histogram of end-to-end task processing durations.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func metricsIncrementTasksReceived()            { tasksReceived.Inc() }
func metricsIncrementTasksSucceeded()           { tasksSucceeded.Inc() }
func metricsIncrementTaskFailed(reason string)  { tasksFailed.WithLabelValues(reason).Inc() }
func metricsRecordTaskDuration(d time.Duration) { taskDuration.Observe(d.Seconds()) }
