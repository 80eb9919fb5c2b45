// Package metrics provides Prometheus metrics for the meetings service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "minutes"

// Metrics holds all Prometheus metrics for the service
type Metrics struct {
	// Processing metrics
	ProcessingRuns     *prometheus.CounterVec
	ProcessingActive   prometheus.Gauge
	ProcessingDuration prometheus.Histogram
	ProcessingRejected prometheus.Counter

	// Transcription metrics
	Transcriptions *prometheus.CounterVec

	// Event metrics
	EventsPublished *prometheus.CounterVec
	PublishLatency  prometheus.Histogram

	// Question metrics
	Questions *prometheus.CounterVec
}

// Default is registered with the global Prometheus registry
var Default = New(prometheus.DefaultRegisterer)

// New creates the metrics and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ProcessingRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processing_runs_total",
			Help:      "Total number of meeting processing runs by result",
		}, []string{"result"}),
		ProcessingActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "processing_active",
			Help:      "Number of processing runs currently in flight",
		}),
		ProcessingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "processing_duration_seconds",
			Help:      "Duration of meeting processing runs in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
		ProcessingRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processing_rejected_total",
			Help:      "Processing requests refused because a run was already in flight",
		}),
		Transcriptions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transcriptions_total",
			Help:      "Artifact transcription attempts by kind and result",
		}, []string{"kind", "result"}),
		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Events published by topic and result",
		}, []string{"topic", "result"}),
		PublishLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_publish_latency_seconds",
			Help:      "Latency of event publishing in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		Questions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions asked about meetings by result",
		}, []string{"result"}),
	}
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordRun records a finished processing run
func (m *Metrics) RecordRun(err error, seconds float64) {
	m.ProcessingRuns.WithLabelValues(result(err)).Inc()
	m.ProcessingDuration.Observe(seconds)
}

// RecordTranscription records one artifact transcription attempt
func (m *Metrics) RecordTranscription(kind string, failed bool) {
	status := "success"
	if failed {
		status = "failed"
	}
	m.Transcriptions.WithLabelValues(kind, status).Inc()
}

// RecordPublish records an event publish attempt
func (m *Metrics) RecordPublish(topic string, err error, seconds float64) {
	m.EventsPublished.WithLabelValues(topic, result(err)).Inc()
	m.PublishLatency.Observe(seconds)
}

// RecordQuestion records a question and whether the model answered it
func (m *Metrics) RecordQuestion(answered bool) {
	status := "answered"
	if !answered {
		status = "unanswered"
	}
	m.Questions.WithLabelValues(status).Inc()
}
