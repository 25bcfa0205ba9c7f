// Package usage records, stores and summarizes expansion usage.
package usage

import (
	"net/http"
	"time"

	"github.com/dukex/pcp/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes expansion and workflow counters on a dedicated registry.
type Metrics struct {
	registry     *prometheus.Registry
	expansions   *prometheus.CounterVec
	latency      prometheus.Histogram
	workflowRuns *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{
		registry: registry,
		expansions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcp_expansions_total",
				Help: "Prompt expansions by prompt and status",
			},
			[]string{"prompt", "status"},
		),
		latency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pcp_expansion_latency_seconds",
				Help:    "Time spent expanding a prompt",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			},
		),
		workflowRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pcp_workflow_runs_total",
				Help: "Workflow runs by final status",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(m.expansions, m.latency, m.workflowRuns)

	return m
}

// ObserveExpansion counts one expansion.
func (m *Metrics) ObserveExpansion(record *models.UsageRecord) {
	status := "success"
	if !record.Success {
		status = "error"
	}

	m.expansions.WithLabelValues(record.PromptName, status).Inc()
	m.latency.Observe((time.Duration(record.LatencyMS) * time.Millisecond).Seconds())
}

// ObserveWorkflowRun counts one finished workflow run.
func (m *Metrics) ObserveWorkflowRun(status string) {
	m.workflowRuns.WithLabelValues(status).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
