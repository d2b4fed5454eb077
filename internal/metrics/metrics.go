// Package metrics exposes Prometheus metrics for session turns and
// language model calls.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/histread/internal/llm"
)

const namespace = "histread"

// Metrics holds every collector. All methods are safe for concurrent use.
type Metrics struct {
	// TurnsTotal counts engine operations.
	// Labels: op (begin, utterance, advance), outcome (ok, blocked, advanced, complete, error)
	TurnsTotal *prometheus.CounterVec

	// TurnDuration measures engine operations end to end.
	// Labels: op
	TurnDuration *prometheus.HistogramVec

	// LLMRequestsTotal counts model calls.
	// Labels: purpose (dialogue, mastery-judge), status (success, error)
	LLMRequestsTotal *prometheus.CounterVec

	// LLMLatency measures model call latency.
	// Labels: purpose
	LLMLatency *prometheus.HistogramVec

	// LLMTokensTotal counts tokens.
	// Labels: purpose, direction (input, output)
	LLMTokensTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates and registers the collectors on reg. A nil reg uses a fresh
// private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	latency := []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

	return &Metrics{
		TurnsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "turns_total",
			Help:      "Session operations by kind and outcome",
		}, []string{"op", "outcome"}),
		TurnDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "turn_duration_seconds",
			Help:      "Duration of session operations in seconds",
			Buckets:   latency,
		}, []string{"op"}),
		LLMRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "requests_total",
			Help:      "Language model requests by purpose and status",
		}, []string{"purpose", "status"}),
		LLMLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "request_duration_seconds",
			Help:      "Language model request latency in seconds",
			Buckets:   latency,
		}, []string{"purpose"}),
		LLMTokensTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens consumed by purpose and direction",
		}, []string{"purpose", "direction"}),
		gatherer: reg,
	}
}

// ObserveTurn implements session.Observer.
func (m *Metrics) ObserveTurn(op, outcome string, elapsed time.Duration) {
	m.TurnsTotal.WithLabelValues(op, outcome).Inc()
	m.TurnDuration.WithLabelValues(op).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Instrument wraps p so every call is counted and timed under the
// purpose carried by its context.
func (m *Metrics) Instrument(p llm.Provider) llm.Provider {
	return &instrumented{inner: p, m: m}
}

type instrumented struct {
	inner llm.Provider
	m     *Metrics
}

func (p *instrumented) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	purpose := llm.PurposeFrom(ctx)
	start := time.Now()
	resp, err := p.inner.Generate(ctx, req)
	p.m.LLMLatency.WithLabelValues(purpose).Observe(time.Since(start).Seconds())

	if err != nil {
		p.m.LLMRequestsTotal.WithLabelValues(purpose, llm.Kind(err)).Inc()
		return nil, err
	}
	p.m.LLMRequestsTotal.WithLabelValues(purpose, "success").Inc()
	p.m.LLMTokensTotal.WithLabelValues(purpose, "input").Add(float64(resp.Usage.InputTokens))
	p.m.LLMTokensTotal.WithLabelValues(purpose, "output").Add(float64(resp.Usage.OutputTokens))
	return resp, nil
}

func (p *instrumented) ModelID() string { return p.inner.ModelID() }
