// Package metrics exposes Prometheus counters for policy-evaluation
// outcomes and dual-LLM quarantine round counts — in-process, not
// persisted, and never consulted by any guardrail decision.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry groups every counter the proxy increments.
type Registry struct {
	ToolInvocationDecisions *prometheus.CounterVec
	TrustedDataDecisions    *prometheus.CounterVec
	DualLLMRounds           prometheus.Counter
	DualLLMCacheHits        prometheus.Counter
}

// NewRegistry constructs and registers every counter against reg. Passing a
// fresh prometheus.NewRegistry() keeps tests isolated from the global
// DefaultRegisterer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	r := &Registry{
		ToolInvocationDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "archestra_tool_invocation_decisions_total",
			Help: "Tool-invocation policy decisions, labelled allow/deny.",
		}, []string{"decision"}),
		TrustedDataDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "archestra_trusted_data_decisions_total",
			Help: "Trusted-data policy decisions, labelled trusted/untrusted.",
		}, []string{"decision"}),
		DualLLMRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "archestra_dual_llm_rounds_total",
			Help: "Quarantine Q&A rounds run across all sanitisations.",
		}),
		DualLLMCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "archestra_dual_llm_cache_hits_total",
			Help: "Dual-LLM sanitisations served from the DualLlmResult cache.",
		}),
	}
	reg.MustRegister(r.ToolInvocationDecisions, r.TrustedDataDecisions, r.DualLLMRounds, r.DualLLMCacheHits)
	return r
}

// ObserveInvocation records an allow/deny outcome. A nil Registry is a
// silent no-op, so callers never need to nil-check before use.
func (r *Registry) ObserveInvocation(allowed bool) {
	if r == nil {
		return
	}
	if allowed {
		r.ToolInvocationDecisions.WithLabelValues("allow").Inc()
	} else {
		r.ToolInvocationDecisions.WithLabelValues("deny").Inc()
	}
}

// ObserveTrusted records a trusted/untrusted outcome.
func (r *Registry) ObserveTrusted(trusted bool) {
	if r == nil {
		return
	}
	if trusted {
		r.TrustedDataDecisions.WithLabelValues("trusted").Inc()
	} else {
		r.TrustedDataDecisions.WithLabelValues("untrusted").Inc()
	}
}

// ObserveCacheHit records a dual-LLM sanitisation served from cache.
func (r *Registry) ObserveCacheHit() {
	if r == nil {
		return
	}
	r.DualLLMCacheHits.Inc()
}

// AddDualLLMRounds records how many Q&A rounds a quarantine run took.
func (r *Registry) AddDualLLMRounds(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.DualLLMRounds.Add(float64(n))
}
