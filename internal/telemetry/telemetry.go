package telemetry

import (
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/zeyupan/autonotes/config"
)

// Telemetry tracks generation-stage activity: request counts, escalations,
// failures, latency and token cost. One instance is shared by all pipeline
// stages; methods are safe for concurrent use.
type Telemetry struct {
	config  config.TelemetryConfig
	pricing map[string]config.LLMModel
	logger  *log.Logger

	generations *prometheus.CounterVec
	escalations *prometheus.CounterVec
	failures    *prometheus.CounterVec
	latency     *prometheus.HistogramVec

	mu          sync.RWMutex
	totalCost   float64
	totalTokens int64
	modelCosts  map[string]float64
	stageCounts map[string]int64
}

// New creates a telemetry instance and registers its collectors. Tests pass
// a fresh prometheus.NewRegistry to avoid duplicate registration.
func New(cfg config.TelemetryConfig, pricing map[string]config.LLMModel, reg prometheus.Registerer) *Telemetry {
	t := &Telemetry{
		config:  cfg,
		pricing: pricing,
		logger:  log.New(log.Writer(), "[TELEMETRY] ", log.LstdFlags),
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autonotes_generation_requests_total",
			Help: "Generation round-trips issued, by stage and model.",
		}, []string{"stage", "model"}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autonotes_generation_escalations_total",
			Help: "Overflow escalations to the longform tier, by stage.",
		}, []string{"stage"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autonotes_generation_failures_total",
			Help: "Failed generation calls, by stage.",
		}, []string{"stage"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "autonotes_generation_duration_seconds",
			Help:    "Generation round-trip latency, by stage.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}, []string{"stage"}),
		modelCosts:  make(map[string]float64),
		stageCounts: make(map[string]int64),
	}
	if cfg.Enabled && reg != nil {
		reg.MustRegister(t.generations, t.escalations, t.failures, t.latency)
	}
	return t
}

// RecordGeneration records one generation round-trip.
func (t *Telemetry) RecordGeneration(stage, model string, duration time.Duration, promptTokens, outputTokens int64, err error) {
	if !t.config.Enabled {
		return
	}
	t.generations.WithLabelValues(stage, model).Inc()
	t.latency.WithLabelValues(stage).Observe(duration.Seconds())
	if err != nil {
		t.failures.WithLabelValues(stage).Inc()
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.stageCounts[stage]++
	t.totalTokens += promptTokens + outputTokens
	if t.config.CostTracking {
		cost := t.cost(model, promptTokens, outputTokens)
		t.totalCost += cost
		t.modelCosts[model] += cost
	}
}

// RecordEscalation records an overflow escalation decision for a stage.
func (t *Telemetry) RecordEscalation(stage string) {
	if !t.config.Enabled {
		return
	}
	t.escalations.WithLabelValues(stage).Inc()
	t.logger.Printf("stage %s escalated to longform tier", stage)
}

// cost is called with t.mu held.
func (t *Telemetry) cost(model string, promptTokens, outputTokens int64) float64 {
	m, ok := t.pricing[model]
	if !ok {
		return 0
	}
	return float64(promptTokens)/1000.0*m.CostPer1K + float64(outputTokens)/1000.0*m.CostPer1KOutput
}

// TotalCost returns the accumulated generation cost.
func (t *Telemetry) TotalCost() float64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalCost
}

// TotalTokens returns the accumulated token count across all stages.
func (t *Telemetry) TotalTokens() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalTokens
}

// StageCount returns how many successful generations a stage has issued.
func (t *Telemetry) StageCount(stage string) int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stageCounts[stage]
}
