package metrics

import "github.com/prometheus/client_golang/prometheus"

// DialogueMetrics exposes counters/histograms for conversation turns.
type DialogueMetrics struct {
	turnsTotal    *prometheus.CounterVec
	signalsTotal  *prometheus.CounterVec
	toolCalls     *prometheus.CounterVec
	dealsReady    prometheus.Counter
	qualification prometheus.Histogram
	turnLatency   *prometheus.HistogramVec
}

func NewDialogueMetrics(reg prometheus.Registerer) *DialogueMetrics {
	m := &DialogueMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "propertymatch",
			Subsystem: "dialogue",
			Name:      "turns_total",
			Help:      "Processed turns by classified intent and resulting phase",
		}, []string{"intent", "phase"}),
		signalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "propertymatch",
			Subsystem: "dialogue",
			Name:      "buying_signals_total",
			Help:      "Buying signals detected in user messages",
		}, []string{"signal"}),
		toolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "propertymatch",
			Subsystem: "dialogue",
			Name:      "tool_calls_total",
			Help:      "Tool invocation requests emitted, by tool and publish status",
		}, []string{"tool", "status"}),
		dealsReady: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "propertymatch",
			Subsystem: "dialogue",
			Name:      "deal_closure_total",
			Help:      "Conversations that entered deal closure",
		}),
		qualification: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "propertymatch",
			Subsystem: "dialogue",
			Name:      "qualification_score",
			Help:      "Qualification score after each turn",
			Buckets:   prometheus.LinearBuckets(0, 10, 11),
		}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "propertymatch",
			Subsystem: "dialogue",
			Name:      "turn_latency_seconds",
			Help:      "Latency of turn processing including store I/O",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.signalsTotal, m.toolCalls, m.dealsReady, m.qualification, m.turnLatency)
	return m
}

func (m *DialogueMetrics) ObserveTurn(intent, phase string, score int, signals []string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(intent, phase).Inc()
	m.qualification.Observe(float64(score))
	for _, s := range signals {
		m.signalsTotal.WithLabelValues(s).Inc()
	}
}

func (m *DialogueMetrics) ObserveToolCall(tool string, published bool) {
	if m == nil {
		return
	}
	status := "published"
	if !published {
		status = "failed"
	}
	m.toolCalls.WithLabelValues(tool, status).Inc()
}

func (m *DialogueMetrics) ObserveDealReady() {
	if m == nil {
		return
	}
	m.dealsReady.Inc()
}

func (m *DialogueMetrics) ObserveLatency(status string, seconds float64) {
	if m == nil {
		return
	}
	m.turnLatency.WithLabelValues(status).Observe(seconds)
}
