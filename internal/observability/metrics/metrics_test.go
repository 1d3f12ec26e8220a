package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestDialogueMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewDialogueMetrics(reg)

	m.ObserveTurn("property_search", "info_gathering", 35, []string{"comparison", "timeline_discussion"})
	m.ObserveTurn("property_search", "info_gathering", 50, nil)
	m.ObserveToolCall("search_properties", true)
	m.ObserveToolCall("search_properties", false)
	m.ObserveDealReady()
	m.ObserveLatency("ok", 0.01)

	families := gather(t, reg)

	turns := families["propertymatch_dialogue_turns_total"]
	require.NotNil(t, turns)
	require.Len(t, turns.GetMetric(), 1)
	assert.Equal(t, float64(2), turns.GetMetric()[0].GetCounter().GetValue())

	signals := families["propertymatch_dialogue_buying_signals_total"]
	require.NotNil(t, signals)
	assert.Len(t, signals.GetMetric(), 2)

	score := families["propertymatch_dialogue_qualification_score"]
	require.NotNil(t, score)
	assert.Equal(t, uint64(2), score.GetMetric()[0].GetHistogram().GetSampleCount())
	assert.Equal(t, float64(85), score.GetMetric()[0].GetHistogram().GetSampleSum())

	tools := families["propertymatch_dialogue_tool_calls_total"]
	require.NotNil(t, tools)
	assert.Len(t, tools.GetMetric(), 2)

	deals := families["propertymatch_dialogue_deal_closure_total"]
	require.NotNil(t, deals)
	assert.Equal(t, float64(1), deals.GetMetric()[0].GetCounter().GetValue())
}

func TestDialogueMetricsNilSafe(t *testing.T) {
	var m *DialogueMetrics
	m.ObserveTurn("greeting", "intent_detection", 15, []string{"comparison"})
	m.ObserveToolCall("search_properties", true)
	m.ObserveDealReady()
	m.ObserveLatency("ok", 0.1)
}
