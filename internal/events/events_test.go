package events

import "testing"

func TestEventNamesMatchWireContract(t *testing.T) {
	want := map[string]string{
		DataTick:           "data:tick",
		AnomalyDetected:    "anomaly:detected",
		AgentActivity:      "agent:activity",
		SourceHealthChange: "source:health-change",
		MemoryUpdated:      "memory:updated",
		BacktestProgress:   "backtest:progress",
		BacktestComplete:   "backtest:complete",
	}
	for got, expected := range want {
		if got != expected {
			t.Errorf("event name %q, want %q", got, expected)
		}
	}
	if len(All()) != len(want) {
		t.Errorf("All() lists %d events, want %d", len(All()), len(want))
	}
}
