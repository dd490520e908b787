// Package events defines the event names forwarded from the trading agent
// to connected clients, and the sink interface that receives them.
package events

import "encoding/json"

// Event names pushed to clients. These form the wire contract with the
// frontend and must not change without a coordinated release.
const (
	DataTick           = "data:tick"
	AnomalyDetected    = "anomaly:detected"
	AgentActivity      = "agent:activity"
	SourceHealthChange = "source:health-change"
	MemoryUpdated      = "memory:updated"
	BacktestProgress   = "backtest:progress"
	BacktestComplete   = "backtest:complete"
)

// All lists every event name the agent may emit.
func All() []string {
	return []string{
		DataTick,
		AnomalyDetected,
		AgentActivity,
		SourceHealthChange,
		MemoryUpdated,
		BacktestProgress,
		BacktestComplete,
	}
}

// Sink receives events forwarded from the agent process. Implementations
// must not block: Emit is called from the stdout reader goroutine.
type Sink interface {
	Emit(event string, payload json.RawMessage)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(event string, payload json.RawMessage)

func (f SinkFunc) Emit(event string, payload json.RawMessage) { f(event, payload) }
