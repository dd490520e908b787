package domain

import "encoding/json"

// BacktestStatus is the lifecycle of a backtest run.
type BacktestStatus string

const (
	BacktestRunning   BacktestStatus = "running"
	BacktestComplete  BacktestStatus = "complete"
	BacktestFailed    BacktestStatus = "failed"
	BacktestCancelled BacktestStatus = "cancelled"
)

// BacktestSummary is the persisted record of one backtest run. Config
// and Results stay raw: their shape belongs to the agent, the store
// only round-trips them.
type BacktestSummary struct {
	ID             string          `json:"id"`
	Status         BacktestStatus  `json:"status"`
	Config         json.RawMessage `json:"config"`
	Results        json.RawMessage `json:"results,omitempty"`
	Error          string          `json:"error,omitempty"`
	TicksProcessed int64           `json:"ticksProcessed"`
	CreatedAt      int64           `json:"createdAt"`
	CompletedAt    int64           `json:"completedAt,omitempty"`
}

// BacktestTrade is one simulated fill recorded during a backtest.
type BacktestTrade struct {
	ID         string  `json:"id"`
	BacktestID string  `json:"backtestId"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Quantity   float64 `json:"quantity"`
	Price      float64 `json:"price"`
	Timestamp  int64   `json:"timestamp"`
	PnL        float64 `json:"pnl"`
	Reason     string  `json:"reason,omitempty"`
}

// BacktestProgress is the payload of a backtest:progress event.
type BacktestProgress struct {
	BacktestID     string `json:"backtestId"`
	TicksProcessed int64  `json:"ticksProcessed"`
	TotalTicks     int64  `json:"totalTicks,omitempty"`
}
