package domain

// DataTick is one bar of market data streamed by the agent.
type DataTick struct {
	Symbol    string  `json:"symbol"`
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Source    string  `json:"source"`
}

// SourceHealthStatus describes a data source's availability.
type SourceHealthStatus string

const (
	SourceHealthy  SourceHealthStatus = "healthy"
	SourceDegraded SourceHealthStatus = "degraded"
	SourceDown     SourceHealthStatus = "down"
)

// SourceHealth is the latest known condition of one data source.
type SourceHealth struct {
	Source    string             `json:"source"`
	Status    SourceHealthStatus `json:"status"`
	LastTick  int64              `json:"lastTick,omitempty"`
	LastError string             `json:"lastError,omitempty"`
	CheckedAt int64              `json:"checkedAt"`
}

// Asset is a tradable instrument from the broker's catalog, cached
// locally to avoid refetching on every lookup.
type Asset struct {
	Symbol     string `json:"symbol"`
	Name       string `json:"name"`
	Exchange   string `json:"exchange"`
	AssetClass string `json:"asset_class"`
	Status     string `json:"status"`
}
