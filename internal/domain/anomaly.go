// Package domain holds the market-monitoring data model shared across
// storage, the agent bridge, and the tool surface. JSON tags follow the
// camelCase convention of the frontend and agent wire contract.
package domain

import "fmt"

// Severity classifies how strongly an anomaly deviates from baseline.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Anomaly is a market irregularity detected by the agent.
type Anomaly struct {
	ID             string             `json:"id"`
	Severity       Severity           `json:"severity"`
	Source         string             `json:"source"`
	Symbol         string             `json:"symbol,omitempty"`
	Timestamp      int64              `json:"timestamp"`
	Description    string             `json:"description"`
	Metrics        map[string]float64 `json:"metrics,omitempty"`
	PreScreenScore float64            `json:"preScreenScore"`
	SessionID      string             `json:"sessionId,omitempty"`
}

// AnomalyFilter narrows an anomaly listing. Zero values mean no
// constraint; Limit zero means the store default.
type AnomalyFilter struct {
	Severities []Severity `json:"severities,omitempty"`
	Source     string     `json:"source,omitempty"`
	Symbol     string     `json:"symbol,omitempty"`
	Since      int64      `json:"since,omitempty"`
	Limit      int        `json:"limit,omitempty"`
}

// FeedbackVerdict is the analyst's judgement on a flagged anomaly.
type FeedbackVerdict string

const (
	VerdictConfirmed     FeedbackVerdict = "confirmed"
	VerdictFalsePositive FeedbackVerdict = "false_positive"
	VerdictUnsure        FeedbackVerdict = "unsure"
)

// Valid reports whether v is one of the known verdicts.
func (v FeedbackVerdict) Valid() bool {
	switch v {
	case VerdictConfirmed, VerdictFalsePositive, VerdictUnsure:
		return true
	}
	return false
}

// AnomalyFeedback records an analyst verdict for later agent learning.
type AnomalyFeedback struct {
	ID        string          `json:"id"`
	AnomalyID string          `json:"anomalyId"`
	Verdict   FeedbackVerdict `json:"verdict"`
	Note      string          `json:"note,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// ValidateTradingMode checks that mode names a known Alpaca
// environment, either "paper" or "live".
func ValidateTradingMode(mode string) error {
	switch mode {
	case "paper", "live":
		return nil
	}
	return fmt.Errorf("invalid trading mode %q: must be paper or live", mode)
}
