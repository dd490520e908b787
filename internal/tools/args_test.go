package tools

import (
	"encoding/json"
	"io"
	"log"
	"testing"

	"github.com/jdsingh122918/finwatch/internal/bridge"
	"github.com/jdsingh122918/finwatch/internal/domain"
	"github.com/jdsingh122918/finwatch/internal/events"
)

func TestRequireString(t *testing.T) {
	args := map[string]any{"mode": "paper", "empty": "", "number": 3.0}

	if got, err := requireString(args, "mode"); err != nil || got != "paper" {
		t.Errorf("requireString(mode) = %q, %v", got, err)
	}
	if _, err := requireString(args, "missing"); err == nil {
		t.Error("missing key accepted")
	}
	if _, err := requireString(args, "empty"); err == nil {
		t.Error("empty string accepted")
	}
	if _, err := requireString(args, "number"); err == nil {
		t.Error("non-string accepted")
	}
}

func TestOptionalHelpers(t *testing.T) {
	args := map[string]any{
		"source":     "alpaca",
		"limit":      25.0,
		"severities": []any{"high", "critical", 7.0},
	}

	if got := optionalString(args, "source"); got != "alpaca" {
		t.Errorf("optionalString = %q", got)
	}
	if got := optionalString(args, "absent"); got != "" {
		t.Errorf("optionalString(absent) = %q", got)
	}
	if got := optionalNumber(args, "limit"); got != 25 {
		t.Errorf("optionalNumber = %f", got)
	}
	got := optionalStringSlice(args, "severities")
	if len(got) != 2 || got[0] != "high" || got[1] != "critical" {
		t.Errorf("optionalStringSlice = %v", got)
	}
}

func TestAgentStatusMapsStoppedToIdle(t *testing.T) {
	logger := log.New(io.Discard, "", 0)
	sink := events.SinkFunc(func(string, json.RawMessage) {})
	b := bridge.New(bridge.NewRouter(sink, logger), logger)
	deps := Deps{Bridge: b, Logger: logger}

	st := agentStatus(deps)
	if st.State != domain.AgentIdle {
		t.Errorf("state = %q, want idle", st.State)
	}
	if st.PID != 0 || st.Crashes != 0 {
		t.Errorf("unexpected status: %+v", st)
	}
}
