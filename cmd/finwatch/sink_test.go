package main

import (
	"encoding/json"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/jdsingh122918/finwatch/internal/domain"
	"github.com/jdsingh122918/finwatch/internal/events"
	"github.com/jdsingh122918/finwatch/internal/store"
)

func newTestSink(t *testing.T) (*eventSink, *store.Store) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	st, err := store.Open(filepath.Join(t.TempDir(), "finwatch.sqlite"), logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	s := newEventSink(st, server.NewMCPServer("finwatch-test", "0.0.0"), logger)
	t.Cleanup(s.Close)
	return s, st
}

func TestSinkPersistsAnomalyOffCallerGoroutine(t *testing.T) {
	s, st := newTestSink(t)

	payload, err := json.Marshal(domain.Anomaly{
		Severity:    domain.SeverityHigh,
		Source:      "alpaca",
		Symbol:      "AAPL",
		Description: "volume spike",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	start := time.Now()
	s.Emit(events.AnomalyDetected, payload)
	if elapsed := time.Since(start); elapsed > 200*time.Millisecond {
		t.Errorf("Emit blocked for %v, should hand off to the delivery goroutine", elapsed)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		rows, err := st.ListAnomalies(domain.AnomalyFilter{})
		if err != nil {
			t.Fatalf("list anomalies: %v", err)
		}
		if len(rows) == 1 {
			if rows[0].Symbol != "AAPL" || rows[0].Severity != domain.SeverityHigh {
				t.Errorf("persisted anomaly = %+v", rows[0])
			}
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("anomaly never persisted")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestSinkEmitAfterCloseDoesNotBlock(t *testing.T) {
	s, _ := newTestSink(t)
	s.Close()

	done := make(chan struct{})
	go func() {
		s.Emit(events.DataTick, json.RawMessage(`{"symbol":"AAPL"}`))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked after Close")
	}
}
