package main

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/jdsingh122918/finwatch/internal/domain"
	"github.com/jdsingh122918/finwatch/internal/events"
	"github.com/jdsingh122918/finwatch/internal/store"
)

// eventSink persists agent events that carry durable state, then
// forwards every event to connected MCP clients. Delivery runs on its
// own goroutine so Emit never holds up the caller on database writes.
type eventSink struct {
	store  *store.Store
	server *server.MCPServer
	logger *log.Logger

	queue     chan sinkItem
	stopCh    chan struct{}
	doneCh    chan struct{}
	closeOnce sync.Once
}

type sinkItem struct {
	event   string
	payload json.RawMessage
}

func newEventSink(st *store.Store, srv *server.MCPServer, logger *log.Logger) *eventSink {
	s := &eventSink{
		store:  st,
		server: srv,
		logger: logger,
		queue:  make(chan sinkItem, 256),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	go s.deliverLoop()
	return s
}

// Emit enqueues the event for delivery. A full queue drops the event
// rather than block the protocol reader.
func (s *eventSink) Emit(event string, payload json.RawMessage) {
	select {
	case s.queue <- sinkItem{event: event, payload: payload}:
	case <-s.stopCh:
	default:
		s.logger.Printf("event queue full, dropping %s", event)
	}
}

// Close stops the delivery goroutine. Queued events are abandoned.
func (s *eventSink) Close() {
	s.closeOnce.Do(func() { close(s.stopCh) })
	<-s.doneCh
}

func (s *eventSink) deliverLoop() {
	defer close(s.doneCh)
	for {
		select {
		case item := <-s.queue:
			s.deliver(item.event, item.payload)
		case <-s.stopCh:
			return
		}
	}
}

func (s *eventSink) deliver(event string, payload json.RawMessage) {
	s.persist(event, payload)

	var params map[string]any
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &params); err != nil {
			s.logger.Printf("event %s payload is not an object: %v", event, err)
			params = map[string]any{"raw": string(payload)}
		}
	}
	s.server.SendNotificationToAllClients(event, params)
}

func (s *eventSink) persist(event string, payload json.RawMessage) {
	switch event {
	case events.AnomalyDetected:
		var a domain.Anomaly
		if err := json.Unmarshal(payload, &a); err != nil {
			s.logger.Printf("decode anomaly event: %v", err)
			return
		}
		if _, err := s.store.InsertAnomaly(a); err != nil {
			s.logger.Printf("persist anomaly: %v", err)
		}

	case events.SourceHealthChange:
		var h domain.SourceHealth
		if err := json.Unmarshal(payload, &h); err != nil {
			s.logger.Printf("decode source health event: %v", err)
			return
		}
		if err := s.store.UpsertSourceHealth(h); err != nil {
			s.logger.Printf("persist source health: %v", err)
		}

	case events.BacktestProgress:
		var p domain.BacktestProgress
		if err := json.Unmarshal(payload, &p); err != nil {
			s.logger.Printf("decode backtest progress event: %v", err)
			return
		}
		if err := s.store.UpdateBacktestProgress(p.BacktestID, p.TicksProcessed); err != nil {
			s.logger.Printf("persist backtest progress: %v", err)
		}

	case events.BacktestComplete:
		var done struct {
			BacktestID string          `json:"backtestId"`
			Results    json.RawMessage `json:"results"`
			Error      string          `json:"error"`
		}
		if err := json.Unmarshal(payload, &done); err != nil {
			s.logger.Printf("decode backtest completion event: %v", err)
			return
		}
		status := domain.BacktestComplete
		if done.Error != "" {
			status = domain.BacktestFailed
		}
		if err := s.store.UpdateBacktestStatus(done.BacktestID, status, done.Results, done.Error); err != nil {
			s.logger.Printf("persist backtest completion: %v", err)
		}
	}
}
