package bridge

import (
	"encoding/json"
	"log"

	"github.com/jdsingh122918/finwatch/internal/events"
)

// Router dispatches notifications from the worker to an event sink.
// Methods outside the known catalog are logged and dropped so a newer
// worker cannot crash an older supervisor.
type Router struct {
	sink    events.Sink
	logger  *log.Logger
	methods map[string]string
}

// NewRouter builds a router over the full event catalog.
func NewRouter(sink events.Sink, logger *log.Logger) *Router {
	methods := make(map[string]string)
	for _, name := range events.All() {
		methods[name] = name
	}
	return &Router{sink: sink, logger: logger, methods: methods}
}

// Route forwards a worker notification to the sink when its method is
// in the catalog.
func (r *Router) Route(method string, params json.RawMessage) {
	event, ok := r.methods[method]
	if !ok {
		r.logger.Printf("dropping notification with unknown method %q", method)
		return
	}
	if r.sink != nil {
		r.sink.Emit(event, params)
	}
}
