package bridge

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Request is a JSON-RPC 2.0 request written to the agent's stdin.
// Field order matters for readability of logs, not for the protocol.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Notification is a JSON-RPC 2.0 notification. It carries no id and
// expects no reply.
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response read from the agent's stdout.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// IsSuccess reports whether the response carries a result rather than
// an error.
func (r *Response) IsSuccess() bool { return r.Error == nil }

// Err returns the response error as a Go error, or nil on success.
func (r *Response) Err() error {
	if r.Error == nil {
		return nil
	}
	return r.Error
}

// RPCError is the error object of a failed JSON-RPC response.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("agent error %d: %s", e.Code, e.Message)
}

func newRequest(id uint64, method string, params any) Request {
	return Request{JSONRPC: "2.0", ID: id, Method: method, Params: params}
}

func newNotification(method string, params any) Notification {
	return Notification{JSONRPC: "2.0", Method: method, Params: params}
}

// encodeLine marshals v and appends the trailing newline that frames
// messages on the stdio transport.
func encodeLine(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	return append(data, '\n'), nil
}

// inbound is the union shape of everything the agent can write on a
// single stdout line. Classification is by shape: a numeric id without
// a method is a response, a method without an id is a notification.
type inbound struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id"`
	Method  string          `json:"method"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
	Params  json.RawMessage `json:"params"`
}

// inboundNotification is a notification read from the worker, with its
// params left raw for the router.
type inboundNotification struct {
	Method string
	Params json.RawMessage
}

// classify parses one stdout line and returns either a response or a
// notification. Exactly one of the two is non-nil on success. Lines
// that parse as JSON but fit neither shape are rejected so the caller
// can log and drop them.
func classify(line []byte) (*Response, *inboundNotification, error) {
	var msg inbound
	if err := json.Unmarshal(line, &msg); err != nil {
		return nil, nil, fmt.Errorf("parse message: %w", err)
	}
	switch {
	case msg.ID != nil && msg.Method == "":
		return &Response{
			JSONRPC: msg.JSONRPC,
			ID:      *msg.ID,
			Result:  msg.Result,
			Error:   msg.Error,
		}, nil, nil
	case msg.Method != "" && msg.ID == nil:
		return nil, &inboundNotification{Method: msg.Method, Params: msg.Params}, nil
	default:
		return nil, nil, fmt.Errorf("unclassifiable message: %s", truncate(string(line), 200))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.TrimSpace(s[:n]) + "..."
}
