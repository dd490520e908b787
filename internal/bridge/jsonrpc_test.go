package bridge

import (
	"strings"
	"testing"
)

func TestEncodeRequestLine(t *testing.T) {
	line, err := encodeLine(newRequest(7, "ping", nil))
	if err != nil {
		t.Fatalf("encodeLine: %v", err)
	}
	got := string(line)
	want := `{"jsonrpc":"2.0","id":7,"method":"ping"}` + "\n"
	if got != want {
		t.Errorf("encoded line = %q, want %q", got, want)
	}
}

func TestEncodeRequestWithParams(t *testing.T) {
	line, err := encodeLine(newRequest(1, "agent:start", map[string]string{"feed": "iex"}))
	if err != nil {
		t.Fatalf("encodeLine: %v", err)
	}
	got := string(line)
	if !strings.HasPrefix(got, `{"jsonrpc":"2.0","id":1,"method":"agent:start","params":`) {
		t.Errorf("unexpected line shape: %q", got)
	}
	if !strings.HasSuffix(got, "\n") {
		t.Error("missing trailing newline")
	}
}

func TestEncodeNotificationHasNoID(t *testing.T) {
	line, err := encodeLine(newNotification("agent:stop", nil))
	if err != nil {
		t.Fatalf("encodeLine: %v", err)
	}
	if strings.Contains(string(line), `"id"`) {
		t.Errorf("notification must not carry an id: %q", line)
	}
}

func TestClassifyResponse(t *testing.T) {
	resp, notif, err := classify([]byte(`{"jsonrpc":"2.0","id":42,"result":{"ok":true}}`))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if notif != nil {
		t.Fatal("expected response, got notification")
	}
	if resp.ID != 42 {
		t.Errorf("id = %d, want 42", resp.ID)
	}
	if !resp.IsSuccess() {
		t.Error("expected success response")
	}
}

func TestClassifyErrorResponse(t *testing.T) {
	resp, _, err := classify([]byte(`{"jsonrpc":"2.0","id":3,"error":{"code":-32601,"message":"method not found"}}`))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if resp.IsSuccess() {
		t.Fatal("expected error response")
	}
	if resp.Error.Code != -32601 {
		t.Errorf("code = %d, want -32601", resp.Error.Code)
	}
	if resp.Err() == nil {
		t.Error("Err() should surface the RPC error")
	}
}

func TestClassifyNotification(t *testing.T) {
	resp, notif, err := classify([]byte(`{"jsonrpc":"2.0","method":"data:tick","params":{"symbol":"AAPL"}}`))
	if err != nil {
		t.Fatalf("classify: %v", err)
	}
	if resp != nil {
		t.Fatal("expected notification, got response")
	}
	if notif.Method != "data:tick" {
		t.Errorf("method = %q, want data:tick", notif.Method)
	}
	if len(notif.Params) == 0 {
		t.Error("params missing")
	}
}

func TestClassifyRejectsUnclassifiable(t *testing.T) {
	cases := []string{
		`{"jsonrpc":"2.0"}`,
		`{"jsonrpc":"2.0","id":1,"method":"both"}`,
		`not json at all`,
		`[1,2,3]`,
	}
	for _, line := range cases {
		if _, _, err := classify([]byte(line)); err == nil {
			t.Errorf("classify(%q) accepted a bad line", line)
		}
	}
}
