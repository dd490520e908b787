package domain

// AgentState is the externally visible condition of the agent worker,
// derived from supervision state and health probing.
type AgentState string

const (
	AgentIdle      AgentState = "idle"
	AgentStarting  AgentState = "starting"
	AgentRunning   AgentState = "running"
	AgentUnhealthy AgentState = "unhealthy"
	AgentCrashed   AgentState = "crashed"
)

// AgentStatus is the full status report returned to clients.
type AgentStatus struct {
	State            AgentState `json:"state"`
	CurrentSessionID string     `json:"currentSessionId,omitempty"`
	PID              int        `json:"pid,omitempty"`
	Crashes          int        `json:"crashes"`
	UptimeSeconds    int64      `json:"uptime"`
	PendingRequests  int        `json:"pendingRequests"`
}

// AgentActivity is a narration entry emitted while the agent works.
type AgentActivity struct {
	SessionID string `json:"sessionId"`
	CycleID   string `json:"cycleId,omitempty"`
	Kind      string `json:"kind"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// Credentials is an Alpaca API key pair.
type Credentials struct {
	KeyID     string `json:"keyId"`
	SecretKey string `json:"secretKey"`
}

// CredentialsMasked is the safe shape returned to clients: it reveals
// the key id but never the secret.
type CredentialsMasked struct {
	KeyID     string `json:"keyId"`
	HasSecret bool   `json:"hasSecret"`
}
