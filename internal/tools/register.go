// Package tools exposes the supervisor's operations as MCP tools:
// agent lifecycle, anomaly review, backtests, credentials, and local
// indicator computation.
package tools

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jdsingh122918/finwatch/internal/bridge"
	"github.com/jdsingh122918/finwatch/internal/config"
	"github.com/jdsingh122918/finwatch/internal/secrets"
	"github.com/jdsingh122918/finwatch/internal/store"
)

// Deps carries everything the tool handlers need.
type Deps struct {
	Bridge  *bridge.Bridge
	Store   *store.Store
	Secrets *secrets.Store
	Config  *config.Config
	Logger  *log.Logger
}

// Register adds every tool to the server.
func Register(s *server.MCPServer, deps Deps) {
	registerAgentTools(s, deps)
	registerConfigTools(s, deps)
	registerAnomalyTools(s, deps)
	registerBacktestTools(s, deps)
	registerCredentialTools(s, deps)
	registerSourceTools(s, deps)
	registerMemoryTools(s, deps)
	registerIndicatorTools(s, deps)
}

// jsonResult marshals v into a text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
