package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jdsingh122918/finwatch/internal/bridge"
	"github.com/jdsingh122918/finwatch/internal/domain"
)

func registerAgentTools(s *server.MCPServer, deps Deps) {
	s.AddTool(mcp.NewTool("agent_start",
		mcp.WithDescription("Launch the trading agent worker and begin monitoring. Uses stored paper credentials and the configured symbol list."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params, err := buildAgentParams(deps)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if !deps.Bridge.IsRunning() {
			spec := bridge.LaunchSpec{
				Runtime: deps.Config.Agent.Runtime,
				Entry:   deps.Config.Agent.Entry,
				Args:    deps.Config.Agent.Args,
				Dir:     deps.Config.Agent.Dir,
				Env:     deps.Config.Agent.Env,
			}
			if err := deps.Bridge.Spawn(spec); err != nil {
				return mcp.NewToolResultError(fmt.Sprintf("spawn agent: %v", err)), nil
			}
		}

		resp, err := deps.Bridge.SendRequest(ctx, "agent:start", params, 0)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("start agent: %v", err)), nil
		}
		if !resp.IsSuccess() {
			return mcp.NewToolResultError(resp.Err().Error()), nil
		}
		return jsonResult(agentStatus(deps))
	})

	s.AddTool(mcp.NewTool("agent_stop",
		mcp.WithDescription("Tell the agent to stop monitoring, then shut down the worker process."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Bridge.IsRunning() {
			if err := deps.Bridge.SendNotification("agent:stop", nil); err != nil {
				deps.Logger.Printf("agent:stop notification failed: %v", err)
			}
		}
		if err := deps.Bridge.Kill(); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("stop agent: %v", err)), nil
		}
		return jsonResult(agentStatus(deps))
	})

	s.AddTool(mcp.NewTool("agent_status",
		mcp.WithDescription("Report the agent worker's lifecycle state, health, and pending request count."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return jsonResult(agentStatus(deps))
	})
}

// buildAgentParams assembles the agent:start payload from stored
// credentials and configuration.
func buildAgentParams(deps Deps) (map[string]any, error) {
	creds, err := deps.Secrets.Get("paper")
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	if creds == nil {
		// Hosts that never migrated still have them in the database.
		creds, err = deps.Store.Credentials("paper")
		if err != nil {
			return nil, fmt.Errorf("load credentials: %w", err)
		}
	}
	if creds == nil {
		return nil, fmt.Errorf("no paper trading credentials configured")
	}

	symbols := deps.Config.Agent.Symbols
	if len(symbols) == 0 {
		symbols = []string{"AAPL"}
	}
	feed := deps.Config.Agent.Feed
	if feed == "" {
		feed = "iex"
	}

	return map[string]any{
		"alpaca": map[string]any{
			"keyId":     creds.KeyID,
			"secretKey": creds.SecretKey,
			"symbols":   symbols,
			"feed":      feed,
		},
	}, nil
}

// agentStatus derives the externally visible state from supervision
// state and health.
func agentStatus(deps Deps) domain.AgentStatus {
	st := deps.Bridge.Status()

	var state domain.AgentState
	switch st.State {
	case bridge.StateStopped:
		state = domain.AgentIdle
	case bridge.StateStarting:
		state = domain.AgentStarting
	case bridge.StateRunning:
		if st.Healthy {
			state = domain.AgentRunning
		} else {
			state = domain.AgentUnhealthy
		}
	case bridge.StateCrashed:
		state = domain.AgentCrashed
	}

	return domain.AgentStatus{
		State:           state,
		PID:             st.PID,
		Crashes:         st.Crashes,
		UptimeSeconds:   int64(st.Uptime.Seconds()),
		PendingRequests: st.Pending,
	}
}
