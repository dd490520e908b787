package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jdsingh122918/finwatch/internal/domain"
)

func registerMemoryTools(s *server.MCPServer, deps Deps) {
	s.AddTool(mcp.NewTool("memory_search",
		mcp.WithDescription("Search the agent's long-term memory. Returns an empty list when the agent is not running."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search text")),
		mcp.WithNumber("limit", mcp.Description("Maximum results, default 20")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		query, err := requireString(args, "query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		limit := int(optionalNumber(args, "limit"))
		if limit <= 0 {
			limit = 20
		}

		// Memory lives inside the agent; with no worker there is
		// nothing to search.
		if !deps.Bridge.IsRunning() {
			return jsonResult([]domain.MemorySearchResult{})
		}

		resp, err := deps.Bridge.SendRequest(ctx, "memory:search", map[string]any{
			"query": query,
			"limit": limit,
		}, 0)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("memory search: %v", err)), nil
		}
		if !resp.IsSuccess() {
			return mcp.NewToolResultError(resp.Err().Error()), nil
		}

		var results []domain.MemorySearchResult
		if err := json.Unmarshal(resp.Result, &results); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("decode memory results: %v", err)), nil
		}
		if results == nil {
			results = []domain.MemorySearchResult{}
		}
		return jsonResult(results)
	})
}
