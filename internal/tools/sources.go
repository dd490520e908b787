package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const assetCacheTTL = 24 * time.Hour

func registerSourceTools(s *server.MCPServer, deps Deps) {
	s.AddTool(mcp.NewTool("sources_health",
		mcp.WithDescription("Return the latest health of every data source, keyed by source name."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		m, err := deps.Store.SourceHealthMap()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(m)
	})

	s.AddTool(mcp.NewTool("assets_list",
		mcp.WithDescription("List tradable assets from the broker catalog. Served from the local cache; a stale cache is refreshed through the running agent, falling back to cached data when the agent is unavailable."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stale, err := deps.Store.AssetCacheStale(assetCacheTTL)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if stale && deps.Bridge.IsRunning() {
			if err := refreshAssets(ctx, deps); err != nil {
				deps.Logger.Printf("asset refresh failed, serving cached catalog: %v", err)
			}
		}

		assets, err := deps.Store.Assets()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(assets)
	})
}
