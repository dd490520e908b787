package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func registerConfigTools(s *server.MCPServer, deps Deps) {
	s.AddTool(mcp.NewTool("config_get",
		mcp.WithDescription("Return the application configuration document as a JSON object."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		doc, err := deps.Store.AppConfig()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(doc), nil
	})

	s.AddTool(mcp.NewTool("config_update",
		mcp.WithDescription("Deep-merge a JSON patch into the application configuration and return the merged document. Nested objects merge key by key; other values replace."),
		mcp.WithString("patch", mcp.Required(), mcp.Description("JSON object to merge into the stored configuration")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		patch, err := requireString(req.GetArguments(), "patch")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		merged, err := deps.Store.UpdateAppConfig(patch)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		// The running agent picks up the change without a restart.
		if deps.Bridge.IsRunning() {
			if err := deps.Bridge.SendNotification("config:changed", nil); err != nil {
				deps.Logger.Printf("config:changed notification failed: %v", err)
			}
		}
		return mcp.NewToolResultText(merged), nil
	})
}
