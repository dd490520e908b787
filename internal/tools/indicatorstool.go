package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jdsingh122918/finwatch/internal/indicators"
)

func registerIndicatorTools(s *server.MCPServer, deps Deps) {
	s.AddTool(mcp.NewTool("indicators_compute",
		mcp.WithDescription("Compute RSI(14), MACD(12/26/9), Bollinger(20,2), and ATR(14) over a bar series. All output series align with the input; warmup positions are null."),
		mcp.WithString("symbol", mcp.Required(), mcp.Description("Symbol the bars belong to")),
		mcp.WithString("ticks", mcp.Required(), mcp.Description("JSON array of bars: timestamp, open, high, low, close, volume")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		symbol, err := requireString(args, "symbol")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		raw, err := requireString(args, "ticks")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var ticks []indicators.Tick
		if err := json.Unmarshal([]byte(raw), &ticks); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("decode ticks: %v", err)), nil
		}

		snap, err := indicators.Compute(symbol, ticks)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(snap)
	})
}
