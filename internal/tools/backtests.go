package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jdsingh122918/finwatch/internal/domain"
)

func registerBacktestTools(s *server.MCPServer, deps Deps) {
	s.AddTool(mcp.NewTool("backtest_start",
		mcp.WithDescription("Create a backtest run and hand it to the agent for execution. Returns the run record in the running state."),
		mcp.WithString("config", mcp.Required(), mcp.Description("JSON backtest configuration: symbols, date range, strategy parameters")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw, err := requireString(req.GetArguments(), "config")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		var check map[string]any
		if err := json.Unmarshal([]byte(raw), &check); err != nil {
			return mcp.NewToolResultError("config must be a JSON object"), nil
		}

		bt, err := deps.Store.CreateBacktest(json.RawMessage(raw))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if !deps.Bridge.IsRunning() {
			_ = deps.Store.UpdateBacktestStatus(bt.ID, domain.BacktestFailed, nil, "agent not running")
			return mcp.NewToolResultError("agent not running; start it before running backtests"), nil
		}
		resp, err := deps.Bridge.SendRequest(ctx, "backtest:start", map[string]any{
			"backtestId": bt.ID,
			"config":     json.RawMessage(raw),
		}, 0)
		if err != nil {
			_ = deps.Store.UpdateBacktestStatus(bt.ID, domain.BacktestFailed, nil, err.Error())
			return mcp.NewToolResultError(fmt.Sprintf("start backtest: %v", err)), nil
		}
		if !resp.IsSuccess() {
			_ = deps.Store.UpdateBacktestStatus(bt.ID, domain.BacktestFailed, nil, resp.Error.Message)
			return mcp.NewToolResultError(resp.Err().Error()), nil
		}
		return jsonResult(bt)
	})

	s.AddTool(mcp.NewTool("backtest_status",
		mcp.WithDescription("Return one backtest run with its status, progress, and results."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Backtest run ID")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireString(req.GetArguments(), "id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		bt, err := deps.Store.Backtest(id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(bt)
	})

	s.AddTool(mcp.NewTool("backtest_list",
		mcp.WithDescription("List all backtest runs, newest first."),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		runs, err := deps.Store.ListBacktests()
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(runs)
	})

	s.AddTool(mcp.NewTool("backtest_trades",
		mcp.WithDescription("List a backtest's simulated fills in time order."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Backtest run ID")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireString(req.GetArguments(), "id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		trades, err := deps.Store.ListBacktestTrades(id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(trades)
	})

	s.AddTool(mcp.NewTool("backtest_cancel",
		mcp.WithDescription("Cancel a running backtest. Tells the agent to abort and marks the run cancelled."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Backtest run ID")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireString(req.GetArguments(), "id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if deps.Bridge.IsRunning() {
			if err := deps.Bridge.SendNotification("backtest:cancel", map[string]string{"backtestId": id}); err != nil {
				deps.Logger.Printf("backtest:cancel notification failed: %v", err)
			}
		}
		if err := deps.Store.UpdateBacktestStatus(id, domain.BacktestCancelled, nil, ""); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		bt, err := deps.Store.Backtest(id)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(bt)
	})

	s.AddTool(mcp.NewTool("backtest_delete",
		mcp.WithDescription("Delete a backtest run and its recorded trades."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Backtest run ID")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requireString(req.GetArguments(), "id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if err := deps.Store.DeleteBacktest(id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(`{"deleted":true}`), nil
	})
}
