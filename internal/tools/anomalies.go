package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jdsingh122918/finwatch/internal/domain"
)

func registerAnomalyTools(s *server.MCPServer, deps Deps) {
	s.AddTool(mcp.NewTool("anomalies_list",
		mcp.WithDescription("List detected anomalies, newest first. All filters are optional."),
		mcp.WithArray("severities", mcp.Description("Restrict to these severities: low, medium, high, critical")),
		mcp.WithString("source", mcp.Description("Restrict to one data source")),
		mcp.WithString("symbol", mcp.Description("Restrict to one symbol")),
		mcp.WithNumber("since", mcp.Description("Only anomalies at or after this Unix millisecond timestamp")),
		mcp.WithNumber("limit", mcp.Description("Maximum rows to return, default 100")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		filter := domain.AnomalyFilter{
			Source: optionalString(args, "source"),
			Symbol: optionalString(args, "symbol"),
			Since:  int64(optionalNumber(args, "since")),
			Limit:  int(optionalNumber(args, "limit")),
		}
		for _, sev := range optionalStringSlice(args, "severities") {
			filter.Severities = append(filter.Severities, domain.Severity(sev))
		}

		anomalies, err := deps.Store.ListAnomalies(filter)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(anomalies)
	})

	s.AddTool(mcp.NewTool("feedback_submit",
		mcp.WithDescription("Record an analyst verdict on an anomaly. The agent learns from verdicts on its next cycle."),
		mcp.WithString("anomaly_id", mcp.Required(), mcp.Description("ID of the anomaly being judged")),
		mcp.WithString("verdict", mcp.Required(), mcp.Description("confirmed, false_positive, or unsure")),
		mcp.WithString("note", mcp.Description("Optional free-form note")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		anomalyID, err := requireString(args, "anomaly_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		verdict, err := requireString(args, "verdict")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		fb, err := deps.Store.InsertFeedback(domain.AnomalyFeedback{
			AnomalyID: anomalyID,
			Verdict:   domain.FeedbackVerdict(verdict),
			Note:      optionalString(args, "note"),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if deps.Bridge.IsRunning() {
			if err := deps.Bridge.SendNotification("feedback:submitted", map[string]string{"anomalyId": anomalyID}); err != nil {
				deps.Logger.Printf("feedback:submitted notification failed: %v", err)
			}
		}
		return jsonResult(fb)
	})
}
