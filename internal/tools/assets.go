package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jdsingh122918/finwatch/internal/domain"
)

// refreshAssets asks the agent for a fresh broker catalog and replaces
// the cache. The agent owns the HTTP call so API credentials never
// leave the worker.
func refreshAssets(ctx context.Context, deps Deps) error {
	resp, err := deps.Bridge.SendRequest(ctx, "assets:fetch", nil, 0)
	if err != nil {
		return fmt.Errorf("fetch assets: %w", err)
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("fetch assets: %w", resp.Err())
	}

	var assets []domain.Asset
	if err := json.Unmarshal(resp.Result, &assets); err != nil {
		return fmt.Errorf("decode asset catalog: %w", err)
	}
	if len(assets) == 0 {
		return fmt.Errorf("agent returned empty asset catalog")
	}
	return deps.Store.ReplaceAssets(assets)
}
