package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jdsingh122918/finwatch/internal/domain"
)

func registerCredentialTools(s *server.MCPServer, deps Deps) {
	s.AddTool(mcp.NewTool("credentials_set",
		mcp.WithDescription("Store an Alpaca API key pair for a trading mode, encrypted at rest."),
		mcp.WithString("mode", mcp.Required(), mcp.Description("paper or live")),
		mcp.WithString("key_id", mcp.Required(), mcp.Description("Alpaca API key id")),
		mcp.WithString("secret_key", mcp.Required(), mcp.Description("Alpaca API secret")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		mode, err := requireString(args, "mode")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		keyID, err := requireString(args, "key_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		secretKey, err := requireString(args, "secret_key")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		if err := deps.Secrets.Set(mode, domain.Credentials{KeyID: keyID, SecretKey: secretKey}); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(domain.CredentialsMasked{KeyID: keyID, HasSecret: true})
	})

	s.AddTool(mcp.NewTool("credentials_get",
		mcp.WithDescription("Return the stored key id for a trading mode. The secret itself is never returned."),
		mcp.WithString("mode", mcp.Required(), mcp.Description("paper or live")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		mode, err := requireString(req.GetArguments(), "mode")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		creds, err := loadCredentials(deps, mode)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if creds == nil {
			return jsonResult(domain.CredentialsMasked{})
		}
		return jsonResult(domain.CredentialsMasked{KeyID: creds.KeyID, HasSecret: creds.SecretKey != ""})
	})

	s.AddTool(mcp.NewTool("credentials_exists",
		mcp.WithDescription("Report whether credentials are stored for a trading mode."),
		mcp.WithString("mode", mcp.Required(), mcp.Description("paper or live")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		mode, err := requireString(req.GetArguments(), "mode")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		sealed, err := deps.Secrets.Exists(mode)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if !sealed {
			creds, err := deps.Store.Credentials(mode)
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			sealed = creds != nil
		}
		return jsonResult(map[string]bool{"exists": sealed})
	})
}

// loadCredentials prefers the sealed store and falls back to the
// database for hosts that never migrated.
func loadCredentials(deps Deps, mode string) (*domain.Credentials, error) {
	creds, err := deps.Secrets.Get(mode)
	if err != nil {
		return nil, err
	}
	if creds != nil {
		return creds, nil
	}
	return deps.Store.Credentials(mode)
}
