package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gamma-omg/pwnaudit/sortedfile"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const lookupToolName = "pwned_hash_lookup"

type hashLookup interface {
	Lookup(ctx context.Context, hash string) (sortedfile.Result, error)
}

func NewLookupServer(lookup hashLookup) *server.MCPServer {
	tool := mcp.NewTool(lookupToolName,
		mcp.WithDescription("Checks whether a password hash appears in the breached password reference file"),
		mcp.WithString("hash",
			mcp.Required(),
			mcp.Description("Hex encoded password hash in the same form as the reference file (NTLM or SHA-1)"),
		))

	srv := server.NewMCPServer("pwnaudit", "0.1.0", server.WithToolCapabilities(false))
	srv.AddTool(tool, lookupHandler(lookup))

	return srv
}

func lookupHandler(lookup hashLookup) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		hash, err := request.RequireString("hash")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		hash = strings.ToUpper(strings.TrimSpace(hash))
		if !isHex(hash) {
			return mcp.NewToolResultError(fmt.Sprintf("%q is not a hex encoded hash", hash)), nil
		}

		res, err := lookup.Lookup(ctx, hash)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		raw, err := json.Marshal(struct {
			Hash  string `json:"hash"`
			Pwned bool   `json:"pwned"`
			Count uint64 `json:"count"`
		}{
			Hash:  hash,
			Pwned: res.Found,
			Count: res.Count,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		return mcp.NewToolResultText(string(raw)), nil
	}
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}
