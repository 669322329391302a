package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
)

const schemaVersion = "1"

// envelope wraps every tool payload in the same shape.
func envelope(name, status string, payload any) *mcp.CallToolResult {
	b, err := json.MarshalIndent(map[string]any{
		"tool":           name,
		"status":         status,
		"schema_version": schemaVersion,
		"payload":        payload,
	}, "", "  ")
	if err != nil {
		b = []byte(fmt.Sprintf(`{"tool":%q,"status":"tool_error","payload":{"message":%q}}`, name, err.Error()))
	}
	res := mcp.NewToolResultText(string(b))
	res.IsError = status != "ok"
	return res
}

// safeInvokeTool turns handler errors and panics into tool_error results
// so a bad request never closes the transport.
func safeInvokeTool(name string, h func() (any, error)) (resp *mcp.CallToolResult) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("tool panic: %v", r)
			slog.Error(msg, slog.String("tool", name))
			resp = envelope(name, "tool_error", map[string]any{"message": msg})
		}
	}()
	payload, err := h()
	if err != nil {
		return envelope(name, "tool_error", errorPayload(err))
	}
	return envelope(name, "ok", payload)
}
