package main

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ternarybob/ordino/internal/common"
	"github.com/ternarybob/ordino/internal/models"
)

// envelopeResult serializes an envelope as the tool's single text content.
// Serialization failures fall back to a plain error string rather than
// breaking the MCP framing.
func envelopeResult(env *models.Envelope) *mcp.CallToolResult {
	data, err := json.Marshal(env)
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.NewTextContent(fmt.Sprintf(`{"success":false,"error":{"code":"INTERNAL_ERROR","message":%q}}`, err.Error())),
			},
		}
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
	}
}

func okResult(data interface{}, message string) *mcp.CallToolResult {
	return envelopeResult(models.OkEnvelope(data, message, common.GetVersion()))
}

func errResult(err error) *mcp.CallToolResult {
	return envelopeResult(models.ErrEnvelope(models.AsDomainError(err), common.GetVersion()))
}

func validationResult(format string, args ...interface{}) *mcp.CallToolResult {
	return errResult(models.ValidationErr(format, args...))
}

// rebind converts a loosely-typed argument entry into a request struct via a
// JSON round trip, so batched array entries get the same decoding rules as
// top-level arguments.
func rebind(entry map[string]interface{}, target interface{}) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}
