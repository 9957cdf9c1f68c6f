package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all Bridgewatch tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("bridgewatch", "1.0.0")
	client := NewBridgewatchClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolScanBridge, h.HandleScanBridge)
	s.AddTool(ToolGetScan, h.HandleGetScan)
	s.AddTool(ToolListScans, h.HandleListScans)
	s.AddTool(ToolListAlerts, h.HandleListAlerts)
	s.AddTool(ToolValidateSignature, h.HandleValidateSignature)
	s.AddTool(ToolListPatterns, h.HandleListPatterns)
	s.AddTool(ToolGetPattern, h.HandleGetPattern)

	return s
}
