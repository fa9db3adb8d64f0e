package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"browsergate/services/admission"
	"browsergate/services/commands"
	"browsergate/services/driver"
	"browsergate/services/pool"
)

// Version is surfaced to MCP clients during the initialize handshake.
const Version = "0.1.0"

// NewServer builds the MCP tool server over mgr. pageDrv drives whatever
// navigate/evaluate/screenshot commands a created page supports; pass
// the same driver.PageDriver the gateway launched mgr's browsers with.
// cmdOpts configures screenshot/recording capture the same way it does
// for the REST adapter's PoolHandler. gate may be nil, in which case
// acquire_browser skips admission entirely.
func NewServer(mgr *pool.Manager, pageDrv driver.PageDriver, cmdOpts commands.Options, gate *admission.Gate) *server.MCPServer {
	registry := newPageRegistry()
	tracker := newAdmissionTracker()

	mcpServer := server.NewMCPServer("browsergate", Version, server.WithToolCapabilities(true))

	mcpServer.AddTool(acquireTool(), handleAcquire(mgr, gate, tracker))
	mcpServer.AddTool(releaseTool(), handleRelease(mgr, tracker))
	mcpServer.AddTool(createPageTool(), handleCreatePage(mgr, registry, pageDrv, cmdOpts))
	mcpServer.AddTool(navigateTool(), handleNavigate(registry))
	mcpServer.AddTool(evaluateTool(), handleEvaluate(registry))
	mcpServer.AddTool(screenshotTool(), handleScreenshot(registry))

	return mcpServer
}

// ServeStdio blocks serving MCP requests over stdin/stdout, for
// agentic/LLM clients that spawn the gateway as a subprocess.
func ServeStdio(mcpServer *server.MCPServer) error {
	return server.ServeStdio(mcpServer)
}
