// Package mcp exposes the gateway's acquire/release/navigate/evaluate/
// screenshot surface as MCP tools (spec §2's "JSON-RPC tool server on
// standard I/O or HTTP/WebSocket"), for agentic/LLM-driven clients.
//
// Grounded on ternarybob-quaero's cmd/quaero-mcp (tools.go/handlers.go/
// main.go): mark3labs/mcp-go's NewTool/WithString/WithNumber builders
// for schema, ToolHandlerFunc closures over a service for execution, and
// server.ServeStdio for the transport.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

func acquireTool() mcp.Tool {
	return mcp.NewTool("acquire_browser",
		mcp.WithDescription("Acquire a browser instance bound to a session"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Caller's session id")),
		mcp.WithString("tenant_id", mcp.Description("Tenant/organization id for admission rate limiting (default: \"default\")")),
		mcp.WithNumber("timeout_seconds", mcp.Description("Max time to wait for a free browser (default: pool's acquisitionTimeout)")),
	)
}

func releaseTool() mcp.Tool {
	return mcp.NewTool("release_browser",
		mcp.WithDescription("Release a previously acquired browser instance"),
		mcp.WithString("browser_id", mcp.Required(), mcp.Description("Browser id returned by acquire_browser")),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id that acquired the browser")),
	)
}

func createPageTool() mcp.Tool {
	return mcp.NewTool("create_page",
		mcp.WithDescription("Open a new page/tab in an acquired browser"),
		mcp.WithString("browser_id", mcp.Required(), mcp.Description("Browser id returned by acquire_browser")),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id that acquired the browser")),
	)
}

func navigateTool() mcp.Tool {
	return mcp.NewTool("navigate",
		mcp.WithDescription("Navigate a page to a URL"),
		mcp.WithString("page_id", mcp.Required(), mcp.Description("Page id returned by create_page")),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id that owns the page")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Destination URL")),
	)
}

func evaluateTool() mcp.Tool {
	return mcp.NewTool("evaluate",
		mcp.WithDescription("Run JavaScript in the page and return the result"),
		mcp.WithString("page_id", mcp.Required(), mcp.Description("Page id returned by create_page")),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id that owns the page")),
		mcp.WithString("script", mcp.Required(), mcp.Description("JavaScript expression to evaluate")),
	)
}

func screenshotTool() mcp.Tool {
	return mcp.NewTool("screenshot",
		mcp.WithDescription("Capture a screenshot of the page"),
		mcp.WithString("page_id", mcp.Required(), mcp.Description("Page id returned by create_page")),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Session id that owns the page")),
		mcp.WithBoolean("full_page", mcp.Description("Capture the full scrollable page instead of just the viewport")),
	)
}
