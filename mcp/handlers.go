package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"browsergate/services/admission"
	"browsergate/services/commands"
	"browsergate/services/driver"
	"browsergate/services/pool"
)

func textResult(s string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{Content: []mcplib.Content{mcplib.NewTextContent(s)}}
}

func errResult(err error) *mcplib.CallToolResult {
	return textResult(fmt.Sprintf("error: %v", err))
}

// pageRegistry tracks command.Context instances by pageId so the
// navigate/evaluate/screenshot tools can look one up, mirroring
// http/handlers.CommandsHandler's registry.
type pageRegistry struct {
	mu       sync.RWMutex
	contexts map[string]*commands.Context
}

func newPageRegistry() *pageRegistry {
	return &pageRegistry{contexts: make(map[string]*commands.Context)}
}

func (r *pageRegistry) put(pageID string, cmd *commands.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contexts[pageID] = cmd
}

func (r *pageRegistry) get(pageID string) (*commands.Context, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.contexts[pageID]
	return cmd, ok
}

// admissionTracker remembers which admission.Gate release func belongs to
// a given browser, so a tool call to release_browser can give back the
// concurrency-cap slot acquire_browser consumed. Mirrors pageRegistry's
// mutex-guarded map shape.
type admissionTracker struct {
	mu       sync.Mutex
	released map[string]func()
}

func newAdmissionTracker() *admissionTracker {
	return &admissionTracker{released: make(map[string]func())}
}

func (t *admissionTracker) put(browserID string, release func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.released[browserID] = release
}

func (t *admissionTracker) take(browserID string) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	release := t.released[browserID]
	delete(t.released, browserID)
	return release
}

func handleAcquire(mgr *pool.Manager, gate *admission.Gate, tracker *admissionTracker) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return errResult(err), nil
		}
		tenantID := req.GetString("tenant_id", "default")
		timeoutSeconds := req.GetInt("timeout_seconds", 0)

		deadline := time.Time{}
		if timeoutSeconds > 0 {
			deadline = time.Now().Add(time.Duration(timeoutSeconds) * time.Second)
		}

		var admitRelease func()
		if gate != nil {
			release, err := gate.Admit(ctx, tenantID)
			if err != nil {
				return errResult(err), nil
			}
			admitRelease = release
		}

		inst, err := mgr.Acquire(ctx, sessionID, deadline)
		if err != nil {
			if admitRelease != nil {
				admitRelease()
			}
			return errResult(err), nil
		}
		if admitRelease != nil {
			tracker.put(inst.ID, admitRelease)
		}
		return textResult(fmt.Sprintf("browser_id=%s", inst.ID)), nil
	}
}

func handleRelease(mgr *pool.Manager, tracker *admissionTracker) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		browserID, err := req.RequireString("browser_id")
		if err != nil {
			return errResult(err), nil
		}
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return errResult(err), nil
		}
		if err := mgr.Release(browserID, sessionID); err != nil {
			return errResult(err), nil
		}
		if release := tracker.take(browserID); release != nil {
			release()
		}
		return textResult("released"), nil
	}
}

func handleCreatePage(mgr *pool.Manager, registry *pageRegistry, pageDrv driver.PageDriver, cmdOpts commands.Options) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		browserID, err := req.RequireString("browser_id")
		if err != nil {
			return errResult(err), nil
		}
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return errResult(err), nil
		}

		pageID, err := mgr.CreatePage(ctx, browserID, sessionID)
		if err != nil {
			return errResult(err), nil
		}

		handle, _ := mgr.PageHandle(browserID, pageID)
		registry.put(pageID, commands.New(browserID, sessionID, pageID, handle, pageDrv, cmdOpts))
		return textResult(fmt.Sprintf("page_id=%s", pageID)), nil
	}
}

func lookupPage(registry *pageRegistry, pageID string) (*commands.Context, error) {
	cmd, ok := registry.get(pageID)
	if !ok {
		return nil, fmt.Errorf("page %s not registered", pageID)
	}
	return cmd, nil
}

func handleNavigate(registry *pageRegistry) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		pageID, err := req.RequireString("page_id")
		if err != nil {
			return errResult(err), nil
		}
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return errResult(err), nil
		}
		url, err := req.RequireString("url")
		if err != nil {
			return errResult(err), nil
		}

		cmd, err := lookupPage(registry, pageID)
		if err != nil {
			return errResult(err), nil
		}
		if err := cmd.Navigate(ctx, sessionID, url); err != nil {
			return errResult(err), nil
		}
		return textResult("navigated"), nil
	}
}

func handleEvaluate(registry *pageRegistry) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		pageID, err := req.RequireString("page_id")
		if err != nil {
			return errResult(err), nil
		}
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return errResult(err), nil
		}
		script, err := req.RequireString("script")
		if err != nil {
			return errResult(err), nil
		}

		cmd, err := lookupPage(registry, pageID)
		if err != nil {
			return errResult(err), nil
		}
		result, err := cmd.Evaluate(ctx, sessionID, script)
		if err != nil {
			return errResult(err), nil
		}
		return textResult(fmt.Sprintf("%v", result)), nil
	}
}

func handleScreenshot(registry *pageRegistry) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
		pageID, err := req.RequireString("page_id")
		if err != nil {
			return errResult(err), nil
		}
		sessionID, err := req.RequireString("session_id")
		if err != nil {
			return errResult(err), nil
		}
		fullPage := req.GetBool("full_page", false)

		cmd, err := lookupPage(registry, pageID)
		if err != nil {
			return errResult(err), nil
		}
		shot, err := cmd.Screenshot(ctx, sessionID, fullPage)
		if err != nil {
			return errResult(err), nil
		}
		if shot.StorageKey != "" {
			return textResult(fmt.Sprintf("stored at %s (%d bytes)", shot.StorageKey, shot.Bytes)), nil
		}
		return &mcplib.CallToolResult{
			Content: []mcplib.Content{mcplib.NewImageContent(string(shot.Inline), "image/png")},
		}, nil
	}
}
