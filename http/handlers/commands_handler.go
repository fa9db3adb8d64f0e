package handlers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/go-chi/chi"

	"browsergate/errors"
	"browsergate/services/commands"
)

// CommandsHandler exposes navigate/evaluate/screenshot over REST for a
// page a client already created via PoolHandler.CreatePage. Contexts are
// registered by the adapter wiring once a page is created; this handler
// only looks one up and authorizes against it.
type CommandsHandler struct {
	mu       sync.RWMutex
	contexts map[string]*commands.Context // keyed by pageId
}

func NewCommandsHandler() *CommandsHandler {
	return &CommandsHandler{contexts: make(map[string]*commands.Context)}
}

// Register makes cmd reachable by pageId. Call this right after a page
// is created (e.g. from PoolHandler.CreatePage's caller).
func (h *CommandsHandler) Register(pageID string, cmd *commands.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.contexts[pageID] = cmd
}

// Unregister drops a page's command context (call on ClosePage).
func (h *CommandsHandler) Unregister(pageID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.contexts, pageID)
}

func (h *CommandsHandler) lookup(pageID string) (*commands.Context, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	cmd, ok := h.contexts[pageID]
	if !ok {
		return nil, errors.NotFound("page " + pageID + " not found")
	}
	return cmd, nil
}

type navigateRequest struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// Navigate handles POST /v1/pages/{pageId}/navigate.
func (h *CommandsHandler) Navigate(w http.ResponseWriter, r *http.Request) (any, int, error) {
	cmd, err := h.lookup(chi.URLParam(r, "pageId"))
	if err != nil {
		return nil, 0, err
	}
	var req navigateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, http.StatusBadRequest, errors.InvalidConfig("malformed request body")
	}
	if err := cmd.Navigate(r.Context(), req.SessionID, req.URL); err != nil {
		return nil, 0, err
	}
	return nil, http.StatusNoContent, nil
}

type evaluateRequest struct {
	SessionID string `json:"sessionId"`
	Script    string `json:"script"`
}

type evaluateResponse struct {
	Result any `json:"result"`
}

// Evaluate handles POST /v1/pages/{pageId}/evaluate.
func (h *CommandsHandler) Evaluate(w http.ResponseWriter, r *http.Request) (any, int, error) {
	cmd, err := h.lookup(chi.URLParam(r, "pageId"))
	if err != nil {
		return nil, 0, err
	}
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, http.StatusBadRequest, errors.InvalidConfig("malformed request body")
	}
	result, err := cmd.Evaluate(r.Context(), req.SessionID, req.Script)
	if err != nil {
		return nil, 0, err
	}
	return evaluateResponse{Result: result}, http.StatusOK, nil
}

// Screenshot handles GET /v1/pages/{pageId}/screenshot?sessionId=...&fullPage=true.
func (h *CommandsHandler) Screenshot(w http.ResponseWriter, r *http.Request) (any, int, error) {
	cmd, err := h.lookup(chi.URLParam(r, "pageId"))
	if err != nil {
		return nil, 0, err
	}
	sessionID := r.URL.Query().Get("sessionId")
	fullPage := r.URL.Query().Get("fullPage") == "true"

	shot, err := cmd.Screenshot(r.Context(), sessionID, fullPage)
	if err != nil {
		return nil, 0, err
	}
	return shot, http.StatusOK, nil
}
