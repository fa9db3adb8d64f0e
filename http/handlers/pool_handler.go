package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"

	"browsergate/errors"
	"browsergate/services/admission"
	"browsergate/services/commands"
	"browsergate/services/driver"
	"browsergate/services/pool"
	"browsergate/services/sessionstore"
)

// PoolHandler exposes the Pool Manager over REST. It never implements
// pool logic itself — every method parses its wire format and calls
// straight into pool.Manager, mapping results back (spec §6 "thin
// adapter"). When Commands/PageDriver are set, CreatePage/ClosePage also
// register/unregister the page's command.Context so CommandsHandler can
// immediately serve navigate/evaluate/screenshot against it. When
// Sessions is set, Acquire rejects an unknown or expired sessionId
// before it ever reaches the pool (spec §6 "Consumed: Session Store" —
// the pool itself never validates sessionId, adapters do). When
// Admission is set, Acquire calls Gate.Admit for the request's tenant
// before calling into the pool at all, so a denied request never reaches
// the circuit breaker or waiter queue; the matching release is deferred
// until the browser is actually released back to the pool.
type PoolHandler struct {
	Manager   *pool.Manager
	Commands  *CommandsHandler
	PageDrv   driver.PageDriver
	Sessions  sessionstore.Store
	CmdOpts   commands.Options
	Admission *admission.Gate

	mu       sync.Mutex
	admitted map[string]func() // browserID -> admission.Gate release func
}

func NewPoolHandler(mgr *pool.Manager, cmds *CommandsHandler, pageDrv driver.PageDriver, sessions sessionstore.Store, cmdOpts commands.Options, gate *admission.Gate) *PoolHandler {
	return &PoolHandler{
		Manager:   mgr,
		Commands:  cmds,
		PageDrv:   pageDrv,
		Sessions:  sessions,
		CmdOpts:   cmdOpts,
		Admission: gate,
		admitted:  make(map[string]func()),
	}
}

type acquireRequest struct {
	SessionID      string `json:"sessionId"`
	TenantID       string `json:"tenantId,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

type acquireResponse struct {
	BrowserID string `json:"browserId"`
}

// Acquire handles POST /v1/browsers/acquire.
func (h *PoolHandler) Acquire(w http.ResponseWriter, r *http.Request) (any, int, error) {
	var req acquireRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, http.StatusBadRequest, errors.InvalidConfig("malformed request body")
	}
	if req.SessionID == "" {
		return nil, http.StatusBadRequest, errors.InvalidConfig("sessionId is required")
	}

	if h.Sessions != nil {
		rec, err := h.Sessions.Get(r.Context(), req.SessionID)
		if err != nil {
			return nil, 0, err
		}
		if rec.Expired(time.Now()) {
			return nil, 0, errors.UnauthorizedSession(req.SessionID)
		}
		_ = h.Sessions.Touch(r.Context(), req.SessionID, time.Now())
	}

	deadline := time.Time{}
	if req.TimeoutSeconds > 0 {
		deadline = time.Now().Add(time.Duration(req.TimeoutSeconds) * time.Second)
	}

	var admitRelease func()
	if h.Admission != nil {
		tenantID := req.TenantID
		if tenantID == "" {
			tenantID = "default"
		}
		release, err := h.Admission.Admit(r.Context(), tenantID)
		if err != nil {
			return nil, 0, err
		}
		admitRelease = release
	}

	inst, err := h.Manager.Acquire(r.Context(), req.SessionID, deadline)
	if err != nil {
		if admitRelease != nil {
			admitRelease()
		}
		return nil, 0, err
	}

	if admitRelease != nil {
		h.mu.Lock()
		h.admitted[inst.ID] = admitRelease
		h.mu.Unlock()
	}
	return acquireResponse{BrowserID: inst.ID}, http.StatusOK, nil
}

type releaseRequest struct {
	SessionID string `json:"sessionId"`
}

// Release handles POST /v1/browsers/{browserId}/release.
func (h *PoolHandler) Release(w http.ResponseWriter, r *http.Request) (any, int, error) {
	browserID := chi.URLParam(r, "browserId")
	var req releaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, http.StatusBadRequest, errors.InvalidConfig("malformed request body")
	}
	if err := h.Manager.Release(browserID, req.SessionID); err != nil {
		return nil, 0, err
	}

	h.mu.Lock()
	release, ok := h.admitted[browserID]
	if ok {
		delete(h.admitted, browserID)
	}
	h.mu.Unlock()
	if release != nil {
		release()
	}
	return nil, http.StatusNoContent, nil
}

type createPageRequest struct {
	SessionID string `json:"sessionId"`
}

type createPageResponse struct {
	PageID string `json:"pageId"`
}

// CreatePage handles POST /v1/browsers/{browserId}/pages.
func (h *PoolHandler) CreatePage(w http.ResponseWriter, r *http.Request) (any, int, error) {
	browserID := chi.URLParam(r, "browserId")
	var req createPageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, http.StatusBadRequest, errors.InvalidConfig("malformed request body")
	}
	pageID, err := h.Manager.CreatePage(r.Context(), browserID, req.SessionID)
	if err != nil {
		return nil, 0, err
	}

	if h.Commands != nil && h.PageDrv != nil {
		if handle, ok := h.Manager.PageHandle(browserID, pageID); ok {
			h.Commands.Register(pageID, commands.New(browserID, req.SessionID, pageID, handle, h.PageDrv, h.CmdOpts))
		}
	}

	return createPageResponse{PageID: pageID}, http.StatusCreated, nil
}

// ClosePage handles DELETE /v1/browsers/{browserId}/pages/{pageId}.
func (h *PoolHandler) ClosePage(w http.ResponseWriter, r *http.Request) (any, int, error) {
	browserID := chi.URLParam(r, "browserId")
	pageID := chi.URLParam(r, "pageId")
	sessionID := r.URL.Query().Get("sessionId")

	if err := h.Manager.ClosePage(r.Context(), browserID, sessionID, pageID); err != nil {
		return nil, 0, err
	}
	if h.Commands != nil {
		h.Commands.Unregister(pageID)
	}
	return nil, http.StatusNoContent, nil
}

// ListInstances handles GET /v1/browsers.
func (h *PoolHandler) ListInstances(w http.ResponseWriter, r *http.Request) (any, int, error) {
	return h.Manager.ListInstances(), http.StatusOK, nil
}

// MetricsSnapshot handles GET /v1/metrics.
func (h *PoolHandler) MetricsSnapshot(w http.ResponseWriter, r *http.Request) (any, int, error) {
	return h.Manager.MetricsSnapshot(), http.StatusOK, nil
}

type shutdownRequest struct {
	Force bool `json:"force"`
}

// Shutdown handles POST /v1/shutdown.
func (h *PoolHandler) Shutdown(w http.ResponseWriter, r *http.Request) (any, int, error) {
	var req shutdownRequest
	_ = json.NewDecoder(r.Body).Decode(&req)
	if err := h.Manager.Shutdown(r.Context(), req.Force); err != nil {
		return nil, 0, err
	}
	return nil, http.StatusAccepted, nil
}
