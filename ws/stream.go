// Package ws is the WebSocket protocol surface: it pushes pool lifecycle
// events to subscribed clients and accepts acquire and release frames
// over the same connection (other frame types get an error frame), for clients that want a persistent
// stream instead of REST polling (spec §2 "a WebSocket stream").
//
// Grounded on the teacher's services/tunnel/service.go: the same
// gorilla/websocket Upgrader setup and per-connection read-loop shape,
// generalized from an HTTP-over-WebSocket proxy to a JSON event/command
// stream.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"browsergate/errors"
	"browsergate/services/admission"
	"browsergate/services/events"
	"browsergate/services/pool"
)

// Frame is the wire envelope for both directions: client->server command
// requests and server->client event pushes.
type Frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"requestId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Hub upgrades HTTP connections to WebSocket and fans pool events out to
// every connected client, mirroring TunnelService's sync.Map-of-clients
// shape but keyed by connection rather than tunnel id.
type Hub struct {
	events.NopObserver

	manager   *pool.Manager
	upgrader  websocket.Upgrader
	log       *zap.Logger
	admission *admission.Gate

	mu      sync.RWMutex
	clients map[*client]struct{}

	admitMu  sync.Mutex
	admitted map[string]func() // browserID -> admission.Gate release func
}

type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// NewHub builds a Hub over mgr. Register the returned Hub as an
// events.Observer (directly, or via events.Multi) so pool lifecycle
// events reach connected clients. gate may be nil, in which case acquire
// frames skip admission entirely.
func NewHub(mgr *pool.Manager, log *zap.Logger, gate *admission.Gate) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		manager:   mgr,
		log:       log,
		admission: gate,
		clients:   make(map[*client]struct{}),
		admitted:  make(map[string]func()),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// ServeHTTP upgrades the connection and serves it until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		conn.Close()
	}()

	h.readLoop(c)
}

func (h *Hub) readLoop(c *client) {
	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			return
		}
		h.dispatch(c, frame)
	}
}

func (h *Hub) dispatch(c *client, frame Frame) {
	switch frame.Type {
	case "acquire":
		h.handleAcquire(c, frame)
	case "release":
		h.handleRelease(c, frame)
	default:
		c.send(Frame{Type: "error", RequestID: frame.RequestID, Error: "unknown frame type " + frame.Type})
	}
}

type acquirePayload struct {
	SessionID      string `json:"sessionId"`
	TenantID       string `json:"tenantId,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

func (h *Hub) handleAcquire(c *client, frame Frame) {
	var p acquirePayload
	if err := json.Unmarshal(frame.Payload, &p); err != nil {
		c.send(Frame{Type: "error", RequestID: frame.RequestID, Error: "malformed payload"})
		return
	}

	deadline := time.Time{}
	if p.TimeoutSeconds > 0 {
		deadline = time.Now().Add(time.Duration(p.TimeoutSeconds) * time.Second)
	}

	var admitRelease func()
	if h.admission != nil {
		tenantID := p.TenantID
		if tenantID == "" {
			tenantID = "default"
		}
		release, err := h.admission.Admit(context.Background(), tenantID)
		if err != nil {
			c.send(Frame{Type: "error", RequestID: frame.RequestID, Error: errMessage(err)})
			return
		}
		admitRelease = release
	}

	inst, err := h.manager.Acquire(context.Background(), p.SessionID, deadline)
	if err != nil {
		if admitRelease != nil {
			admitRelease()
		}
		c.send(Frame{Type: "error", RequestID: frame.RequestID, Error: errMessage(err)})
		return
	}

	if admitRelease != nil {
		h.admitMu.Lock()
		h.admitted[inst.ID] = admitRelease
		h.admitMu.Unlock()
	}

	out, _ := json.Marshal(map[string]string{"browserId": inst.ID})
	c.send(Frame{Type: "acquired", RequestID: frame.RequestID, Payload: out})
}

type releasePayload struct {
	BrowserID string `json:"browserId"`
	SessionID string `json:"sessionId"`
}

func (h *Hub) handleRelease(c *client, frame Frame) {
	var p releasePayload
	if err := json.Unmarshal(frame.Payload, &p); err != nil {
		c.send(Frame{Type: "error", RequestID: frame.RequestID, Error: "malformed payload"})
		return
	}
	if err := h.manager.Release(p.BrowserID, p.SessionID); err != nil {
		c.send(Frame{Type: "error", RequestID: frame.RequestID, Error: errMessage(err)})
		return
	}

	h.admitMu.Lock()
	release, ok := h.admitted[p.BrowserID]
	if ok {
		delete(h.admitted, p.BrowserID)
	}
	h.admitMu.Unlock()
	if release != nil {
		release()
	}
	c.send(Frame{Type: "released", RequestID: frame.RequestID})
}

func errMessage(err error) string {
	if gwErr, ok := err.(*errors.Error); ok {
		return string(gwErr.Code) + ": " + gwErr.Message
	}
	return err.Error()
}

// broadcast pushes an event frame to every connected client. Slow or
// dead clients never block the pool: writes happen on the hub's own
// goroutine set up by the observer callback, and WriteJSON's failure
// just drops that client's message rather than blocking the caller.
func (h *Hub) broadcast(eventType string, p events.Payload) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}
	payload, _ := json.Marshal(p)
	frame := Frame{Type: eventType, Payload: payload}
	for c := range h.clients {
		go c.send(frame)
	}
}

func (h *Hub) OnBrowserCreated(p events.Payload)   { h.broadcast("browser:created", p) }
func (h *Hub) OnBrowserAcquired(p events.Payload)  { h.broadcast("browser:acquired", p) }
func (h *Hub) OnBrowserReleased(p events.Payload)  { h.broadcast("browser:released", p) }
func (h *Hub) OnBrowserRemoved(p events.Payload)   { h.broadcast("browser:removed", p) }
func (h *Hub) OnBrowserRestarted(p events.Payload) { h.broadcast("browser:restarted", p) }
func (h *Hub) OnBrowserRecycled(p events.Payload)  { h.broadcast("browser:recycled", p) }
func (h *Hub) OnPoolScaled(p events.Payload)       { h.broadcast("pool:scaled", p) }
func (h *Hub) OnPoolAlert(p events.Payload)        { h.broadcast("pool:alert", p) }

var _ events.Observer = (*Hub)(nil)
