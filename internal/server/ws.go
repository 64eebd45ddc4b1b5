package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/client"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/metrics"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/suggest"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsOutboxSize = 256
)

// Inbound is a message from the form. Mount carries Field and an optional
// initial Value and returns a session id; every other type addresses that
// session.
type Inbound struct {
	Type    string `json:"type"`
	Ref     string `json:"ref,omitempty"`
	Field   string `json:"field,omitempty"`
	Session string `json:"session,omitempty"`
	Value   string `json:"value,omitempty"`
}

// Outbound is a reply or a session event. A suggestions event without a
// suggestions field means the list is empty.
type Outbound struct {
	Type        string              `json:"type"`
	Ref         string              `json:"ref,omitempty"`
	Session     string              `json:"session,omitempty"`
	Field       string              `json:"field,omitempty"`
	Group       []string            `json:"group,omitempty"`
	Suggestions []models.Suggestion `json:"suggestions,omitempty"`
	Loading     *bool               `json:"loading,omitempty"`
	Open        *bool               `json:"open,omitempty"`
	Error       string              `json:"error,omitempty"`
}

var errUnknownSession = errors.New("unknown session")

// FieldsHandler upgrades to a websocket where one connection is one form.
// Closing the connection unmounts every field the form mounted.
type FieldsHandler struct {
	engine   *suggest.Engine
	clients  *client.Manager
	metrics  *metrics.Metrics
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu    sync.Mutex
	forms map[*formConn]struct{}
}

func NewFieldsHandler(engine *suggest.Engine, clients *client.Manager, m *metrics.Metrics, logger *slog.Logger) *FieldsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if clients == nil {
		clients = client.NewManager()
	}
	return &FieldsHandler{
		engine:  engine,
		clients: clients,
		metrics: m,
		logger:  logger.With("component", "ws"),
		forms:   make(map[*formConn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(*http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

type formConn struct {
	conn   *websocket.Conn
	form   *suggest.Manager
	client *client.Client
	outbox chan Outbound
	done   chan struct{}
	once   sync.Once
	logger *slog.Logger
}

func (h *FieldsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	fc := &formConn{
		conn:   conn,
		form:   h.engine.NewManager(),
		outbox: make(chan Outbound, wsOutboxSize),
		done:   make(chan struct{}),
	}
	fc.client = h.clients.AddClient(r.RemoteAddr, "ws", conn)
	fc.logger = h.logger.With("client", fc.client.ID)
	h.metrics.ConnectionOpened("ws")
	h.track(fc)

	go fc.writeLoop()
	fc.readLoop()

	h.untrack(fc)
	fc.stop()
	fc.form.CloseAll()
	h.clients.RemoveClient(fc.client.ID)
	h.metrics.ConnectionClosed("ws")
	conn.Close()
}

func (h *FieldsHandler) track(fc *formConn) {
	h.mu.Lock()
	h.forms[fc] = struct{}{}
	h.mu.Unlock()
}

func (h *FieldsHandler) untrack(fc *formConn) {
	h.mu.Lock()
	delete(h.forms, fc)
	h.mu.Unlock()
}

// CloseAll unmounts the fields of every connected form and drops the
// connections. Pending write-backs are cancelled, so call it before draining
// the engine.
func (h *FieldsHandler) CloseAll() {
	h.mu.Lock()
	forms := make([]*formConn, 0, len(h.forms))
	for fc := range h.forms {
		forms = append(forms, fc)
	}
	h.mu.Unlock()

	for _, fc := range forms {
		fc.form.CloseAll()
		fc.stop()
		fc.conn.Close()
	}
}

// Forms reports how many forms are connected.
func (h *FieldsHandler) Forms() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.forms)
}

func (fc *formConn) stop() {
	fc.once.Do(func() { close(fc.done) })
}

// send queues msg for the writer. It gives up once the connection is gone.
func (fc *formConn) send(msg Outbound) {
	select {
	case fc.outbox <- msg:
	case <-fc.done:
	}
}

func (fc *formConn) writeLoop() {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-fc.outbox:
			data, err := json.Marshal(msg)
			if err != nil {
				fc.logger.Error("encode message", "type", msg.Type, "error", err)
				continue
			}
			_ = fc.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := fc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				fc.stop()
				fc.conn.Close()
				return
			}
		case <-ticker.C:
			_ = fc.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := fc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				fc.stop()
				fc.conn.Close()
				return
			}
		case <-fc.done:
			return
		}
	}
}

func (fc *formConn) readLoop() {
	_ = fc.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	fc.conn.SetPongHandler(func(string) error {
		return fc.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, data, err := fc.conn.ReadMessage()
		if err != nil {
			return
		}
		_ = fc.conn.SetReadDeadline(time.Now().Add(wsPongWait))
		fc.client.Touch()

		var msg Inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			fc.send(Outbound{Type: "error", Error: "invalid message"})
			continue
		}
		if err := fc.dispatch(msg); err != nil {
			fc.send(Outbound{Type: "error", Ref: msg.Ref, Session: msg.Session, Error: err.Error()})
		}
	}
}

func (fc *formConn) dispatch(msg Inbound) error {
	if msg.Type == "mount" {
		s, err := fc.form.Open(msg.Field, msg.Value, fc.forward)
		if err != nil {
			return err
		}
		fc.send(Outbound{
			Type:    "mounted",
			Ref:     msg.Ref,
			Session: s.ID(),
			Field:   s.FieldID(),
			Group:   s.Group(),
		})
		return nil
	}

	s, ok := fc.form.Get(msg.Session)
	if !ok {
		return errUnknownSession
	}

	switch msg.Type {
	case "input":
		return s.SetValue(msg.Value)
	case "focus":
		return s.NotifyFocus()
	case "blur":
		return s.NotifyBlur()
	case "select":
		return s.NotifySelection(msg.Value)
	case "commit":
		return s.NotifyCommit(msg.Value)
	case "external":
		return s.NotifyExternalValueChange(msg.Value)
	case "unmount":
		if err := fc.form.Close(s.ID()); err != nil {
			return err
		}
		fc.send(Outbound{Type: "unmounted", Ref: msg.Ref, Session: s.ID()})
		return nil
	default:
		return errors.New("unknown message type " + msg.Type)
	}
}

// forward turns a session event into an outbound message. It runs on the
// session goroutine.
func (fc *formConn) forward(ev suggest.Event) {
	out := Outbound{Session: ev.SessionID, Field: ev.FieldID}
	switch ev.Kind {
	case suggest.SuggestionsChanged:
		out.Type = "suggestions"
		out.Suggestions = ev.Suggestions
	case suggest.LoadingChanged:
		out.Type = "loading"
		out.Loading = &ev.Loading
	case suggest.DropdownOpenChanged:
		out.Type = "dropdown"
		out.Open = &ev.Open
	default:
		return
	}
	fc.send(out)
}
