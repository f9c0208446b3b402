// Package lobbysocket implements the lobby protocol over a persistent
// full-duplex websocket (spec 4.5): framed JSON in both directions, a
// welcome on connect, error envelopes on malformed or unknown frames, and
// the generic peer-disconnect routine on close. Grounded on the teacher's
// network.Client read/write pumps, generalized from a fixed tank-io message
// set to the router's command dispatch.
package lobbysocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Gatimoro-Games/lobbysignal/internal/domain"
	"github.com/Gatimoro-Games/lobbysignal/internal/logging"
	"github.com/Gatimoro-Games/lobbysignal/internal/router"
	"github.com/Gatimoro-Games/lobbysignal/internal/store"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 16
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Conn implements domain.Transport over a gorilla/websocket connection. Its
// own write loop is the only goroutine that touches the socket, so Deliver
// never competes with a concurrent WriteMessage call.
type Conn struct {
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(ws *websocket.Conn) *Conn {
	return &Conn{
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
		closed: make(chan struct{}),
	}
}

// Deliver marshals event and enqueues it for the write loop. A full send
// buffer is treated the same as a write error: the peer is too far behind
// to keep up, so the transport is closed.
func (c *Conn) Deliver(event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	select {
	case c.send <- data:
		return nil
	case <-c.closed:
		return errClosed
	default:
		c.Close("send buffer full")
		return errClosed
	}
}

func (c *Conn) Close(reason string) {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.ws.Close()
	})
}

type errString string

func (e errString) Error() string { return string(e) }

const errClosed = errString("lobbysocket: connection closed")

// Handler wires the router and store into an http.HandlerFunc that upgrades
// to a websocket and runs the connection's read/write pumps for its
// lifetime.
type Handler struct {
	store *store.Store
	rtr   *router.Router
	log   *logrus.Logger
}

func NewHandler(s *store.Store, r *router.Router, log *logrus.Logger) *Handler {
	return &Handler{store: s, rtr: r, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	corrID := logging.NewCorrelationID()
	entry := h.log.WithField("correlation_id", corrID)

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		entry.WithError(err).Debug("websocket upgrade failed")
		return
	}

	conn := newConn(ws)
	peer := domain.NewPeer(h.store.NextPeerID(), nil, conn)
	h.store.AddPeer(peer)
	entry = entry.WithField("peer_id", peer.ID)

	go h.writePump(conn)
	conn.Deliver(h.rtr.Welcome(peer.ID))

	h.readPump(peer, conn, entry)
}

// readPump owns the socket's reads; on any error or close it runs the
// peer-disconnect routine exactly once and returns.
func (h *Handler) readPump(peer *domain.Peer, conn *Conn, entry *logrus.Entry) {
	defer func() {
		entry.Debug("lobby socket closed")
		h.rtr.HandleDisconnect(peer)
	}()

	conn.ws.SetReadLimit(maxMessageSize)

	for {
		_, data, err := conn.ws.ReadMessage()
		if err != nil {
			return
		}

		var raw map[string]any
		if jsonErr := json.Unmarshal(data, &raw); jsonErr != nil {
			entry.WithError(jsonErr).Debug("malformed lobby socket frame")
			conn.Deliver(h.rtr.ErrorEnvelope(domain.ErrorInvalidJSON))
			continue
		}

		reply, after := h.dispatchSafely(peer, raw, entry)
		conn.Deliver(reply)
		if after != nil {
			after()
		}
	}
}

// dispatchSafely recovers a panicking handler so one bad frame never takes
// down the read loop; the peer gets a generic error reply instead.
func (h *Handler) dispatchSafely(peer *domain.Peer, raw map[string]any, entry *logrus.Entry) (reply map[string]any, after func()) {
	defer func() {
		if r := recover(); r != nil {
			entry.WithField("panic", r).Error("lobby socket handler panicked")
			reply = map[string]any{"t": domain.EventError, "message": "internal error"}
			after = nil
		}
	}()
	return h.rtr.Dispatch(peer, raw)
}

// writePump is the connection's sole writer; it drains conn.send until the
// connection is closed.
func (h *Handler) writePump(conn *Conn) {
	for {
		select {
		case data, ok := <-conn.send:
			conn.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-conn.closed:
			return
		}
	}
}
