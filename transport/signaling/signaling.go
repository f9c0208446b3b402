// Package signaling implements the per-room WebRTC envelope relay (spec
// 4.7) mounted at /ws/{code}: initialize/new_connection/peer_disconnected
// bookkeeping plus opaque offer/answer/ice forwarding, addressed by each
// room's own in-room peer ids rather than the lobby peer-id space.
// Grounded on the teacher's socket read/write pump split and the
// Hub/Room/Client forwarding shape in the Serenada reference relay.
package signaling

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/Gatimoro-Games/lobbysignal/internal/domain"
	"github.com/Gatimoro-Games/lobbysignal/internal/logging"
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

// conn implements domain.Transport for one signaling-room connection.
type conn struct {
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{ws: ws, send: make(chan []byte, sendBuffer), closed: make(chan struct{})}
}

func (c *conn) Deliver(event any) error {
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

func (c *conn) Close(reason string) {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.ws.Close()
	})
}

type errString string

func (e errString) Error() string { return string(e) }

const errClosed = errString("signaling: connection closed")

// Handler serves the /ws/{code} mount point.
type Handler struct {
	store *store.Store
	log   *logrus.Logger
}

func NewHandler(s *store.Store, log *logrus.Logger) *Handler {
	return &Handler{store: s, log: log}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	entry := h.log.WithField("correlation_id", logging.NewCorrelationID()).WithField("room", code)

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		entry.WithError(err).Debug("signaling websocket upgrade failed")
		return
	}
	c := newConn(ws)

	inRoomID, existing := h.store.RegisterSignalingConn(code, c)
	entry = entry.WithField("in_room_id", inRoomID)
	go h.writePump(c)

	c.Deliver(map[string]any{
		"data_type": domain.SignalingInitialize,
		"id":        inRoomID,
		"peers":     existing,
	})
	initEvent := map[string]any{"data_type": domain.SignalingNewConnection, "peer_id": inRoomID}
	for _, peerID := range existing {
		if t, ok := h.store.SignalingTransport(code, peerID); ok {
			t.Deliver(initEvent)
		}
	}

	h.readPump(code, inRoomID, c, entry)
}

// readPump owns the connection's reads; on close it unregisters the
// connection and tells every remaining peer in the room.
func (h *Handler) readPump(code string, inRoomID int, c *conn, entry *logrus.Entry) {
	defer func() {
		entry.Debug("signaling connection closed")
		remaining := h.store.UnregisterSignalingConn(code, inRoomID)
		event := map[string]any{"data_type": domain.SignalingPeerDisconnected, "peer_id": inRoomID}
		for _, peerID := range remaining {
			if t, ok := h.store.SignalingTransport(code, peerID); ok {
				t.Deliver(event)
			}
		}
		c.Close("disconnected")
	}()

	c.ws.SetReadLimit(maxMessageSize)

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var frame map[string]any
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		dataType, _ := frame["data_type"].(string)
		if domain.SignalingDataType(dataType) == domain.SignalingReady {
			continue
		}

		to, ok := frame["to"].(float64)
		if !ok {
			continue
		}
		target, ok := h.store.SignalingTransport(code, int(to))
		if !ok {
			continue
		}

		frame["from"] = inRoomID
		target.Deliver(frame)
	}
}

func (h *Handler) writePump(c *conn) {
	for {
		select {
		case data, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}
