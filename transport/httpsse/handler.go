// Package httpsse implements the REST + server-sent-event transport (spec
// 4.6) and the backward-compatible legacy session endpoints (SPEC_FULL.md
// section 4), mounted together behind one gorilla/mux router and one CORS
// policy (spec 6).
package httpsse

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Gatimoro-Games/lobbysignal/internal/config"
	"github.com/Gatimoro-Games/lobbysignal/internal/domain"
	"github.com/Gatimoro-Games/lobbysignal/internal/logging"
	"github.com/Gatimoro-Games/lobbysignal/internal/router"
	"github.com/Gatimoro-Games/lobbysignal/internal/store"
)

type Handler struct {
	store *store.Store
	rtr   *router.Router
	log   *logrus.Logger

	heartbeatInterval time.Duration
	corsOrigins       string
}

func NewHandler(s *store.Store, r *router.Router, log *logrus.Logger, cfg config.Config) *Handler {
	return &Handler{
		store:             s,
		rtr:               r,
		log:               log,
		heartbeatInterval: cfg.HeartbeatInterval,
		corsOrigins:       cfg.CORSOrigins,
	}
}

// Mount registers every route this transport owns onto router, wrapped in
// the shared CORS middleware.
func (h *Handler) Mount(router *mux.Router) {
	router.Use(h.corsMiddleware)
	router.Use(h.correlationMiddleware)
	router.Use(h.recoverMiddleware)
	router.Methods(http.MethodOptions).HandlerFunc(h.preflight)

	router.HandleFunc("/api/lobby/connect", h.handleConnect).Methods(http.MethodPost)
	router.HandleFunc("/api/lobby/disconnect", h.handleDisconnect).Methods(http.MethodPost)
	router.HandleFunc("/api/lobby/create", h.handleCreate).Methods(http.MethodPost)
	router.HandleFunc("/api/lobby/join", h.handleJoin).Methods(http.MethodPost)
	router.HandleFunc("/api/lobby/leave", h.handleLeave).Methods(http.MethodPost)
	router.HandleFunc("/api/lobby/list", h.handleList).Methods(http.MethodGet)
	router.HandleFunc("/api/lobby/broadcast", h.handleBroadcast).Methods(http.MethodPost)
	router.HandleFunc("/api/lobby/events", h.handleEvents).Methods(http.MethodGet)

	h.mountLegacy(router)
}

// correlationMiddleware tags every inbound request with a short id so its
// log lines can be tied together, and echoes it back for client-side
// troubleshooting.
func (h *Handler) correlationMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		corrID := logging.NewCorrelationID()
		w.Header().Set("X-Correlation-Id", corrID)
		h.log.WithFields(logrus.Fields{
			"correlation_id": corrID,
			"method":         r.Method,
			"path":           r.URL.Path,
		}).Debug("http request")
		next.ServeHTTP(w, r)
	})
}

// recoverMiddleware downgrades a panicking handler into a generic error
// reply instead of letting it crash the accept loop (spec 7: unexpected
// faults are logged and downgraded, never propagated to the caller).
func (h *Handler) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.log.WithField("panic", rec).Error("http handler panicked")
				writeJSON(w, http.StatusOK, map[string]any{"t": domain.EventError, "message": "internal error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.applyCORS(w)
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) applyCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", h.corsOrigins)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept, Cache-Control")
}

func (h *Handler) preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, serr *domain.SignalError) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": false,
		"t":       domain.EventError,
		"code":    serr.Code,
		"message": serr.Message,
	})
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// ---------------------------------------------------------------------
// New REST + event-stream surface
// ---------------------------------------------------------------------

func (h *Handler) handleConnect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ClientID int `json:"client_id"`
	}
	decodeBody(r, &body)

	id, serr := h.store.ClaimPeerID(body.ClientID)
	if serr != nil {
		writeError(w, serr)
		return
	}

	transport := newEventStreamTransport()
	peer := domain.NewPeer(id, nil, transport)
	h.store.AddPeer(peer)
	transport.Deliver(h.rtr.Welcome(id))

	writeJSON(w, http.StatusOK, map[string]any{"peer_id": id})
}

func (h *Handler) peerFromBody(w http.ResponseWriter, r *http.Request, body *struct{ PeerID int `json:"peer_id"` }) (*domain.Peer, bool) {
	if err := decodeBody(r, body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid JSON"})
		return nil, false
	}
	peer, ok := h.store.GetPeer(body.PeerID)
	if !ok {
		writeError(w, domain.ErrorPeerNotFound)
		return nil, false
	}
	return peer, true
}

func (h *Handler) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PeerID int `json:"peer_id"`
	}
	peer, ok := h.peerFromBody(w, r, &body)
	if !ok {
		return
	}
	h.rtr.HandleDisconnect(peer)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PeerID      int            `json:"peer_id"`
		Name        string         `json:"name"`
		Public      *bool          `json:"public"`
		PlayerLimit int            `json:"player_limit"`
		Player      map[string]any `json:"player"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid JSON"})
		return
	}
	peer, ok := h.store.GetPeer(body.PeerID)
	if !ok {
		writeError(w, domain.ErrorPeerNotFound)
		return
	}
	if len(body.Player) > 0 {
		peer.PlayerData = body.Player
	}
	public := true
	if body.Public != nil {
		public = *body.Public
	}
	reply, serr := h.rtr.HandleCreateLobby(peer, body.Name, public, body.PlayerLimit)
	if serr != nil {
		writeError(w, serr)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PeerID int            `json:"peer_id"`
		Code   string         `json:"code"`
		Player map[string]any `json:"player"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid JSON"})
		return
	}
	peer, ok := h.store.GetPeer(body.PeerID)
	if !ok {
		writeError(w, domain.ErrorPeerNotFound)
		return
	}
	reply, after, serr := h.rtr.HandleJoinLobby(peer, body.Code, body.Player)
	if serr != nil {
		writeError(w, serr)
		return
	}
	writeJSON(w, http.StatusOK, reply)
	if after != nil {
		after()
	}
}

func (h *Handler) handleLeave(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PeerID int `json:"peer_id"`
	}
	peer, ok := h.peerFromBody(w, r, &body)
	if !ok {
		return
	}
	reply, after, serr := h.rtr.HandleLeaveLobby(peer)
	if serr != nil {
		writeError(w, serr)
		return
	}
	writeJSON(w, http.StatusOK, reply)
	if after != nil {
		after()
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.rtr.HandleListLobbies())
}

func (h *Handler) handleBroadcast(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PeerID int    `json:"peer_id"`
		Packet any    `json:"packet"`
		Target int    `json:"target"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"success": false, "message": "invalid JSON"})
		return
	}
	peer, ok := h.store.GetPeer(body.PeerID)
	if !ok {
		writeError(w, domain.ErrorPeerNotFound)
		return
	}
	delivered := h.rtr.HandleBroadcast(peer, body.Packet, body.Target)
	writeJSON(w, http.StatusOK, map[string]any{"delivered_to": delivered})
}
