package httpsse

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Gatimoro-Games/lobbysignal/internal/domain"
)

// mountLegacy wires the backward-compatible GDSync-style session surface
// (SPEC_FULL.md section 4), grounded on
// original_source/signaling-server/server/http_handlers.py and its two
// pytest suites. These endpoints operate on signaling rooms directly and
// never require a lobby peer to exist.
func (h *Handler) mountLegacy(router *mux.Router) {
	router.HandleFunc("/session/host", h.legacyHost).Methods(http.MethodPost)
	router.HandleFunc("/session/join/{code}", h.legacyJoin).Methods(http.MethodPost)
	router.HandleFunc("/session/update/{code}", h.legacyUpdate).Methods(http.MethodPost)
	router.HandleFunc("/session/players/{code}", h.legacyPlayers).Methods(http.MethodPost)
	router.HandleFunc("/session/close/{code}", h.legacyClose).Methods(http.MethodPost)
	router.HandleFunc("/health", h.legacyHealth).Methods(http.MethodGet)
	router.HandleFunc("/rooms", h.legacyRooms).Methods(http.MethodGet)
	router.HandleFunc("/lobbies", h.legacyLobbies).Methods(http.MethodGet)
}

func roomNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]any{
		"success": false,
		"code":    domain.ErrRoomNotFound,
	})
}

func wsURL(r *http.Request, code string) string {
	scheme := "ws"
	if r.TLS != nil {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s/ws/%s", scheme, r.Host, code)
}

func (h *Handler) legacyHost(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IsDebug     bool   `json:"is_debug"`
		Channel     string `json:"channel"`
		LobbyName   string `json:"lobby_name"`
		Public      bool   `json:"public"`
		PlayerLimit int    `json:"player_limit"`
	}
	decodeBody(r, &body)
	if body.Channel == "" {
		body.Channel = "default"
	}

	snap := h.store.CreateRoom(body.Channel, body.LobbyName, body.Public, body.PlayerLimit, body.IsDebug)

	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"code":       snap.Code,
		"ws_url":     wsURL(r, snap.Code),
		"lobby_name": snap.LobbyName,
	})
}

func (h *Handler) legacyJoin(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	snap, ok := h.store.FindRoom(code)
	if !ok {
		roomNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"code":       snap.Code,
		"ws_url":     wsURL(r, snap.Code),
		"lobby_name": snap.LobbyName,
	})
}

func (h *Handler) legacyUpdate(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	var body struct {
		LobbyName *string `json:"lobby_name"`
		Public    *bool   `json:"public"`
	}
	decodeBody(r, &body)

	snap, ok := h.store.UpdateRoom(code, body.LobbyName, body.Public)
	if !ok {
		roomNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "code": snap.Code})
}

func (h *Handler) legacyPlayers(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	var body struct {
		PlayerCount int `json:"player_count"`
	}
	decodeBody(r, &body)

	snap, ok := h.store.UpdatePlayerCount(code, body.PlayerCount)
	if !ok {
		roomNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "player_count": snap.PlayerCount})
}

func (h *Handler) legacyClose(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	if lobbySnap, ok := h.store.FindLobby(code); ok {
		_, members, _ := h.store.RemoveLobby(lobbySnap.Code)
		event := map[string]any{
			"t":      domain.EventLobbyClosed,
			"code":   lobbySnap.Code,
			"reason": domain.CloseHostClosed,
		}
		h.store.BroadcastToIDs(members, event, -1)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "code": code})
		return
	}

	if _, ok := h.store.RemoveRoom(code); !ok {
		roomNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "code": code})
}

func (h *Handler) legacyHealth(w http.ResponseWriter, r *http.Request) {
	rooms, lobbies, lobbyPeers := h.store.Counts()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"rooms":       rooms,
		"lobbies":     lobbies,
		"lobby_peers": lobbyPeers,
	})
}

func (h *Handler) legacyRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.GetAllRoomsDebug())
}

func (h *Handler) legacyLobbies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.store.GetPublicRoomsGDSync())
}
