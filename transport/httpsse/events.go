package httpsse

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// handleEvents is the long-lived GET /api/lobby/events stream. The peer's
// transport (an EventStreamTransport) must already exist from a prior
// /api/lobby/connect call; its outbox may already hold a queued welcome
// frame by the time this handler starts draining it.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	peerID, err := strconv.Atoi(r.URL.Query().Get("peer_id"))
	if err != nil {
		http.Error(w, "invalid peer_id", http.StatusBadRequest)
		return
	}
	peer, ok := h.store.GetPeer(peerID)
	if !ok {
		http.Error(w, "peer not found", http.StatusNotFound)
		return
	}
	est, ok := peer.Transport.(*EventStreamTransport)
	if !ok {
		http.Error(w, "peer is not using the event-stream transport", http.StatusConflict)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.rtr.HandleDisconnect(peer)
			return

		case data, ok := <-est.box.ch:
			if !ok {
				return
			}
			if _, err := w.Write(data); err != nil {
				h.rtr.HandleDisconnect(peer)
				return
			}
			flusher.Flush()

		case <-ticker.C:
			frame := fmt.Sprintf("event: heartbeat\ndata: {}\n\n")
			if _, err := w.Write([]byte(frame)); err != nil {
				h.rtr.HandleDisconnect(peer)
				return
			}
			flusher.Flush()
		}
	}
}
