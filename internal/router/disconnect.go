package router

import "github.com/Gatimoro-Games/lobbysignal/internal/domain"

// HandleDisconnect is the peer-disconnect routine (spec 4.8): it runs
// whenever a transport closes, whether from an explicit client close, a
// read/write error observed by a transport, or a failed Deliver detected by
// the store. There is no reply to build — the disconnecting peer is gone —
// only side effects against whoever remains.
func (r *Router) HandleDisconnect(peer *domain.Peer) {
	if peer.LobbyCode != "" {
		result, serr := r.store.LeaveLobby(peer, domain.CloseHostDisconnected)
		if serr == nil {
			if result.WasHost {
				event := withType(domain.EventLobbyClosed, envelope{
					"code":   result.Code,
					"reason": result.CloseReason,
				})
				r.store.BroadcastToIDs(result.RemainingIDs, event, -1)
			} else {
				event := withType(domain.EventPeerLeft, envelope{"id": peer.ID})
				r.store.BroadcastToIDs(result.RemainingIDs, event, peer.ID)
			}
		}
	}

	if peer.Transport != nil {
		peer.Transport.Close("disconnected")
	}

	r.store.RemovePeer(peer.ID)
}
