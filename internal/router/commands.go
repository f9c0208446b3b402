package router

import (
	"github.com/Gatimoro-Games/lobbysignal/internal/domain"
	"github.com/Gatimoro-Games/lobbysignal/internal/store"
)

// envelope is the common shape every lobby-protocol reply and broadcast
// event takes on the wire: a `t` discriminant plus type-specific fields.
type envelope map[string]any

func withType(t domain.EventType, fields envelope) envelope {
	out := envelope{"t": t}
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// Welcome is sent once, immediately on connect, by whichever transport owns
// the handshake (spec 4.5, 4.6).
func (r *Router) Welcome(peerID int) envelope {
	return withType(domain.EventWelcome, envelope{"your_id": peerID})
}

// lobbyFields renders the fields shared by lobby_created and lobby_joined;
// selfID becomes the `your_id` field each carries alongside the lobby data.
func lobbyFields(snap store.LobbySnapshot, selfID int) envelope {
	return envelope{
		"code":         snap.Code,
		"name":         snap.Name,
		"host_id":      snap.HostID,
		"your_id":      selfID,
		"public":       snap.Public,
		"player_limit": snap.PlayerLimit,
		"players":      snap.Players,
	}
}

// HandleCreateLobby implements the create_lobby command (spec 4.3). There
// are no side effects on other peers: the caller becomes the lobby's only
// member.
func (r *Router) HandleCreateLobby(peer *domain.Peer, name string, public bool, playerLimit int) (envelope, *domain.SignalError) {
	if name == "" {
		name = defaultLobbyName()
	}
	snap := r.store.CreateLobby(name, peer, public, playerLimit)
	return withType(domain.EventLobbyCreated, lobbyFields(snap, peer.ID)), nil
}

// HandleListLobbies implements list_lobbies: every public, open lobby.
func (r *Router) HandleListLobbies() envelope {
	return withType(domain.EventLobbyList, envelope{"items": r.store.GetPublicLobbies()})
}

// HandleJoinLobby implements join_lobby. The returned after func, if
// non-nil, must be invoked by the caller only once the direct reply has
// been committed to the joining peer's transport (spec 4.3: lobby_joined is
// observed by the joiner before peer_joined reaches the rest of the lobby).
func (r *Router) HandleJoinLobby(peer *domain.Peer, codeOrName string, playerData map[string]any) (envelope, func(), *domain.SignalError) {
	result, serr := r.store.JoinLobby(codeOrName, peer, playerData)
	if serr != nil {
		return nil, nil, serr
	}

	reply := withType(domain.EventLobbyJoined, lobbyFields(result.Snapshot, peer.ID))
	if result.AlreadyIn {
		return reply, nil, nil
	}

	others := excludeSelf(result.Snapshot.MemberIDs, peer.ID)
	after := func() {
		event := withType(domain.EventPeerJoined, envelope{
			"id":     peer.ID,
			"player": peer.PlayerData,
		})
		r.store.BroadcastToIDs(others, event, peer.ID)
	}
	return reply, after, nil
}

// HandleLeaveLobby implements leave_lobby. A host leaving closes the whole
// lobby; the after func broadcasts lobby_closed or peer_left to whoever
// remains, run only after the direct reply is committed.
func (r *Router) HandleLeaveLobby(peer *domain.Peer) (envelope, func(), *domain.SignalError) {
	result, serr := r.store.LeaveLobby(peer, domain.CloseHostLeft)
	if serr != nil {
		return nil, nil, serr
	}

	reply := withType(domain.EventLobbyLeft, envelope{"code": result.Code})

	after := func() {
		if result.WasHost {
			event := withType(domain.EventLobbyClosed, envelope{
				"code":   result.Code,
				"reason": result.CloseReason,
			})
			r.store.BroadcastToIDs(result.RemainingIDs, event, -1)
			return
		}
		event := withType(domain.EventPeerLeft, envelope{"id": peer.ID})
		r.store.BroadcastToIDs(result.RemainingIDs, event, peer.ID)
	}
	return reply, after, nil
}

// HandleBroadcast relays an opaque packet as a game_packet event, either to
// a single target peer id or, when target is -1, to every other member of
// the caller's current lobby (spec 4.6 /api/lobby/broadcast). It returns the
// ids the packet was addressed to; a failed write to one of them is not
// reflected in the result.
func (r *Router) HandleBroadcast(peer *domain.Peer, packet any, target int) []int {
	event := withType(domain.EventGamePacket, envelope{"id": peer.ID, "packet": packet})

	if target == -1 {
		snap, ok := r.store.FindLobby(peer.LobbyCode)
		if !ok {
			return nil
		}
		ids := excludeSelf(snap.MemberIDs, peer.ID)
		r.store.BroadcastToIDs(ids, event, peer.ID)
		return ids
	}

	if p, ok := r.store.GetPeer(target); ok {
		r.store.Deliver(p, event)
		return []int{target}
	}
	return nil
}

// HandlePing implements ping/pong keepalive (spec 4.3).
func (r *Router) HandlePing() envelope {
	return withType(domain.EventPong, nil)
}

// ErrorEnvelope renders a SignalError as the wire-level error event.
func (r *Router) ErrorEnvelope(serr *domain.SignalError) envelope {
	return withType(domain.EventError, envelope{
		"code":    serr.Code,
		"message": serr.Message,
	})
}
