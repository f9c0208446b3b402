package domain

import "strconv"

// Peer is one connected client, identified by a server-assigned (or
// client-supplied and accepted) integer id. It carries exactly one
// transport handle for its lifetime; LobbyCode is empty when it is not a
// member of any lobby (invariant: a peer belongs to at most one lobby).
type Peer struct {
	ID         int
	PlayerData map[string]any
	LobbyCode  string
	Transport  Transport
}

// NewPeer constructs a peer with default player metadata matching the
// original server's `{"name": "Player <id>"}` fallback when the caller
// supplies none.
func NewPeer(id int, playerData map[string]any, transport Transport) *Peer {
	if len(playerData) == 0 {
		playerData = map[string]any{"name": PlayerDisplayName(id)}
	}
	return &Peer{ID: id, PlayerData: playerData, Transport: transport}
}

// PlayerDisplayName is the default name assigned to a peer that supplied no
// player metadata at connect/join time.
func PlayerDisplayName(id int) string {
	return "Player " + strconv.Itoa(id)
}

// ToListItem renders the peer as it appears in a lobby's `players` list.
func (p *Peer) ToListItem() map[string]any {
	return map[string]any{
		"id":     p.ID,
		"player": p.PlayerData,
	}
}
