package domain

import "time"

// Lobby is a named collection of peers governed by a host peer; membership
// is exclusive (spec invariant: a peer belongs to at most one lobby).
type Lobby struct {
	Code        string
	Name        string
	HostID      int
	Public      bool
	PlayerLimit int
	Open        bool
	CreatedAt   time.Time

	members []int           // insertion order, for stable `players` lists
	peers   map[int]*Peer
}

// NewLobby constructs a lobby with host as its sole member, matching
// Lobby.create in the Python original.
func NewLobby(code, name string, host *Peer, public bool, playerLimit int) *Lobby {
	l := &Lobby{
		Code:        code,
		Name:        name,
		HostID:      host.ID,
		Public:      public,
		PlayerLimit: playerLimit,
		Open:        true,
		CreatedAt:   time.Now(),
		peers:       make(map[int]*Peer),
	}
	l.AddPeer(host)
	return l
}

func (l *Lobby) AddPeer(p *Peer) {
	if _, exists := l.peers[p.ID]; exists {
		return
	}
	l.peers[p.ID] = p
	l.members = append(l.members, p.ID)
	p.LobbyCode = l.Code
}

func (l *Lobby) RemovePeer(id int) *Peer {
	p, ok := l.peers[id]
	if !ok {
		return nil
	}
	delete(l.peers, id)
	for i, m := range l.members {
		if m == id {
			l.members = append(l.members[:i], l.members[i+1:]...)
			break
		}
	}
	p.LobbyCode = ""
	return p
}

func (l *Lobby) IsHost(peerID int) bool {
	return peerID == l.HostID
}

func (l *Lobby) IsFull() bool {
	return l.PlayerLimit > 0 && len(l.peers) >= l.PlayerLimit
}

func (l *Lobby) PlayerCount() int {
	return len(l.peers)
}

// MemberIDs returns a snapshot of member ids in join order. Callers must
// snapshot before doing network I/O (spec 5: no mutation may span a
// suspension point).
func (l *Lobby) MemberIDs() []int {
	out := make([]int, len(l.members))
	copy(out, l.members)
	return out
}

func (l *Lobby) Peers() []*Peer {
	out := make([]*Peer, 0, len(l.members))
	for _, id := range l.members {
		if p, ok := l.peers[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

func (l *Lobby) Peer(id int) (*Peer, bool) {
	p, ok := l.peers[id]
	return p, ok
}

// PlayersList renders the `players` array used in lobby_joined/lobby_created.
func (l *Lobby) PlayersList() []map[string]any {
	out := make([]map[string]any, 0, len(l.members))
	for _, id := range l.members {
		if p, ok := l.peers[id]; ok {
			out = append(out, p.ToListItem())
		}
	}
	return out
}

// ToListItem renders the `lobby_list` entry shape (lower_snake).
func (l *Lobby) ToListItem() map[string]any {
	return map[string]any{
		"code":         l.Code,
		"name":         l.Name,
		"players":      l.PlayerCount(),
		"public":       l.Public,
		"player_limit": l.PlayerLimit,
	}
}

// ToGDSyncFormat renders the backward-compatible PascalCase `/lobbies` shape.
func (l *Lobby) ToGDSyncFormat() map[string]any {
	return map[string]any{
		"Name":         l.Name,
		"Code":         l.Code,
		"PlayerCount":  l.PlayerCount(),
		"PlayerLimit":  l.PlayerLimit,
		"Public":       l.Public,
		"Open":         l.Open,
		"HasPassword":  false,
	}
}
