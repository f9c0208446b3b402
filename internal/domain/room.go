package domain

import "time"

// Room is a per-code WebRTC signaling relay, auto-created alongside each
// lobby (and optionally standalone via the legacy /session/host endpoint).
// It owns its own in-room peer id counter and connection map, independent
// of the lobby peer-id space.
type Room struct {
	Code        string
	Channel     string
	LobbyName   string
	Public      bool
	PlayerLimit int
	PlayerCount int
	CreatedAt   time.Time

	nextInRoomID int
	conns        map[int]Transport
	order        []int
}

// NewRoom constructs a standalone signaling room. nextInRoomID starts at 1
// unless the room is paired with a lobby, in which case the caller (the
// store, via NewPairedRoom) starts it at 2 because the host already holds
// in-room id 1.
func NewRoom(code, channel, lobbyName string, public bool, playerLimit int) *Room {
	return &Room{
		Code:         code,
		Channel:      channel,
		LobbyName:    lobbyName,
		Public:       public,
		PlayerLimit:  playerLimit,
		PlayerCount:  0,
		CreatedAt:    time.Now(),
		nextInRoomID: 1,
		conns:        make(map[int]Transport),
	}
}

// NewPairedRoom constructs the signaling room created alongside a lobby:
// the host already occupies in-room id 1, so the counter starts at 2 and
// the advisory player count starts at 1.
func NewPairedRoom(code, channel, lobbyName string, public bool, playerLimit int, createdAt time.Time) *Room {
	r := NewRoom(code, channel, lobbyName, public, playerLimit)
	r.nextInRoomID = 2
	r.PlayerCount = 1
	r.CreatedAt = createdAt
	return r
}

// NextInRoomID allocates and returns the next ascending in-room peer id.
func (r *Room) NextInRoomID() int {
	id := r.nextInRoomID
	r.nextInRoomID++
	return id
}

func (r *Room) AddConn(inRoomID int, t Transport) {
	r.conns[inRoomID] = t
	r.order = append(r.order, inRoomID)
}

func (r *Room) RemoveConn(inRoomID int) {
	delete(r.conns, inRoomID)
	for i, id := range r.order {
		if id == inRoomID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

func (r *Room) Conn(inRoomID int) (Transport, bool) {
	t, ok := r.conns[inRoomID]
	return t, ok
}

// PeerIDs returns a snapshot of connected in-room ids, optionally excluding
// one id, in connection order.
func (r *Room) PeerIDs(exclude int) []int {
	out := make([]int, 0, len(r.order))
	for _, id := range r.order {
		if id == exclude {
			continue
		}
		out = append(out, id)
	}
	return out
}

func (r *Room) ConnCount() int {
	return len(r.conns)
}

func (r *Room) ToDict() map[string]any {
	return map[string]any{
		"code":          r.Code,
		"channel":       r.Channel,
		"next_peer_id":  r.nextInRoomID,
		"created_at":    r.CreatedAt,
		"lobby_name":    r.LobbyName,
		"public":        r.Public,
		"player_limit":  r.PlayerLimit,
		"player_count":  r.PlayerCount,
	}
}
