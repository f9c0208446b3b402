// Package store holds the single authoritative entity store: peers,
// lobbies, and signaling rooms, plus the name and connection secondary
// indexes, guarded by one mutex held only across pure state mutations
// (spec sections 4.2 and 5). It also owns the event fan-out primitives
// (Deliver/BroadcastToIDs, spec 4.4) and calls the peer-disconnect routine
// (spec 4.8, in the router package) through a registered hook.
//
// No *domain.Lobby or *domain.Room pointer is ever returned to a caller:
// every read crosses the lock as an already-computed snapshot, so nothing
// outside this package can observe a lobby or room mid-mutation.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Gatimoro-Games/lobbysignal/internal/domain"
)

type Store struct {
	mu  sync.Mutex
	log *logrus.Logger

	peers           map[int]*domain.Peer
	lobbies         map[string]*domain.Lobby
	rooms           map[string]*domain.Room
	lobbyNameToCode map[string]string

	nextPeerID  int
	onDisconnect func(peer *domain.Peer)
}

func New(log *logrus.Logger) *Store {
	return &Store{
		log:             log,
		peers:           make(map[int]*domain.Peer),
		lobbies:         make(map[string]*domain.Lobby),
		rooms:           make(map[string]*domain.Room),
		lobbyNameToCode: make(map[string]string),
		nextPeerID:      1,
	}
}

// ---------------------------------------------------------------------
// Identity allocation (spec 4.1)
// ---------------------------------------------------------------------

// NextPeerID returns a fresh, never-reused peer id.
func (s *Store) NextPeerID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextPeerID
	s.nextPeerID++
	return id
}

// ClaimPeerID is used by the HTTP+event-stream transport when a client
// supplies its own client_id on connect: if requested > 0 and unused it
// becomes the peer id, and if it is in use the result is PEER_ID_IN_USE.
// A requested value <= 0 allocates a fresh id as NextPeerID does.
func (s *Store) ClaimPeerID(requested int) (int, *domain.SignalError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if requested <= 0 {
		id := s.nextPeerID
		s.nextPeerID++
		return id, nil
	}
	if _, exists := s.peers[requested]; exists {
		return 0, domain.ErrorPeerIDInUse
	}
	if requested >= s.nextPeerID {
		s.nextPeerID = requested + 1
	}
	return requested, nil
}

// generateUniqueCodeLocked retries generate_code until the candidate is
// absent from both lobbies and rooms (spec 4.1). Caller must hold s.mu.
func (s *Store) generateUniqueCodeLocked() string {
	for {
		code := domain.GenerateCode()
		if _, ok := s.lobbies[code]; ok {
			continue
		}
		if _, ok := s.rooms[code]; ok {
			continue
		}
		return code
	}
}

// ---------------------------------------------------------------------
// Peer registry
// ---------------------------------------------------------------------

func (s *Store) AddPeer(p *domain.Peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[p.ID] = p
}

func (s *Store) GetPeer(id int) (*domain.Peer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.peers[id]
	return p, ok
}

func (s *Store) removePeerLocked(id int) {
	delete(s.peers, id)
}

// RemovePeer destroys a peer's registry entry (spec 4.8 step 4, spec 3: "a
// Peer is destroyed when its transport disconnects"). Called once per peer
// from the peer-disconnect routine. Without this, ClaimPeerID would report
// PEER_ID_IN_USE forever for any client_id ever used.
func (s *Store) RemovePeer(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removePeerLocked(id)
}

// ---------------------------------------------------------------------
// Lobby management (spec 4.2)
// ---------------------------------------------------------------------

// LobbySnapshot is the only shape a lobby leaves the store in.
type LobbySnapshot struct {
	Code        string
	Name        string
	HostID      int
	Public      bool
	PlayerLimit int
	Open        bool
	Players     []map[string]any
	MemberIDs   []int
}

func snapshotLobby(l *domain.Lobby) LobbySnapshot {
	return LobbySnapshot{
		Code:        l.Code,
		Name:        l.Name,
		HostID:      l.HostID,
		Public:      l.Public,
		PlayerLimit: l.PlayerLimit,
		Open:        l.Open,
		Players:     l.PlayersList(),
		MemberIDs:   l.MemberIDs(),
	}
}

// CreateLobby allocates a fresh code, makes host the sole member and host,
// and creates the paired signaling room (spec 4.2 create_lobby).
func (s *Store) CreateLobby(name string, host *domain.Peer, public bool, playerLimit int) LobbySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := s.generateUniqueCodeLocked()
	lobby := domain.NewLobby(code, name, host, public, playerLimit)
	s.lobbies[code] = lobby
	s.lobbyNameToCode[strings.ToLower(name)] = code

	room := domain.NewPairedRoom(code, "default", name, public, playerLimit, lobby.CreatedAt)
	room.AddConn(1, host.Transport) // host occupies in-room id 1
	s.rooms[code] = room

	return snapshotLobby(lobby)
}

// findLobbyLocked tries an exact uppercased code, then a case-folded name.
func (s *Store) findLobbyLocked(codeOrName string) (*domain.Lobby, bool) {
	if l, ok := s.lobbies[strings.ToUpper(codeOrName)]; ok {
		return l, true
	}
	if code, ok := s.lobbyNameToCode[strings.ToLower(codeOrName)]; ok {
		if l, ok := s.lobbies[code]; ok {
			return l, true
		}
	}
	return nil, false
}

func (s *Store) FindLobby(codeOrName string) (LobbySnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.findLobbyLocked(codeOrName)
	if !ok {
		return LobbySnapshot{}, false
	}
	return snapshotLobby(l), true
}

// removeLobbyLocked removes the lobby, clears lobby_code on all its
// members, drops the name index entry, and removes the paired room.
func (s *Store) removeLobbyLocked(code string) (*domain.Lobby, []int) {
	lobby, ok := s.lobbies[code]
	if !ok {
		return nil, nil
	}
	delete(s.lobbies, code)
	delete(s.lobbyNameToCode, strings.ToLower(lobby.Name))

	members := lobby.MemberIDs()
	for _, id := range members {
		if p, ok := lobby.Peer(id); ok {
			p.LobbyCode = ""
		}
	}

	delete(s.rooms, code)
	return lobby, members
}

// RemoveLobby tears down a lobby and its paired room, returning the ids of
// members that were present at removal time (for fan-out by the caller).
func (s *Store) RemoveLobby(code string) (LobbySnapshot, []int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lobby, members := s.removeLobbyLocked(code)
	if lobby == nil {
		return LobbySnapshot{}, nil, false
	}
	return snapshotLobby(lobby), members, true
}

// GetPublicLobbies returns every lobby with public && open (spec
// list_lobbies).
func (s *Store) GetPublicLobbies() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.lobbies))
	for _, l := range s.lobbies {
		if l.Public && l.Open {
			out = append(out, l.ToListItem())
		}
	}
	return out
}

// JoinResult carries the outcome of JoinLobby.
type JoinResult struct {
	Snapshot  LobbySnapshot
	AlreadyIn bool // host rejoining its own lobby: a no-op success
}

// JoinLobby adds peer to the lobby identified by codeOrName, enforcing
// exclusivity, open/full, and the host-rejoin no-op rule (spec 4.3).
func (s *Store) JoinLobby(codeOrName string, peer *domain.Peer, playerData map[string]any) (JoinResult, *domain.SignalError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lobby, ok := s.findLobbyLocked(codeOrName)
	if !ok {
		return JoinResult{}, domain.ErrorLobbyNotFound
	}

	if lobby.IsHost(peer.ID) {
		if _, already := lobby.Peer(peer.ID); already {
			return JoinResult{Snapshot: snapshotLobby(lobby), AlreadyIn: true}, nil
		}
	}

	if peer.LobbyCode != "" {
		return JoinResult{}, domain.ErrorAlreadyInLobby
	}
	if !lobby.Open {
		return JoinResult{}, domain.ErrorLobbyClosed
	}
	if lobby.IsFull() {
		return JoinResult{}, domain.ErrorLobbyFull
	}

	if len(playerData) > 0 {
		peer.PlayerData = playerData
	}
	lobby.AddPeer(peer)

	if room, ok := s.rooms[lobby.Code]; ok {
		room.PlayerCount = lobby.PlayerCount()
	}

	return JoinResult{Snapshot: snapshotLobby(lobby)}, nil
}

// LeaveResult carries the outcome of LeaveLobby.
type LeaveResult struct {
	WasHost      bool
	Code         string
	CloseReason  domain.CloseReason
	RemainingIDs []int // members other than the departing peer, snapshot
}

// LeaveLobby removes peer from its current lobby. If peer was the host,
// the lobby closes entirely (spec 4.3 leave_lobby, 4.8 peer disconnect).
func (s *Store) LeaveLobby(peer *domain.Peer, reasonIfHost domain.CloseReason) (LeaveResult, *domain.SignalError) {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := peer.LobbyCode
	if code == "" {
		return LeaveResult{}, domain.ErrorNotInLobby
	}
	lobby, ok := s.lobbies[code]
	if !ok {
		peer.LobbyCode = ""
		return LeaveResult{}, domain.ErrorLobbyNotFound
	}

	if lobby.IsHost(peer.ID) {
		_, members := s.removeLobbyLocked(code)
		remaining := make([]int, 0, len(members))
		for _, id := range members {
			if id != peer.ID {
				remaining = append(remaining, id)
			}
		}
		return LeaveResult{WasHost: true, Code: code, CloseReason: reasonIfHost, RemainingIDs: remaining}, nil
	}

	lobby.RemovePeer(peer.ID)
	if room, ok := s.rooms[code]; ok {
		room.PlayerCount = lobby.PlayerCount()
	}
	return LeaveResult{WasHost: false, Code: code, RemainingIDs: lobby.MemberIDs()}, nil
}

// ---------------------------------------------------------------------
// Room management (spec 4.2, 4.7)
// ---------------------------------------------------------------------

type RoomSnapshot struct {
	Code        string
	Channel     string
	LobbyName   string
	Public      bool
	PlayerLimit int
	PlayerCount int
	CreatedAt   time.Time
}

func snapshotRoom(r *domain.Room) RoomSnapshot {
	return RoomSnapshot{
		Code:        r.Code,
		Channel:     r.Channel,
		LobbyName:   r.LobbyName,
		Public:      r.Public,
		PlayerLimit: r.PlayerLimit,
		PlayerCount: r.PlayerCount,
		CreatedAt:   r.CreatedAt,
	}
}

// CreateRoom creates a standalone signaling room (legacy /session/host with
// no paired lobby). isDebug forces the fixed code TEST, overwriting any
// existing collision (spec 4.1).
func (s *Store) CreateRoom(channel, lobbyName string, public bool, playerLimit int, isDebug bool) RoomSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var code string
	if isDebug {
		code = domain.DebugCode
	} else {
		code = s.generateUniqueCodeLocked()
	}

	room := domain.NewRoom(code, channel, lobbyName, public, playerLimit)
	s.rooms[code] = room
	if lobbyName != "" {
		s.lobbyNameToCode[strings.ToLower(lobbyName)] = code
	}
	return snapshotRoom(room)
}

func (s *Store) findRoomLocked(codeOrName string) (*domain.Room, bool) {
	if r, ok := s.rooms[strings.ToUpper(codeOrName)]; ok {
		return r, true
	}
	if code, ok := s.lobbyNameToCode[strings.ToLower(codeOrName)]; ok {
		if r, ok := s.rooms[code]; ok {
			return r, true
		}
	}
	return nil, false
}

func (s *Store) FindRoom(codeOrName string) (RoomSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.findRoomLocked(codeOrName)
	if !ok {
		return RoomSnapshot{}, false
	}
	return snapshotRoom(r), true
}

func (s *Store) RemoveRoom(code string) (RoomSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return RoomSnapshot{}, false
	}
	delete(s.rooms, code)
	if room.LobbyName != "" {
		delete(s.lobbyNameToCode, strings.ToLower(room.LobbyName))
	}
	return snapshotRoom(room), true
}

// UpdateRoom applies the legacy /session/update metadata patch.
func (s *Store) UpdateRoom(code string, lobbyName *string, public *bool) (RoomSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return RoomSnapshot{}, false
	}
	if lobbyName != nil {
		if room.LobbyName != "" {
			delete(s.lobbyNameToCode, strings.ToLower(room.LobbyName))
		}
		room.LobbyName = *lobbyName
		if *lobbyName != "" {
			s.lobbyNameToCode[strings.ToLower(*lobbyName)] = code
		}
	}
	if public != nil {
		room.Public = *public
	}
	return snapshotRoom(room), true
}

// UpdatePlayerCount applies the legacy /session/players advisory update.
func (s *Store) UpdatePlayerCount(code string, count int) (RoomSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return RoomSnapshot{}, false
	}
	room.PlayerCount = count
	return snapshotRoom(room), true
}

// GetPublicRoomsGDSync returns every room with Public set, in the
// PascalCase GDSync shape (spec /lobbies).
func (s *Store) GetPublicRoomsGDSync() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.rooms))
	for _, r := range s.rooms {
		if r.Public {
			out = append(out, map[string]any{
				"Name":        r.LobbyName,
				"Code":        r.Code,
				"PlayerCount": r.PlayerCount,
				"PlayerLimit": r.PlayerLimit,
				"Public":      r.Public,
				"Open":        true,
				"HasPassword": false,
			})
		}
	}
	return out
}

// GetAllRoomsDebug returns every room regardless of visibility (spec
// /rooms debug endpoint).
func (s *Store) GetAllRoomsDebug() []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.rooms))
	for _, r := range s.rooms {
		out = append(out, r.ToDict())
	}
	return out
}

// ---------------------------------------------------------------------
// Signaling connection bookkeeping (spec 4.7)
// ---------------------------------------------------------------------

// RegisterSignalingConn allocates the next in-room id for code and
// registers t under it, returning the assigned id plus a snapshot of the
// ids that were already connected (for the initialize/new_connection
// handshake). If no room exists yet for code, one is created standalone.
func (s *Store) RegisterSignalingConn(code string, t domain.Transport) (assigned int, existing []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		room = domain.NewRoom(code, "default", "", true, 0)
		s.rooms[code] = room
	}
	existing = room.PeerIDs(-1)
	assigned = room.NextInRoomID()
	room.AddConn(assigned, t)
	return assigned, existing
}

// UnregisterSignalingConn removes (code, inRoomID) and returns the ids of
// peers still connected to that room afterward. The room itself is never
// auto-deleted (spec 4.7): it persists until its paired lobby tears it
// down, or it is closed explicitly.
func (s *Store) UnregisterSignalingConn(code string, inRoomID int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil
	}
	room.RemoveConn(inRoomID)
	return room.PeerIDs(-1)
}

// SignalingTransport looks up the transport for (code, to) and
// returns it for the caller to write to outside the lock. Offer/answer/ICE
// payloads are never inspected beyond this routing header.
func (s *Store) SignalingTransport(code string, to int) (domain.Transport, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, false
	}
	return room.Conn(to)
}

// ---------------------------------------------------------------------
// Shutdown
// ---------------------------------------------------------------------

// AllTransports snapshots every peer and every signaling connection's
// transport handle, for graceful shutdown fan-out.
func (s *Store) AllTransports() []domain.Transport {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Transport, 0, len(s.peers))
	seen := make(map[domain.Transport]bool)
	for _, p := range s.peers {
		if p.Transport != nil && !seen[p.Transport] {
			seen[p.Transport] = true
			out = append(out, p.Transport)
		}
	}
	for _, r := range s.rooms {
		for _, id := range r.PeerIDs(-1) {
			if t, ok := r.Conn(id); ok && !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// ClearAll drops every reference; used only at shutdown.
func (s *Store) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers = make(map[int]*domain.Peer)
	s.lobbies = make(map[string]*domain.Lobby)
	s.rooms = make(map[string]*domain.Room)
	s.lobbyNameToCode = make(map[string]string)
	s.nextPeerID = 1
}

// ---------------------------------------------------------------------
// Health/debug counters
// ---------------------------------------------------------------------

func (s *Store) Counts() (rooms, lobbies, lobbyPeers int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms), len(s.lobbies), len(s.peers)
}
