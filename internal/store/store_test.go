package store

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Gatimoro-Games/lobbysignal/internal/domain"
)

// fakeTransport records every delivered event for assertions; it never
// errors, mirroring a healthy connection.
type fakeTransport struct {
	mu     sync.Mutex
	events []any
	closed bool
}

func (f *fakeTransport) Deliver(event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeTransport) Close(reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func newTestStore() *Store {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return New(log)
}

func TestCreateLobbySeatsHostAlone(t *testing.T) {
	s := newTestStore()
	host := domain.NewPeer(s.NextPeerID(), nil, &fakeTransport{})
	s.AddPeer(host)

	snap := s.CreateLobby("Alpha", host, true, 0)
	require.Equal(t, host.ID, snap.HostID)
	require.Equal(t, []int{host.ID}, snap.MemberIDs)
	require.Len(t, snap.Code, domain.CodeLength)

	found, ok := s.FindLobby(snap.Code)
	require.True(t, ok)
	require.Equal(t, snap.Code, found.Code)

	byName, ok := s.FindLobby("alpha")
	require.True(t, ok)
	require.Equal(t, snap.Code, byName.Code)
}

func TestJoinLobbyHostRejoinIsNoop(t *testing.T) {
	s := newTestStore()
	host := domain.NewPeer(s.NextPeerID(), nil, &fakeTransport{})
	s.AddPeer(host)
	snap := s.CreateLobby("Alpha", host, true, 0)

	result, err := s.JoinLobby(snap.Code, host, nil)
	require.Nil(t, err)
	require.True(t, result.AlreadyIn)
}

func TestJoinLobbyRejectsAlreadyInLobby(t *testing.T) {
	s := newTestStore()
	host := domain.NewPeer(s.NextPeerID(), nil, &fakeTransport{})
	s.AddPeer(host)
	first := s.CreateLobby("Alpha", host, true, 0)

	other := domain.NewPeer(s.NextPeerID(), nil, &fakeTransport{})
	s.AddPeer(other)
	s.CreateLobby("Beta", other, true, 0)

	_, err := s.JoinLobby(first.Code, other, nil)
	require.Equal(t, domain.ErrAlreadyInLobby, err.Code)
}

func TestJoinLobbyFullRejectsExtraPeer(t *testing.T) {
	s := newTestStore()
	host := domain.NewPeer(s.NextPeerID(), nil, &fakeTransport{})
	s.AddPeer(host)
	snap := s.CreateLobby("Alpha", host, true, 1)

	guest := domain.NewPeer(s.NextPeerID(), nil, &fakeTransport{})
	s.AddPeer(guest)

	_, err := s.JoinLobby(snap.Code, guest, nil)
	require.Equal(t, domain.ErrLobbyFull, err.Code)
}

func TestLeaveLobbyByHostRemovesEveryone(t *testing.T) {
	s := newTestStore()
	host := domain.NewPeer(s.NextPeerID(), nil, &fakeTransport{})
	s.AddPeer(host)
	snap := s.CreateLobby("Alpha", host, true, 0)

	guest := domain.NewPeer(s.NextPeerID(), nil, &fakeTransport{})
	s.AddPeer(guest)
	_, err := s.JoinLobby(snap.Code, guest, nil)
	require.Nil(t, err)

	result, err := s.LeaveLobby(host, domain.CloseHostLeft)
	require.Nil(t, err)
	require.True(t, result.WasHost)
	require.Equal(t, []int{guest.ID}, result.RemainingIDs)

	_, ok := s.FindLobby(snap.Code)
	require.False(t, ok)
	require.Empty(t, guest.LobbyCode)
}

func TestGetPublicLobbiesFiltersPrivateAndClosed(t *testing.T) {
	s := newTestStore()
	host1 := domain.NewPeer(s.NextPeerID(), nil, &fakeTransport{})
	s.AddPeer(host1)
	s.CreateLobby("Public", host1, true, 0)

	host2 := domain.NewPeer(s.NextPeerID(), nil, &fakeTransport{})
	s.AddPeer(host2)
	s.CreateLobby("Private", host2, false, 0)

	host3 := domain.NewPeer(s.NextPeerID(), nil, &fakeTransport{})
	s.AddPeer(host3)
	closed := s.CreateLobby("Closed", host3, true, 0)
	s.mu.Lock()
	s.lobbies[closed.Code].Open = false
	s.mu.Unlock()

	items := s.GetPublicLobbies()
	require.Len(t, items, 1)
	require.Equal(t, "Public", items[0]["name"])
}

func TestRemovePeerClearsRegistryAndFreesClientID(t *testing.T) {
	s := newTestStore()
	peer := domain.NewPeer(s.NextPeerID(), nil, &fakeTransport{})
	s.AddPeer(peer)

	s.RemovePeer(peer.ID)

	_, ok := s.GetPeer(peer.ID)
	require.False(t, ok)

	reclaimed, err := s.ClaimPeerID(peer.ID)
	require.Nil(t, err)
	require.Equal(t, peer.ID, reclaimed)
}

func TestGenerateUniqueCodeLockedAvoidsCollisions(t *testing.T) {
	s := newTestStore()
	host := domain.NewPeer(s.NextPeerID(), nil, &fakeTransport{})
	s.AddPeer(host)
	first := s.CreateLobby("Alpha", host, true, 0)

	s.mu.Lock()
	code := s.generateUniqueCodeLocked()
	s.mu.Unlock()

	require.NotEqual(t, first.Code, code)
}

func TestRegisterAndUnregisterSignalingConn(t *testing.T) {
	s := newTestStore()
	first := &fakeTransport{}
	id1, existing := s.RegisterSignalingConn("ROOM", first)
	require.Equal(t, 1, id1)
	require.Empty(t, existing)

	second := &fakeTransport{}
	id2, existing := s.RegisterSignalingConn("ROOM", second)
	require.Equal(t, 2, id2)
	require.Equal(t, []int{1}, existing)

	remaining := s.UnregisterSignalingConn("ROOM", id1)
	require.Equal(t, []int{2}, remaining)

	_, ok := s.SignalingTransport("ROOM", id1)
	require.False(t, ok)
}

func TestDeliverRunsDisconnectHookOnFailure(t *testing.T) {
	s := newTestStore()
	hookCalled := make(chan int, 1)
	s.SetDisconnectHandler(func(p *domain.Peer) { hookCalled <- p.ID })

	peer := domain.NewPeer(s.NextPeerID(), nil, &failingTransport{})
	s.AddPeer(peer)

	s.Deliver(peer, map[string]any{"t": "ping"})

	select {
	case id := <-hookCalled:
		require.Equal(t, peer.ID, id)
	default:
		t.Fatal("disconnect hook was not called")
	}
}

type failingTransport struct{}

func (failingTransport) Deliver(event any) error { return errDeliverFails }
func (failingTransport) Close(reason string)     {}

type deliverErr string

func (e deliverErr) Error() string { return string(e) }

const errDeliverFails = deliverErr("delivery always fails")
