package router

import (
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Gatimoro-Games/lobbysignal/internal/domain"
	"github.com/Gatimoro-Games/lobbysignal/internal/store"
)

// recordingTransport captures every event handed to it, in order, for
// assertions about fan-out ordering (spec 4.3, 8).
type recordingTransport struct {
	mu     sync.Mutex
	events []envelope
}

func (r *recordingTransport) Deliver(event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := event.(envelope); ok {
		r.events = append(r.events, e)
		return nil
	}
	if m, ok := event.(map[string]any); ok {
		r.events = append(r.events, envelope(m))
		return nil
	}
	return nil
}

func (r *recordingTransport) Close(reason string) {}

func (r *recordingTransport) last() envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

func newTestRouter() (*Router, *store.Store) {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	s := store.New(log)
	return New(s, log), s
}

func newPeer(s *store.Store, t domain.Transport) *domain.Peer {
	p := domain.NewPeer(s.NextPeerID(), nil, t)
	s.AddPeer(p)
	return p
}

func TestHandleCreateLobbyDefaultsNameAndSetsHost(t *testing.T) {
	r, s := newTestRouter()
	host := newPeer(s, &recordingTransport{})

	reply, serr := r.HandleCreateLobby(host, "", true, 0)
	require.Nil(t, serr)
	require.Equal(t, domain.EventLobbyCreated, reply["t"])
	require.Equal(t, host.ID, reply["host_id"])
	require.Equal(t, host.ID, reply["your_id"])
	name, _ := reply["name"].(string)
	require.Contains(t, name, "Lobby-")
}

func TestHandleJoinLobbyOrdering(t *testing.T) {
	r, s := newTestRouter()
	hostTransport := &recordingTransport{}
	host := newPeer(s, hostTransport)

	created, serr := r.HandleCreateLobby(host, "Alpha", true, 0)
	require.Nil(t, serr)
	code := created["code"].(string)

	guestTransport := &recordingTransport{}
	guest := newPeer(s, guestTransport)

	reply, after, serr := r.HandleJoinLobby(guest, code, map[string]any{"name": "Guest"})
	require.Nil(t, serr)
	require.Equal(t, domain.EventLobbyJoined, reply["t"])
	players, _ := reply["players"].([]map[string]any)
	require.Len(t, players, 2)

	// Host has not yet observed peer_joined: ordering requires the caller
	// to write the reply first, then invoke after().
	require.Empty(t, hostTransport.events)

	require.NotNil(t, after)
	after()

	require.Equal(t, domain.EventPeerJoined, hostTransport.last()["t"])
	require.Equal(t, guest.ID, hostTransport.last()["id"])
}

func TestHandleJoinLobbyHostRejoinIsNoop(t *testing.T) {
	r, s := newTestRouter()
	host := newPeer(s, &recordingTransport{})
	created, _ := r.HandleCreateLobby(host, "Alpha", true, 0)
	code := created["code"].(string)

	reply, after, serr := r.HandleJoinLobby(host, code, nil)
	require.Nil(t, serr)
	require.Equal(t, domain.EventLobbyJoined, reply["t"])
	require.Nil(t, after)
}

func TestHandleJoinLobbyNotFound(t *testing.T) {
	r, s := newTestRouter()
	guest := newPeer(s, &recordingTransport{})

	_, _, serr := r.HandleJoinLobby(guest, "XXXX", nil)
	require.NotNil(t, serr)
	require.Equal(t, domain.ErrLobbyNotFound, serr.Code)
}

func TestHandleLeaveLobbyHostClosesForGuest(t *testing.T) {
	r, s := newTestRouter()
	host := newPeer(s, &recordingTransport{})
	created, _ := r.HandleCreateLobby(host, "Alpha", true, 0)
	code := created["code"].(string)

	guestTransport := &recordingTransport{}
	guest := newPeer(s, guestTransport)
	_, after, serr := r.HandleJoinLobby(guest, code, nil)
	require.Nil(t, serr)
	after()

	reply, after, serr := r.HandleLeaveLobby(host)
	require.Nil(t, serr)
	require.Equal(t, domain.EventLobbyLeft, reply["t"])
	require.NotNil(t, after)
	after()

	require.Equal(t, domain.EventLobbyClosed, guestTransport.last()["t"])
	require.Equal(t, domain.CloseHostLeft, guestTransport.last()["reason"])
}

func TestHandleLeaveLobbyNotInLobby(t *testing.T) {
	r, s := newTestRouter()
	peer := newPeer(s, &recordingTransport{})

	_, _, serr := r.HandleLeaveLobby(peer)
	require.NotNil(t, serr)
	require.Equal(t, domain.ErrNotInLobby, serr.Code)
}

func TestHandlePingReturnsPong(t *testing.T) {
	r, _ := newTestRouter()
	reply := r.HandlePing()
	require.Equal(t, domain.EventPong, reply["t"])
}

func TestDisconnectOfHostClosesLobbyForGuest(t *testing.T) {
	r, s := newTestRouter()
	host := newPeer(s, &recordingTransport{})
	created, _ := r.HandleCreateLobby(host, "Alpha", true, 0)
	code := created["code"].(string)

	guestTransport := &recordingTransport{}
	guest := newPeer(s, guestTransport)
	_, after, serr := r.HandleJoinLobby(guest, code, nil)
	require.Nil(t, serr)
	after()

	r.HandleDisconnect(host)

	require.Equal(t, domain.EventLobbyClosed, guestTransport.last()["t"])
	require.Equal(t, domain.CloseHostDisconnected, guestTransport.last()["reason"])
}

func TestDisconnectRemovesPeerFromRegistry(t *testing.T) {
	r, s := newTestRouter()
	peer := newPeer(s, &recordingTransport{})

	r.HandleDisconnect(peer)

	_, ok := s.GetPeer(peer.ID)
	require.False(t, ok)
}

func TestDispatchUnknownCommand(t *testing.T) {
	r, s := newTestRouter()
	peer := newPeer(s, &recordingTransport{})

	reply, after := r.Dispatch(peer, map[string]any{"t": "not_a_command"})
	require.Nil(t, after)
	require.Equal(t, domain.EventError, reply["t"])
	require.Equal(t, domain.ErrUnknownCommand, reply["code"])
}

func TestDispatchPing(t *testing.T) {
	r, s := newTestRouter()
	peer := newPeer(s, &recordingTransport{})

	reply, after := r.Dispatch(peer, map[string]any{"t": "ping"})
	require.Nil(t, after)
	require.Equal(t, domain.EventPong, reply["t"])
}
