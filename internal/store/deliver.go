package store

import "github.com/Gatimoro-Games/lobbysignal/internal/domain"

// SetDisconnectHandler wires the peer-disconnect routine (spec 4.8), which
// lives in the router package since it builds protocol envelopes. Store
// calls it when a delivery write fails, so a dead transport is cleaned up
// wherever it is first observed rather than only on an explicit close.
func (s *Store) SetDisconnectHandler(fn func(peer *domain.Peer)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onDisconnect = fn
}

// Deliver is the single fan-out primitive (spec 4.4): it inspects peer's
// transport and writes/enqueues event. A write failure is treated as the
// transport closing, and the peer's disconnect handler runs. A peer with
// no active transport silently drops the event — it is mid-teardown.
func (s *Store) Deliver(peer *domain.Peer, event any) {
	if peer == nil || peer.Transport == nil {
		return
	}
	if err := peer.Transport.Deliver(event); err != nil {
		s.log.WithField("peer_id", peer.ID).WithError(err).Debug("delivery failed, disconnecting peer")
		s.mu.Lock()
		hook := s.onDisconnect
		s.mu.Unlock()
		if hook != nil {
			hook(peer)
		}
	}
}

// BroadcastToIDs iterates a snapshot of ids (normally a lobby's member
// list taken under the store lock) and delivers event to each id except
// exclude. Delivery failures are handled independently per recipient and
// never block the rest of the fan-out.
func (s *Store) BroadcastToIDs(ids []int, event any, exclude int) {
	for _, id := range ids {
		if id == exclude {
			continue
		}
		if p, ok := s.GetPeer(id); ok {
			s.Deliver(p, event)
		}
	}
}
