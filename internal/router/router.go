// Package router implements the lobby protocol's command handlers (spec
// 4.3), shared verbatim by the lobby-socket and HTTP+event-stream
// transports, plus the peer-disconnect routine (spec 4.8) that both
// transports invoke when their connection closes.
package router

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/Gatimoro-Games/lobbysignal/internal/domain"
	"github.com/Gatimoro-Games/lobbysignal/internal/store"
)

// Router holds no state of its own: every mutation goes through the store,
// and the router only shapes commands into store calls and store results
// into protocol envelopes.
type Router struct {
	store *store.Store
	log   *logrus.Logger
}

func New(s *store.Store, log *logrus.Logger) *Router {
	r := &Router{store: s, log: log}
	s.SetDisconnectHandler(r.HandleDisconnect)
	return r
}

func defaultLobbyName() string {
	return fmt.Sprintf("Lobby-%s", domain.GenerateCode())
}

func asMap(v any) map[string]any {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

func excludeSelf(ids []int, self int) []int {
	out := make([]int, 0, len(ids))
	for _, id := range ids {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}
