package store

import "github.com/Gatimoro-Games/lobbysignal/internal/domain"

// shutdownEvent carries both the lobby-protocol and signaling-protocol
// discriminants so every transport recognizes it regardless of which
// protocol space it is serving (spec 5: "write a server_shutdown frame").
var shutdownEvent = map[string]any{
	"t":         "server_shutdown",
	"data_type": "server_shutdown",
}

// Shutdown notifies every connected transport and closes it, then clears
// all state. Each transport's own Deliver/Close is non-blocking or bounded
// by its own write deadline, so this cannot hang on one stuck connection.
func (s *Store) Shutdown() {
	for _, t := range s.AllTransports() {
		t.Deliver(shutdownEvent)
		t.Close(string(domain.CloseClosed))
	}
	s.ClearAll()
}
