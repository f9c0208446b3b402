package router

import "github.com/Gatimoro-Games/lobbysignal/internal/domain"

// Dispatch decodes a raw lobby-socket frame (already JSON-unmarshaled into a
// generic map) and runs the matching command handler (spec 4.5). It always
// returns a reply envelope — an error envelope on failure — plus an after
// func to run once that reply has been written to the caller's transport.
func (r *Router) Dispatch(peer *domain.Peer, raw map[string]any) (envelope, func()) {
	t, _ := raw["t"].(string)

	switch domain.CommandType(t) {
	case domain.CommandCreateLobby:
		name, _ := raw["name"].(string)
		public := true
		if v, ok := raw["public"].(bool); ok {
			public = v
		}
		limit := 0
		if v, ok := raw["player_limit"].(float64); ok {
			limit = int(v)
		}
		if player := asMap(raw["player"]); len(player) > 0 {
			peer.PlayerData = player
		}
		reply, serr := r.HandleCreateLobby(peer, name, public, limit)
		if serr != nil {
			return r.ErrorEnvelope(serr), nil
		}
		return reply, nil

	case domain.CommandListLobbies:
		return r.HandleListLobbies(), nil

	case domain.CommandJoinLobby:
		code, _ := raw["code"].(string)
		player := asMap(raw["player"])
		reply, after, serr := r.HandleJoinLobby(peer, code, player)
		if serr != nil {
			return r.ErrorEnvelope(serr), nil
		}
		return reply, after

	case domain.CommandLeaveLobby:
		reply, after, serr := r.HandleLeaveLobby(peer)
		if serr != nil {
			return r.ErrorEnvelope(serr), nil
		}
		return reply, after

	case domain.CommandPing:
		return r.HandlePing(), nil

	default:
		return r.ErrorEnvelope(domain.ErrorUnknownCommand), nil
	}
}
