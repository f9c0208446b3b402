// Package domain holds the wire-level vocabulary shared by every transport:
// command and event type names, error codes, and lobby-close reasons.
package domain

// CommandType is a client->server message type on the lobby protocol,
// shared verbatim by the lobby-socket and HTTP+event-stream transports.
type CommandType string

const (
	CommandCreateLobby CommandType = "create_lobby"
	CommandListLobbies CommandType = "list_lobbies"
	CommandJoinLobby   CommandType = "join_lobby"
	CommandLeaveLobby  CommandType = "leave_lobby"
	CommandPing        CommandType = "ping"
)

// EventType is a server->client message type on the lobby protocol.
type EventType string

const (
	EventWelcome        EventType = "welcome"
	EventLobbyCreated   EventType = "lobby_created"
	EventLobbyList      EventType = "lobby_list"
	EventLobbyJoined    EventType = "lobby_joined"
	EventLobbyLeft      EventType = "lobby_left"
	EventPeerJoined     EventType = "peer_joined"
	EventPeerLeft       EventType = "peer_left"
	EventLobbyClosed    EventType = "lobby_closed"
	EventPong           EventType = "pong"
	EventError          EventType = "error"
	EventServerShutdown EventType = "server_shutdown"
	EventGamePacket     EventType = "game_packet"
	EventHeartbeat      EventType = "heartbeat"
)

// ErrorCode is the closed taxonomy carried in error envelopes.
type ErrorCode string

const (
	ErrLobbyNotFound   ErrorCode = "LOBBY_NOT_FOUND"
	ErrLobbyClosed     ErrorCode = "LOBBY_CLOSED"
	ErrLobbyFull       ErrorCode = "LOBBY_FULL"
	ErrAlreadyInLobby  ErrorCode = "ALREADY_IN_LOBBY"
	ErrNotInLobby      ErrorCode = "NOT_IN_LOBBY"
	ErrUnknownCommand  ErrorCode = "UNKNOWN_COMMAND"
	ErrInvalidJSON     ErrorCode = "INVALID_JSON"
	ErrRoomNotFound    ErrorCode = "ROOM_NOT_FOUND"
	ErrPeerNotFound    ErrorCode = "PEER_NOT_FOUND"
	ErrPeerIDInUse     ErrorCode = "PEER_ID_IN_USE"
)

// CloseReason explains why a lobby was torn down. All values are terminal.
type CloseReason string

const (
	CloseHostLeft         CloseReason = "host_left"
	CloseHostDisconnected CloseReason = "host_disconnected"
	CloseHostClosed       CloseReason = "host_closed"
	CloseClosed           CloseReason = "closed"
)

// SignalingDataType is the `data_type` discriminant of a signaling envelope.
type SignalingDataType string

const (
	SignalingInitialize        SignalingDataType = "initialize"
	SignalingNewConnection     SignalingDataType = "new_connection"
	SignalingPeerDisconnected  SignalingDataType = "peer_disconnected"
	SignalingReady             SignalingDataType = "ready"
	SignalingOffer             SignalingDataType = "offer"
	SignalingAnswer            SignalingDataType = "answer"
	SignalingICE               SignalingDataType = "ice"
	SignalingServerShutdown    SignalingDataType = "server_shutdown"
)
