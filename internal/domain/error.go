package domain

// SignalError is the error type every command handler returns instead of
// raising across a transport boundary. Transports translate it into their
// own wire shape (an `error` envelope on the lobby socket, a `success:false`
// JSON body over HTTP).
type SignalError struct {
	Code    ErrorCode
	Message string
}

func (e *SignalError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return string(e.Code)
}

func NewError(code ErrorCode, message string) *SignalError {
	return &SignalError{Code: code, Message: message}
}

var (
	ErrorLobbyNotFound  = NewError(ErrLobbyNotFound, "lobby not found")
	ErrorLobbyClosed    = NewError(ErrLobbyClosed, "lobby is closed")
	ErrorLobbyFull      = NewError(ErrLobbyFull, "lobby is full")
	ErrorAlreadyInLobby = NewError(ErrAlreadyInLobby, "already in a lobby")
	ErrorNotInLobby     = NewError(ErrNotInLobby, "not in a lobby")
	ErrorUnknownCommand = NewError(ErrUnknownCommand, "unknown command")
	ErrorInvalidJSON    = NewError(ErrInvalidJSON, "invalid JSON")
	ErrorRoomNotFound   = NewError(ErrRoomNotFound, "room not found")
	ErrorPeerNotFound   = NewError(ErrPeerNotFound, "peer not found")
	ErrorPeerIDInUse    = NewError(ErrPeerIDInUse, "peer id already in use")
)
