package domain

import (
	"crypto/rand"
)

// CodeAlphabet omits I, O, 0, 1 for readability, matching the teacher's
// generateLobbyCode and the Python original's ServerConfig.room_code_chars.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the fixed length of a lobby/room code.
const CodeLength = 4

// DebugCode is the deterministic code returned when a caller of the legacy
// host endpoint sets is_debug, overwriting any existing collision.
const DebugCode = "TEST"

// GenerateCode draws CodeLength characters uniformly from CodeAlphabet. It
// does not check for collisions — callers needing uniqueness across the
// shared lobby/room code space must retry against their own store.
func GenerateCode() string {
	b := make([]byte, CodeLength)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand.Read on the standard reader only fails if the OS
		// entropy source is broken; there is nothing a caller could do
		// differently, so fall back to an all-zero draw rather than
		// panicking the event loop.
		for i := range b {
			b[i] = 0
		}
	}
	out := make([]byte, CodeLength)
	for i, v := range b {
		out[i] = CodeAlphabet[int(v)%len(CodeAlphabet)]
	}
	return string(out)
}
