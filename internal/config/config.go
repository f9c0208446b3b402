// Package config resolves the server's immutable runtime settings,
// generalizing original_source/signaling-server/server/config.py's
// env-var-then-cli-arg-then-default precedence.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is resolved once at startup and never mutated afterward.
type Config struct {
	Host string
	Port int

	// HeartbeatInterval is how often an idle event-stream connection
	// writes a heartbeat frame (spec 4.6, 5).
	HeartbeatInterval time.Duration

	// ShutdownWriteDeadline bounds how long the HTTP server's graceful
	// Shutdown waits for open requests once peers have been notified
	// (spec 5). Per-connection socket writes use each transport's own
	// write deadline instead.
	ShutdownWriteDeadline time.Duration

	// CORSOrigins is the value written to Access-Control-Allow-Origin on
	// every HTTP and event-stream response (spec 6).
	CORSOrigins string
}

const (
	defaultHost              = "0.0.0.0"
	defaultPort              = 3000
	defaultHeartbeatInterval = 15 * time.Second
	defaultShutdownDeadline  = 2 * time.Second
	defaultCORSOrigins       = "*"
)

// Load resolves configuration from, in precedence order: the SERVER_PORT
// environment variable, then args[0] if it parses as an integer (mirrors
// `python server.py [port]`), then the built-in default. args is normally
// os.Args[1:]; passed explicitly so it is testable without process state.
func Load(args []string) Config {
	cfg := Config{
		Host:                  defaultHost,
		Port:                  defaultPort,
		HeartbeatInterval:     defaultHeartbeatInterval,
		ShutdownWriteDeadline: defaultShutdownDeadline,
		CORSOrigins:           defaultCORSOrigins,
	}

	if envPort := os.Getenv("SERVER_PORT"); envPort != "" {
		if p, err := strconv.Atoi(envPort); err == nil {
			cfg.Port = p
			return cfg
		}
	}

	if len(args) > 0 {
		if p, err := strconv.Atoi(args[0]); err == nil {
			cfg.Port = p
		}
	}

	return cfg
}
