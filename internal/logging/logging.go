// Package logging wires structured logging (logrus) and per-connection
// correlation ids (uuid) through the entity store and every transport,
// generalizing the teacher's bare log.Printf calls.
package logging

import (
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// New builds the module's logger: text output with full timestamps, for a
// process with no log aggregation pipeline of its own (spec treats log
// format as an external collaborator's concern).
func New() *logrus.Logger {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return log
}

// NewCorrelationID returns a short id used only to tie log lines from one
// HTTP request or lobby-socket connection together; it is never part of
// the domain model.
func NewCorrelationID() string {
	return uuid.NewString()
}
