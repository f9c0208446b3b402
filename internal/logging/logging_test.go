package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNewCorrelationIDIsUniqueAndNonEmpty(t *testing.T) {
	a := NewCorrelationID()
	b := NewCorrelationID()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
}

func TestNewReturnsConfiguredLogger(t *testing.T) {
	log := New()
	require.NotNil(t, log)
	formatter, ok := log.Formatter.(*logrus.TextFormatter)
	require.True(t, ok)
	require.True(t, formatter.FullTimestamp)
}
