package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogUsableBeforeInit(t *testing.T) {
	require.NotNil(t, Log)
	Log.Info("no-op logger accepts entries")
}

func TestInitProduction(t *testing.T) {
	t.Setenv("PRISM_LOG", "production")
	Init()
	require.NotNil(t, Log)
	require.True(t, Log.Core().Enabled(0))
}
