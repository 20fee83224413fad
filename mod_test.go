package agrireg

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, ParseLogLevel(""))
	require.Equal(t, zerolog.InfoLevel, ParseLogLevel("nonsense"))
	require.Equal(t, zerolog.DebugLevel, ParseLogLevel("debug"))
	require.Equal(t, zerolog.WarnLevel, ParseLogLevel(" WARN "))
	require.Equal(t, zerolog.TraceLevel, ParseLogLevel("trace"))
}
