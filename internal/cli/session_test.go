package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackwaller57/simpa/internal/bridge"
)

func TestSessionOptions_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("SIMPA_BRIDGE_ADDR", "10.0.0.2:5800")
	t.Setenv("SIMPA_LISTEN", "0.0.0.0:9000")
	t.Setenv("SIMPA_POLL_YIELD", "5ms")

	opts := &SessionOptions{RootOptions: &RootOptions{}}
	env, tuning, err := opts.settings()
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2:5800", env.BridgeAddr)
	assert.Equal(t, "0.0.0.0:9000", env.Listen)
	assert.Equal(t, 5*time.Millisecond, tuning.PollYield)

	opts.Addr = "127.0.0.1:6000"
	opts.Listen = "off"
	env, _, err = opts.settings()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:6000", env.BridgeAddr)
	assert.Empty(t, env.Listen)

	opts.Discover = true
	env, _, err = opts.settings()
	require.NoError(t, err)
	assert.Equal(t, bridge.AddrAuto, env.ClientConfig().Addr)
	assert.Equal(t, "mDNS "+bridge.ServiceType, describeAddr(env.ClientConfig()))
}
