package harness

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden(t *testing.T) {
	for _, name := range []string{"climb_through_10k", "detach_doors"} {
		t.Run(name, func(t *testing.T) {
			s, err := LoadScenario(filepath.Join("testdata", "scenarios", name+".yaml"))
			require.NoError(t, err)

			result, err := RunWithGolden(t, s)
			require.NoError(t, err)
			assert.True(t, result.Pass, result.Errors)
		})
	}
}

func TestTraceText(t *testing.T) {
	trace := []TraceEvent{
		{Seq: 1, Event: "simconnect-open", Payload: map[string]any{}},
		{Seq: 2, At: 1500000000, Event: "audio-event", Payload: map[string]any{"type": "doors_auto"}},
	}
	assert.Equal(t,
		"+0s #1 simconnect-open {}\n+1.5s #2 audio-event {\"type\":\"doors_auto\"}\n",
		string(TraceText(trace)))
	assert.Equal(t, "audio-event:doors_auto", trace[1].Label())
}
