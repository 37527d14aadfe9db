package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func audio(seq int64, kind string, volume float64) TraceEvent {
	return TraceEvent{Seq: seq, Event: "audio-event", Payload: map[string]any{"type": kind, "volume": volume}}
}

var sampleTrace = []TraceEvent{
	{Seq: 1, Event: "simconnect-open", Payload: map[string]any{}},
	audio(2, "boarding_music", 100),
	audio(3, "welcome_aboard", 0),
	audio(4, "boarding_music", 0),
	{Seq: 5, Event: "simconnect-quit", Payload: map[string]any{}},
}

func intp(n int) *int { return &n }

func TestEvaluateAssertions(t *testing.T) {
	tests := []struct {
		name      string
		assertion Assertion
		wantErr   string
	}{
		{"count audio", Assertion{Type: AssertEventCount, Event: "audio-event", Audio: "boarding_music", Count: intp(2)}, ""},
		{"count all audio", Assertion{Type: AssertEventCount, Event: "audio-event", Count: intp(3)}, ""},
		{"count zero", Assertion{Type: AssertEventCount, Event: "simconnect-error", Count: intp(0)}, ""},
		{"count wrong", Assertion{Type: AssertEventCount, Event: "simconnect-open", Count: intp(3)}, "emitted 1 times"},
		{"order subsequence", Assertion{Type: AssertEventOrder, Events: []string{"simconnect-open", "audio-event:welcome_aboard", "simconnect-quit"}}, ""},
		{"order reversed", Assertion{Type: AssertEventOrder, Events: []string{"audio-event:welcome_aboard", "simconnect-open"}}, "then no simconnect-open"},
		{"contains int volume", Assertion{Type: AssertEventContains, Event: "audio-event", Audio: "boarding_music", Payload: map[string]any{"volume": 0}}, ""},
		{"contains missing", Assertion{Type: AssertEventContains, Event: "audio-event", Audio: "boarding_music", Payload: map[string]any{"volume": 50}}, "not found in trace"},
		{"unknown", Assertion{Type: "nope"}, "unknown assertion type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewResult()
			result.Trace = sampleTrace
			errs := EvaluateAssertions(result, []Assertion{tt.assertion})
			if tt.wantErr == "" {
				assert.Empty(t, errs)
				return
			}
			require.Len(t, errs, 1)
			assert.Contains(t, errs[0], tt.wantErr)
		})
	}
}

func TestAssertFinalState(t *testing.T) {
	state := map[string]any{"alt": float64(8000), "jetwayState": false, "cameraPosition": "cockpit"}

	result := NewResult()
	result.State = state
	errs := EvaluateAssertions(result, []Assertion{{
		Type:   AssertFinalState,
		Expect: map[string]any{"alt": 8000, "jetwayState": false, "cameraPosition": "cockpit"},
	}})
	assert.Empty(t, errs)

	errs = EvaluateAssertions(result, []Assertion{{
		Type:   AssertFinalState,
		Expect: map[string]any{"alt": 9000, "nope": true},
	}})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0], "alt: got 8000, want 9000")
	assert.Contains(t, errs[0], "nope: missing")
}

func TestAssertionError_IncludesTrace(t *testing.T) {
	err := &AssertionError{Type: AssertEventCount, Expected: "x", Actual: "y", Trace: sampleTrace[:1]}
	msg := err.Error()
	assert.Contains(t, msg, "Assertion failed: event_count")
	assert.Contains(t, msg, "+0s #1 simconnect-open {}")
}

func TestValuesEqual(t *testing.T) {
	assert.True(t, valuesEqual(float64(1), 1))
	assert.True(t, valuesEqual(int64(2), float64(2)))
	assert.False(t, valuesEqual(float64(1), "1"))
	assert.True(t, valuesEqual("a", "a"))
	assert.True(t, valuesEqual(nil, nil))
	assert.False(t, valuesEqual(nil, false))
}
