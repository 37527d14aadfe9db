package harness

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackwaller57/simpa/internal/sink"
)

// TraceEvent is one emitted event with the scenario time it was emitted at.
type TraceEvent struct {
	Seq     int64          `json:"seq"`
	At      time.Duration  `json:"at"`
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload"`
}

// Label returns the event name, suffixed with the audio type for audio events.
func (e TraceEvent) Label() string {
	if e.Event == sink.EventAudio {
		if kind, ok := e.Payload["type"].(string); ok {
			return e.Event + ":" + kind
		}
	}
	return e.Event
}

// Line renders the event as a single golden-file line.
func (e TraceEvent) Line() string {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		payload = []byte(fmt.Sprintf("%q", err.Error()))
	}
	return fmt.Sprintf("+%s #%d %s %s", e.At, e.Seq, e.Event, payload)
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every assertion holds.
	Pass bool `json:"pass"`

	// Trace holds every emitted event in emission order.
	Trace []TraceEvent `json:"trace"`

	// Errors holds assertion failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// State is the final cabin snapshot.
	State map[string]any `json:"state,omitempty"`

	// Elapsed is the scenario time at the end of the run.
	Elapsed time.Duration `json:"elapsed"`

	// Ended is true when the script delivered a quit.
	Ended bool `json:"ended"`
}

// NewResult creates a passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records an assertion failure and marks the result failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Labels returns the label of every trace event.
func (r *Result) Labels() []string {
	out := make([]string, len(r.Trace))
	for i, ev := range r.Trace {
		out[i] = ev.Label()
	}
	return out
}
