package harness

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jackwaller57/simpa/internal/telemetry"
)

// DefaultCycleDelay is the boarding cycle delay used when a scenario does
// not set cycle_delay.
const DefaultCycleDelay = time.Minute

// Scenario is a scripted telemetry session with assertions over the events
// it produces.
type Scenario struct {
	// Name uniquely identifies this scenario; it names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// CycleDelay fixes the random boarding cycle delay, e.g. "45s".
	CycleDelay string `yaml:"cycle_delay,omitempty"`

	// Steps is the telemetry script, applied in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the trace and the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one script entry. Exactly one field is set.
type Step struct {
	Record  *RecordStep `yaml:"record,omitempty"`
	Event   string      `yaml:"event,omitempty"`   // toggle_jetway or a numeric id
	Message string      `yaml:"message,omitempty"` // open, quit or exception
	Advance string      `yaml:"advance,omitempty"` // Go duration
}

// RecordStep is a data record. Raw, when set, is the hex payload and wins
// over Value.
type RecordStep struct {
	Tag   string   `yaml:"tag"`
	Value *float64 `yaml:"value,omitempty"`
	Raw   string   `yaml:"raw,omitempty"`
}

// Assertion validates the trace or the final state.
type Assertion struct {
	// Type is one of event_count, event_order, event_contains, final_state.
	Type string `yaml:"type"`

	// Event is the event name (event_count, event_contains).
	Event string `yaml:"event,omitempty"`

	// Audio narrows audio events to one type (event_count, event_contains).
	Audio string `yaml:"audio,omitempty"`

	// Count is the expected number of matching events (event_count).
	Count *int `yaml:"count,omitempty"`

	// Events lists labels that must appear in order (event_order).
	Events []string `yaml:"events,omitempty"`

	// Payload is a subset the event payload must contain (event_contains).
	Payload map[string]any `yaml:"payload,omitempty"`

	// Expect is a subset of the final snapshot (final_state).
	Expect map[string]any `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertEventCount    = "event_count"
	AssertEventOrder    = "event_order"
	AssertEventContains = "event_contains"
	AssertFinalState    = "final_state"
)

// Message step names.
const (
	MessageOpen      = "open"
	MessageQuit      = "quit"
	MessageException = "exception"
)

// EventToggleJetway is the scenario name of the jetway toggle event.
const EventToggleJetway = "toggle_jetway"

// action is a compiled step: a host message, or a clock advance when msg
// is nil.
type action struct {
	msg     telemetry.Message
	advance time.Duration
}

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields (typos) and invalid steps are errors.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// CycleDelayDuration returns the fixed boarding cycle delay.
func (s *Scenario) CycleDelayDuration() (time.Duration, error) {
	if s.CycleDelay == "" {
		return DefaultCycleDelay, nil
	}
	d, err := time.ParseDuration(s.CycleDelay)
	if err != nil {
		return 0, fmt.Errorf("cycle_delay: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("cycle_delay must be positive, got %s", d)
	}
	return d, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if _, err := s.CycleDelayDuration(); err != nil {
		return err
	}
	if _, err := s.compile(); err != nil {
		return err
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count == nil || *a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be set and non-negative for event_count", index)
		}
	case AssertEventOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for event_order", index)
		}
	case AssertEventContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_contains", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}

// compile turns the steps into actions.
func (s *Scenario) compile() ([]action, error) {
	out := make([]action, 0, len(s.Steps))
	for i, step := range s.Steps {
		a, err := step.compile()
		if err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
		out = append(out, a)
	}
	return out, nil
}

func (st Step) compile() (action, error) {
	set := 0
	if st.Record != nil {
		set++
	}
	for _, s := range []string{st.Event, st.Message, st.Advance} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return action{}, fmt.Errorf("exactly one of record, event, message, advance is required")
	}

	switch {
	case st.Record != nil:
		rec, err := st.Record.compile()
		if err != nil {
			return action{}, err
		}
		return action{msg: rec}, nil
	case st.Event != "":
		if st.Event == EventToggleJetway {
			return action{msg: telemetry.DiscreteEvent{ID: telemetry.EventToggleJetway}}, nil
		}
		id, err := strconv.ParseUint(st.Event, 10, 32)
		if err != nil {
			return action{}, fmt.Errorf("event: want %s or a numeric id, got %q", EventToggleJetway, st.Event)
		}
		return action{msg: telemetry.DiscreteEvent{ID: uint32(id)}}, nil
	case st.Message != "":
		switch st.Message {
		case MessageOpen:
			return action{msg: telemetry.Opened{}}, nil
		case MessageQuit:
			return action{msg: telemetry.Closed{}}, nil
		case MessageException:
			return action{msg: telemetry.Exception{}}, nil
		}
		return action{}, fmt.Errorf("message: unknown %q", st.Message)
	default:
		d, err := time.ParseDuration(st.Advance)
		if err != nil {
			return action{}, fmt.Errorf("advance: %w", err)
		}
		if d < 0 {
			return action{}, fmt.Errorf("advance: negative duration %s", d)
		}
		return action{advance: d}, nil
	}
}

func (r RecordStep) compile() (telemetry.DataRecord, error) {
	tag, err := parseTag(r.Tag)
	if err != nil {
		return telemetry.DataRecord{}, fmt.Errorf("record: %w", err)
	}
	if r.Raw != "" {
		payload, err := hex.DecodeString(r.Raw)
		if err != nil {
			return telemetry.DataRecord{}, fmt.Errorf("record: raw payload: %w", err)
		}
		return telemetry.DataRecord{Tag: tag, Payload: payload}, nil
	}
	if r.Value == nil {
		if tag == telemetry.TagFrame {
			return telemetry.DataRecord{Tag: tag}, nil
		}
		return telemetry.DataRecord{}, fmt.Errorf("record: value or raw is required for %s", tag)
	}
	return telemetry.Record(tag, *r.Value), nil
}

// parseTag accepts a tag name or a numeric tag id.
func parseTag(s string) (telemetry.Tag, error) {
	if tag, err := telemetry.ParseTag(s); err == nil {
		return tag, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("unknown telemetry tag %q", s)
	}
	return telemetry.Tag(n), nil
}
