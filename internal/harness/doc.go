// Package harness runs scripted telemetry scenarios against the cabin engine.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: boarding_cycle
//	description: "Attach the jetway and hear one welcome announcement"
//	cycle_delay: 60s
//	steps:
//	  - message: open
//	  - record: { tag: altitude, value: 120 }
//	  - record: { tag: exit_open, value: 5 }
//	  - advance: 31s
//	  - event: toggle_jetway
//	  - record: { tag: beacon, raw: "01000000" }
//	assertions:
//	  - type: event_count
//	    event: audio-event
//	    audio: welcome_aboard
//	    count: 1
//	  - type: event_order
//	    events: [simconnect-open, "audio-event:boarding_music", "audio-event:welcome_aboard"]
//	  - type: event_contains
//	    event: beacon-light-changed
//	    payload: { state: true }
//	  - type: final_state
//	    expect: { jetwayState: true }
//
// Each step is exactly one of record, event, message or advance. Records
// name their tag as printed by telemetry.Tag.String and carry either a
// numeric value (encoded with the tag's data type) or a raw hex payload.
// advance moves the manual clock and runs every scheduled sequence step
// that falls due.
//
// # Assertion Types
//
//   - event_count: the number of events with a name (and audio type) equals count
//   - event_order: the labels appear in order; intervening events are allowed
//   - event_contains: some event with the name has the payload as a subset
//   - final_state: the final snapshot has the expected values
//
// Audio events are labelled "audio-event:<type>" in event_order.
//
// # Deterministic Testing
//
// Scenarios run on a manual clock starting at testutil.Epoch with the
// virtual sequence scheduler and a fixed cycle delay, so the same scenario
// always yields the same trace. RunWithGolden compares that trace with
// testdata/golden/<name>.golden.
package harness
