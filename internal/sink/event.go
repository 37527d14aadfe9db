// Package sink delivers named UI events to whatever presents them.
//
// Emission is fire-and-forget: a Sink must never block the engine. Slow
// consumers lose events rather than stall the dispatch loop.
package sink

// Event names understood by the UI layer.
const (
	EventOpen          = "simconnect-open"
	EventQuit          = "simconnect-quit"
	EventError         = "simconnect-error"
	EventData          = "simconnect-data"
	EventAudio         = "audio-event"
	EventBeacon        = "beacon-light-changed"
	EventSeatbelt      = "seatbelt-switch-changed"
	EventLandingLights = "landing-lights-changed"
	EventCamera        = "camera-position-changed"
)

// Audio event types carried in the "type" field of EventAudio.
const (
	AudioTenK          = "10k-feet"
	AudioWelcomeAboard = "welcome_aboard"
	AudioBoardingMusic = "boarding_music"
	AudioDoorsAuto     = "doors_auto"
	AudioSafetyVideo   = "safety_video"
)

// Event is one named UI event with a JSON-like payload.
// Seq orders events emitted within a session.
type Event struct {
	Name    string         `json:"event"`
	Seq     int64          `json:"seq"`
	Payload map[string]any `json:"payload"`
}

// New creates an event with the given payload. A nil payload becomes {}.
func New(name string, payload map[string]any) Event {
	if payload == nil {
		payload = map[string]any{}
	}
	return Event{Name: name, Payload: payload}
}

// Audio creates an audio event without a volume.
func Audio(kind string) Event {
	return New(EventAudio, map[string]any{"type": kind})
}

// AudioAt creates an audio event played at volume.
func AudioAt(kind string, volume float64) Event {
	return New(EventAudio, map[string]any{"type": kind, "volume": volume})
}

// Switch creates a "*-changed" event for an on/off switch.
func Switch(name string, on bool) Event {
	return New(name, map[string]any{"state": on})
}

// Message creates an event carrying a human-readable message.
func Message(name, msg string) Event {
	return New(name, map[string]any{"message": msg})
}

// AudioType returns the "type" of an audio event, or "" for other events.
func (e Event) AudioType() string {
	if e.Name != EventAudio {
		return ""
	}
	s, _ := e.Payload["type"].(string)
	return s
}
