// Package cabin holds the flight and cabin state record and the transition
// rules that decide whether an incoming reading is a real change.
//
// State methods are pure transitions: they mutate the record and report what
// happened, and leave event emission and sequencing to the caller. Cabin wraps
// a State behind a single mutex for sharing with scheduled sequences.
package cabin

import (
	"math"
	"time"

	"github.com/jackwaller57/simpa/internal/telemetry"
)

// Limits are the thresholds and debounce windows applied by transitions.
type Limits struct {
	TenKFeet        float64
	ArriveSoonFeet  float64
	ToggleDebounce  time.Duration
	JetwayThrottle  time.Duration
	PositionEpsilon float64
	SubstateLogRate time.Duration
}

// DefaultLimits returns the production thresholds.
func DefaultLimits() Limits {
	return Limits{
		TenKFeet:        10000,
		ArriveSoonFeet:  18000,
		ToggleDebounce:  5 * time.Second,
		JetwayThrottle:  time.Second,
		PositionEpsilon: 0.1,
		SubstateLogRate: time.Second,
	}
}

// switchUnseen marks a light switch that has not reported yet.
const switchUnseen int32 = -1

// State is the single flight and cabin record for one session.
//
// Debounce timestamps start at the zero time, so the first toggle and the
// first jetway sample of a session are always accepted.
type State struct {
	Altitude             float64
	TenKAnnounced        bool
	ArriveSoonAnnounced  bool
	LandingSoonAnnounced bool

	JetwayAttached       bool
	JetwayMoving         bool
	LastRequestWasAttach bool
	LastToggleTime       time.Time
	LastJetwayUpdate     time.Time

	BoardingMusicPlaying   bool
	WelcomeAboardPlaying   bool
	LastWelcomeAboardTime  time.Time
	NextWelcomeAboardDelay time.Duration

	CameraPosition Position
	CameraViewType ViewType
	VolumeLevel    float64

	XPosition, YPosition, ZPosition float64
	lastPosition                    [3]float64

	LastSubstateUpdate time.Time

	GSXBypassPin bool

	switches [3]int32
	limits   Limits
}

// NewState creates a fresh record.
func NewState(limits Limits) *State {
	return &State{
		CameraPosition:         PositionExterior,
		CameraViewType:         ViewUnset,
		NextWelcomeAboardDelay: 30 * time.Second,
		switches:               [3]int32{switchUnseen, switchUnseen, switchUnseen},
		limits:                 limits,
	}
}

// Limits returns the thresholds this record was created with.
func (s *State) Limits() Limits { return s.limits }

// AltitudeResult reports which altitude flags changed.
type AltitudeResult struct {
	TenK        bool // crossed 10,000 ft climbing; announce
	ArriveSoon  bool
	LandingSoon bool
}

// ObserveAltitude records a new altitude and applies the threshold rules.
func (s *State) ObserveAltitude(alt float64) AltitudeResult {
	var res AltitudeResult
	prev := s.Altitude
	s.Altitude = alt

	if alt >= s.limits.TenKFeet && prev < s.limits.TenKFeet && !s.TenKAnnounced {
		s.TenKAnnounced = true
		res.TenK = true
	}
	if alt < s.limits.TenKFeet {
		s.TenKAnnounced = false
		s.LandingSoonAnnounced = false
	}
	// arriveSoon has no reset path.
	if alt < s.limits.ArriveSoonFeet && !s.ArriveSoonAnnounced {
		s.ArriveSoonAnnounced = true
		res.ArriveSoon = true
	}
	if alt < s.limits.TenKFeet && !s.LandingSoonAnnounced {
		s.LandingSoonAnnounced = true
		res.LandingSoon = true
	}
	return res
}

// ObserveSwitch records a light switch value. It reports whether the raw
// value differs from the previous observation.
func (s *State) ObserveSwitch(kind telemetry.SwitchKind, value int32) bool {
	i := int(kind) - 1
	if i < 0 || i >= len(s.switches) {
		return false
	}
	if s.switches[i] == value {
		return false
	}
	s.switches[i] = value
	return true
}

// JetwayResult reports the outcome of a telemetry jetway sample.
type JetwayResult struct {
	Accepted bool // outside the throttle window; a snapshot follows
	Changed  bool // attachment flipped
	Attached bool
}

// ObserveExitOpen applies a main exit door reading. A door open by any
// amount means the jetway is attached; a detach ends any announcement in
// progress.
func (s *State) ObserveExitOpen(now time.Time, percent float64) JetwayResult {
	if now.Sub(s.LastJetwayUpdate) < s.limits.JetwayThrottle {
		return JetwayResult{Attached: s.JetwayAttached}
	}
	s.LastJetwayUpdate = now

	attached := percent > 0
	res := JetwayResult{Accepted: true, Attached: attached}
	if attached == s.JetwayAttached {
		return res
	}
	res.Changed = true
	s.JetwayAttached = attached
	s.JetwayMoving = false
	s.LastRequestWasAttach = attached
	s.BoardingMusicPlaying = attached
	if !attached {
		s.WelcomeAboardPlaying = false
	}
	return res
}

// ToggleResult reports the outcome of a manual jetway toggle.
type ToggleResult struct {
	Accepted bool
	Attached bool
}

// ToggleJetway applies a manual toggle request. Requests inside the debounce
// window leave the record untouched. A detach ends any announcement in
// progress.
func (s *State) ToggleJetway(now time.Time) ToggleResult {
	if now.Sub(s.LastToggleTime) < s.limits.ToggleDebounce {
		return ToggleResult{Attached: s.JetwayAttached}
	}
	s.LastToggleTime = now
	s.JetwayMoving = true
	s.JetwayAttached = !s.JetwayAttached
	s.LastRequestWasAttach = s.JetwayAttached
	s.BoardingMusicPlaying = s.JetwayAttached
	if !s.JetwayAttached {
		s.WelcomeAboardPlaying = false
	}
	return ToggleResult{Accepted: true, Attached: s.JetwayAttached}
}

// ObserveCamera applies a camera state code. It reports the resulting view
// and whether the view type changed.
func (s *State) ObserveCamera(code int32) (CameraView, bool) {
	view := ViewFor(code)
	if view.ViewType == s.CameraViewType {
		return view, false
	}
	s.CameraViewType = view.ViewType
	s.CameraPosition = view.Position
	s.VolumeLevel = view.Volume
	return view, true
}

// ObserveAxis records one camera coordinate. The position field always
// follows the reading; the change is significant only when it moved more
// than the position epsilon from the last significant value.
func (s *State) ObserveAxis(axis telemetry.Axis, v float64) bool {
	switch axis {
	case telemetry.AxisX:
		s.XPosition = v
	case telemetry.AxisY:
		s.YPosition = v
	case telemetry.AxisZ:
		s.ZPosition = v
	default:
		return false
	}
	i := axis - 1
	if math.Abs(v-s.lastPosition[i]) <= s.limits.PositionEpsilon {
		return false
	}
	s.lastPosition[i] = v
	return true
}

// ObserveSubstate reports whether a camera substate reading should be
// logged now.
func (s *State) ObserveSubstate(now time.Time) bool {
	if now.Sub(s.LastSubstateUpdate) < s.limits.SubstateLogRate {
		return false
	}
	s.LastSubstateUpdate = now
	return true
}

// ObserveBypassPin records the bypass pin. It reports whether the pin
// changed and whether it was just inserted.
func (s *State) ObserveBypassPin(inserted bool) (changed, justInserted bool) {
	if s.GSXBypassPin == inserted {
		return false, false
	}
	s.GSXBypassPin = inserted
	return true, inserted
}

// StartWelcomeAboard marks the welcome announcement as playing.
func (s *State) StartWelcomeAboard(now time.Time) {
	s.WelcomeAboardPlaying = true
	s.LastWelcomeAboardTime = now
}

// Snapshot returns the full-state payload sent to the UI.
func (s *State) Snapshot() map[string]any {
	return map[string]any{
		"alt":                  math.Round(s.Altitude),
		"jetwayMoving":         s.JetwayMoving,
		"jetwayState":          s.JetwayAttached,
		"lastRequestWasAttach": s.LastRequestWasAttach,
		"boardingMusicPlaying": s.BoardingMusicPlaying,
		"welcomeAboardPlaying": s.WelcomeAboardPlaying,
		"tenKAnnounced":        s.TenKAnnounced,
		"arriveSoonAnnounced":  s.ArriveSoonAnnounced,
		"landingSoonAnnounced": s.LandingSoonAnnounced,
		"cameraPosition":       string(s.CameraPosition),
		"xPosition":            s.XPosition,
		"yPosition":            s.YPosition,
		"zPosition":            s.ZPosition,
		"cameraViewType":       s.CameraViewType.Display(),
		"volumeLevel":          s.VolumeLevel,
		"gsxBypassPin":         s.GSXBypassPin,
	}
}

// CameraPayload returns the camera-position-changed payload.
func (s *State) CameraPayload() map[string]any {
	return map[string]any{
		"position":    string(s.CameraPosition),
		"viewType":    s.CameraViewType.Display(),
		"volumeLevel": s.VolumeLevel,
		"xPosition":   s.XPosition,
		"yPosition":   s.YPosition,
		"zPosition":   s.ZPosition,
	}
}
