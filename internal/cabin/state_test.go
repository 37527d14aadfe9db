package cabin

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackwaller57/simpa/internal/telemetry"
	"github.com/jackwaller57/simpa/internal/testutil"
)

func newState() *State {
	return NewState(DefaultLimits())
}

func TestObserveAltitude_TenKOncePerAscent(t *testing.T) {
	s := newState()

	var fired []int
	for i, alt := range []float64{9000, 9999, 10000, 12000, 10500} {
		if s.ObserveAltitude(alt).TenK {
			fired = append(fired, i)
		}
	}
	assert.Equal(t, []int{2}, fired)
	assert.True(t, s.TenKAnnounced)
}

func TestObserveAltitude_TenKClearedBelowThreshold(t *testing.T) {
	s := newState()
	s.ObserveAltitude(9000)
	require.True(t, s.ObserveAltitude(11000).TenK)

	s.ObserveAltitude(9999)
	assert.False(t, s.TenKAnnounced)
	assert.True(t, s.LandingSoonAnnounced)

	assert.True(t, s.ObserveAltitude(10000).TenK, "second ascent announces again")
}

func TestObserveAltitude_NoTenKWhenStartingAbove(t *testing.T) {
	s := newState()
	s.Altitude = 15000
	assert.False(t, s.ObserveAltitude(16000).TenK)
}

func TestObserveAltitude_ArriveSoonNeverResets(t *testing.T) {
	s := newState()

	res := s.ObserveAltitude(17999)
	assert.True(t, res.ArriveSoon)
	assert.True(t, s.ArriveSoonAnnounced)

	for _, alt := range []float64{5000, 20000, 35000, 19000} {
		assert.False(t, s.ObserveAltitude(alt).ArriveSoon)
		assert.True(t, s.ArriveSoonAnnounced, "alt %v", alt)
	}
}

func TestObserveAltitude_LandingSoonResetsAndSetsBelowTenK(t *testing.T) {
	s := newState()
	s.ObserveAltitude(12000)
	assert.False(t, s.LandingSoonAnnounced)

	res := s.ObserveAltitude(9500)
	assert.True(t, res.LandingSoon)
	assert.True(t, s.LandingSoonAnnounced)

	assert.False(t, s.ObserveAltitude(9000).LandingSoon)
}

func TestObserveSwitch_FirstReadingAlwaysChanges(t *testing.T) {
	s := newState()
	assert.True(t, s.ObserveSwitch(telemetry.SwitchBeacon, 0))
	assert.False(t, s.ObserveSwitch(telemetry.SwitchBeacon, 0))
	assert.True(t, s.ObserveSwitch(telemetry.SwitchBeacon, 1))
	assert.True(t, s.ObserveSwitch(telemetry.SwitchSeatbelt, 1), "switches are tracked independently")
	assert.True(t, s.ObserveSwitch(telemetry.SwitchLandingLights, 1))
	assert.False(t, s.ObserveSwitch(telemetry.SwitchKind(9), 1))
}

func TestObserveExitOpen_ThrottledToOncePerSecond(t *testing.T) {
	s := newState()
	now := testutil.Epoch

	res := s.ObserveExitOpen(now, 0)
	assert.True(t, res.Accepted)
	assert.False(t, res.Changed)

	res = s.ObserveExitOpen(now.Add(500*time.Millisecond), 80)
	assert.False(t, res.Accepted)
	assert.False(t, s.JetwayAttached)

	res = s.ObserveExitOpen(now.Add(time.Second), 80)
	assert.True(t, res.Accepted)
	assert.True(t, res.Changed)
	assert.True(t, s.JetwayAttached)
	assert.True(t, s.LastRequestWasAttach)
	assert.True(t, s.BoardingMusicPlaying)
}

func TestObserveExitOpen_AttachSequenceScenario(t *testing.T) {
	s := newState()
	now := testutil.Epoch

	var changes int
	for i, v := range []float64{0, 0, 5} {
		res := s.ObserveExitOpen(now.Add(time.Duration(i)*time.Second), v)
		require.True(t, res.Accepted)
		if res.Changed {
			changes++
		}
	}
	assert.Equal(t, 1, changes)
	assert.True(t, s.JetwayAttached)
}

func TestObserveExitOpen_ClearsMoving(t *testing.T) {
	s := newState()
	now := testutil.Epoch
	s.ToggleJetway(now)
	require.True(t, s.JetwayMoving)

	// Toggle flipped to attached; a closed door detaches again.
	res := s.ObserveExitOpen(now.Add(time.Second), 0)
	assert.True(t, res.Changed)
	assert.False(t, s.JetwayMoving)
	assert.False(t, s.JetwayAttached)
	assert.False(t, s.BoardingMusicPlaying)
}

func TestToggleJetway_Debounced(t *testing.T) {
	s := newState()
	now := testutil.Epoch

	first := s.ToggleJetway(now)
	assert.True(t, first.Accepted)
	assert.True(t, first.Attached)
	before := *s

	second := s.ToggleJetway(now.Add(4999 * time.Millisecond))
	assert.False(t, second.Accepted)
	assert.Equal(t, before, *s, "rejected toggle must not touch state")

	third := s.ToggleJetway(now.Add(5 * time.Second))
	assert.True(t, third.Accepted)
	assert.False(t, third.Attached)
	assert.False(t, s.LastRequestWasAttach)
	assert.True(t, s.JetwayMoving)
}

func TestDetach_EndsAnnouncement(t *testing.T) {
	now := testutil.Epoch

	s := newState()
	s.ObserveExitOpen(now, 5)
	s.StartWelcomeAboard(now.Add(31 * time.Second))
	s.ObserveExitOpen(now.Add(32*time.Second), 0)
	assert.False(t, s.WelcomeAboardPlaying, "telemetry detach")

	s = newState()
	s.ToggleJetway(now)
	s.StartWelcomeAboard(now.Add(31 * time.Second))
	s.ToggleJetway(now.Add(32 * time.Second))
	assert.False(t, s.WelcomeAboardPlaying, "manual detach")
}

func TestViewFor(t *testing.T) {
	tests := []struct {
		code int32
		want CameraView
	}{
		{0, CameraView{PositionCockpit, ViewInternal, 1.0}},
		{1, CameraView{PositionExterior, ViewExternal, 0.0}},
		{4, CameraView{PositionExterior, ViewExternal, 0.0}},
		{7, CameraView{PositionExterior, ViewExternal, 0.0}},
		{8, CameraView{PositionExterior, ViewUnknown, 0.0}},
		{-1, CameraView{PositionExterior, ViewUnknown, 0.0}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ViewFor(tt.code), "code %d", tt.code)
	}
}

func TestObserveCamera_EmitsOnViewTypeChangeOnly(t *testing.T) {
	s := newState()

	_, changed := s.ObserveCamera(2)
	assert.True(t, changed, "first reading always changes")
	assert.Equal(t, ViewExternal, s.CameraViewType)

	_, changed = s.ObserveCamera(5)
	assert.False(t, changed, "same view type")

	view, changed := s.ObserveCamera(0)
	assert.True(t, changed)
	assert.Equal(t, PositionCockpit, view.Position)
	assert.Equal(t, PositionCockpit, s.CameraPosition)
	assert.Equal(t, 1.0, s.VolumeLevel)
}

func TestObserveAxis_NoiseFilter(t *testing.T) {
	s := newState()

	assert.False(t, s.ObserveAxis(telemetry.AxisX, 0.1), "delta of exactly 0.1 is noise")
	assert.Equal(t, 0.1, s.XPosition, "position still follows the reading")

	assert.True(t, s.ObserveAxis(telemetry.AxisY, 0.1001))
	assert.True(t, s.ObserveAxis(telemetry.AxisZ, -2))
	assert.False(t, s.ObserveAxis(telemetry.AxisZ, -2.05))
	assert.True(t, s.ObserveAxis(telemetry.AxisZ, -2.2))
	assert.False(t, s.ObserveAxis(telemetry.Axis(0), 5))
}

func TestObserveSubstate_Throttled(t *testing.T) {
	s := newState()
	now := testutil.Epoch
	assert.True(t, s.ObserveSubstate(now))
	assert.False(t, s.ObserveSubstate(now.Add(999*time.Millisecond)))
	assert.True(t, s.ObserveSubstate(now.Add(time.Second)))
}

func TestObserveBypassPin_ZeroZeroOne(t *testing.T) {
	s := newState()

	var changes, inserts int
	for _, v := range []bool{false, false, true} {
		changed, inserted := s.ObserveBypassPin(v)
		if changed {
			changes++
		}
		if inserted {
			inserts++
		}
	}
	assert.Equal(t, 1, changes)
	assert.Equal(t, 1, inserts)

	changed, inserted := s.ObserveBypassPin(false)
	assert.True(t, changed)
	assert.False(t, inserted)
}

func TestSnapshot_Keys(t *testing.T) {
	s := newState()
	s.ObserveAltitude(10234.6)
	snap := s.Snapshot()

	assert.Equal(t, 10235.0, snap["alt"])
	assert.Equal(t, "exterior", snap["cameraPosition"])
	assert.Len(t, snap, 16)
	for _, k := range []string{
		"jetwayMoving", "jetwayState", "lastRequestWasAttach", "boardingMusicPlaying",
		"welcomeAboardPlaying", "tenKAnnounced", "arriveSoonAnnounced", "landingSoonAnnounced",
		"xPosition", "yPosition", "zPosition", "cameraViewType", "volumeLevel", "gsxBypassPin",
	} {
		assert.Contains(t, snap, k)
	}
}

func TestSnapshot_UnseenCameraReadsUnknown(t *testing.T) {
	s := newState()
	assert.Equal(t, ViewUnset, s.CameraViewType)
	assert.Equal(t, "unknown", s.Snapshot()["cameraViewType"])
	assert.Equal(t, "unknown", s.CameraPayload()["viewType"])

	_, changed := s.ObserveCamera(9)
	assert.True(t, changed, "unknown code still counts as the first reading")
	assert.Equal(t, "unknown", s.Snapshot()["cameraViewType"])
}

func TestCabin_ConcurrentAccess(t *testing.T) {
	c := New(DefaultLimits())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Update(func(s *State) { s.ObserveAltitude(float64(i * 100)) })
			_ = c.Snapshot()
		}(i)
	}
	wg.Wait()

	assert.False(t, c.Attached())
	assert.Equal(t, 16, len(c.Snapshot()))
}
