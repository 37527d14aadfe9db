package sequence

import (
	"time"

	"github.com/jackwaller57/simpa/internal/cabin"
	"github.com/jackwaller57/simpa/internal/clock"
	"github.com/jackwaller57/simpa/internal/sink"
)

type boardingPhase uint8

const (
	phaseFirstDelay boardingPhase = iota
	phaseFadeOut
	phasePause
	phaseAnnounce
	phaseAnnounceWait
	phaseFadeIn
	phaseCycleHead
	phaseCycleDelay
	phaseDone
)

var boardingPhaseNames = [...]string{
	phaseFirstDelay:   "first_delay",
	phaseFadeOut:      "fade_out",
	phasePause:        "pause",
	phaseAnnounce:     "announce",
	phaseAnnounceWait: "announce_wait",
	phaseFadeIn:       "fade_in",
	phaseCycleHead:    "cycle_head",
	phaseCycleDelay:   "cycle_delay",
	phaseDone:         "done",
}

func (p boardingPhase) String() string {
	if int(p) < len(boardingPhaseNames) {
		return boardingPhaseNames[p]
	}
	return "invalid"
}

// Boarding plays the welcome aboard announcement over boarding music while
// the jetway stays attached.
//
// Phases run: first delay, fade out, pause, announce, announce wait, fade in,
// then a cycle of random delay and the same fade/announce/fade steps. The
// attachment flag is read at the cycle head and again after the cycle delay.
type Boarding struct {
	cabin  *cabin.Cabin
	clk    clock.Clock
	timing Timing
	jitter Jitter

	phase  boardingPhase
	volume int
	settle bool // a fade emit is waiting for its interval sleep
}

// NewBoarding creates a boarding plan. A nil jitter uses UniformJitter.
func NewBoarding(c *cabin.Cabin, clk clock.Clock, t Timing, jitter Jitter) *Boarding {
	if jitter == nil {
		jitter = UniformJitter
	}
	if t.FadeStep <= 0 {
		t.FadeStep = 1
	}
	return &Boarding{cabin: c, clk: clk, timing: t, jitter: jitter}
}

// Name implements Plan.
func (b *Boarding) Name() string { return "boarding" }

// Phase reports the current phase name.
func (b *Boarding) Phase() string { return b.phase.String() }

// Next implements Plan.
func (b *Boarding) Next() (Step, bool) {
	switch b.phase {
	case phaseFirstDelay:
		b.beginFade(phaseFadeOut)
		return Sleep(b.timing.FirstWelcomeDelay), true

	case phaseFadeOut, phaseFadeIn:
		return b.fadeStep()

	case phasePause:
		b.phase = phaseAnnounce
		return Sleep(b.timing.FadePause), true

	case phaseAnnounce:
		now := b.clk.Now()
		b.cabin.Update(func(s *cabin.State) { s.StartWelcomeAboard(now) })
		b.phase = phaseAnnounceWait
		return Emit(sink.Audio(sink.AudioWelcomeAboard)), true

	case phaseAnnounceWait:
		b.beginFade(phaseFadeIn)
		return Sleep(b.timing.AnnouncementLength), true

	case phaseCycleHead:
		if !b.cabin.Attached() {
			b.phase = phaseDone
			return Step{}, false
		}
		d := b.jitter(b.timing.CycleMin, b.timing.CycleMax)
		b.cabin.Update(func(s *cabin.State) { s.NextWelcomeAboardDelay = d })
		b.phase = phaseCycleDelay
		return Sleep(d), true

	case phaseCycleDelay:
		if !b.cabin.Attached() {
			b.phase = phaseDone
			return Step{}, false
		}
		b.beginFade(phaseFadeOut)
		return b.fadeStep()
	}
	return Step{}, false
}

func (b *Boarding) beginFade(phase boardingPhase) {
	b.phase = phase
	b.settle = false
	if phase == phaseFadeOut {
		b.volume = 100
	} else {
		b.volume = 0
	}
}

// fadeStep alternates a volume emit with an interval sleep until the fade
// reaches its end volume.
func (b *Boarding) fadeStep() (Step, bool) {
	out := b.phase == phaseFadeOut
	if !b.settle {
		if !out && b.volume == 0 {
			b.cabin.Update(func(s *cabin.State) { s.WelcomeAboardPlaying = false })
		}
		b.settle = true
		return Emit(sink.AudioAt(sink.AudioBoardingMusic, float64(b.volume))), true
	}
	b.settle = false
	switch {
	case out && b.volume <= 0, !out && b.volume >= 100:
		b.finishFade(out)
	case out:
		b.volume = max(b.volume-b.timing.FadeStep, 0)
	default:
		b.volume = min(b.volume+b.timing.FadeStep, 100)
	}
	return Sleep(b.timing.FadeInterval), true
}

func (b *Boarding) finishFade(out bool) {
	if out {
		b.phase = phasePause
		return
	}
	b.phase = phaseCycleHead
}

// Doors announces "doors to automatic" once after the jetway detaches.
type Doors struct {
	delay time.Duration
	step  int
}

// NewDoors creates a doors plan.
func NewDoors(t Timing) *Doors {
	return &Doors{delay: t.DoorsDelay}
}

// Name implements Plan.
func (d *Doors) Name() string { return "doors" }

// Next implements Plan.
func (d *Doors) Next() (Step, bool) {
	d.step++
	switch d.step {
	case 1:
		return Sleep(d.delay), true
	case 2:
		return Emit(sink.Audio(sink.AudioDoorsAuto)), true
	}
	return Step{}, false
}
