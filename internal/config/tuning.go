package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/jackwaller57/simpa/internal/cabin"
	"github.com/jackwaller57/simpa/internal/engine"
	"github.com/jackwaller57/simpa/internal/sequence"
)

//go:embed tuning.cue
var schemaSource string

// MinCycleDelay is the shortest boarding cycle delay a tuning file may set.
const MinCycleDelay = time.Second

// Tuning holds every behavioral constant of the cabin engine.
type Tuning struct {
	Limits           cabin.Limits
	Timing           sequence.Timing
	ErrorLogInterval time.Duration
	PollYield        time.Duration
}

// DefaultTuning returns the production values.
func DefaultTuning() Tuning {
	cfg := engine.DefaultConfig()
	return Tuning{
		Limits:           cfg.Limits,
		Timing:           cfg.Timing,
		ErrorLogInterval: cfg.ErrorLogInterval,
		PollYield:        cfg.PollYield,
	}
}

// EngineConfig converts t to an engine configuration with uniform jitter.
func (t Tuning) EngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.Limits = t.Limits
	cfg.Timing = t.Timing
	cfg.ErrorLogInterval = t.ErrorLogInterval
	cfg.PollYield = t.PollYield
	return cfg
}

// TuningError is a tuning file problem, with its CUE position when known.
type TuningError struct {
	Message string
	Pos     token.Pos
}

func (e *TuningError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

// rawTuning mirrors #Tuning. Unset fields keep their defaults.
type rawTuning struct {
	TenKFeet            *float64 `json:"ten_k_feet"`
	ArriveSoonFeet      *float64 `json:"arrive_soon_feet"`
	ToggleDebounce      *string  `json:"toggle_debounce"`
	JetwayThrottle      *string  `json:"jetway_throttle"`
	PositionEpsilon     *float64 `json:"position_epsilon"`
	SubstateLogInterval *string  `json:"substate_log_interval"`

	FirstWelcomeDelay  *string `json:"first_welcome_delay"`
	FadeStep           *int    `json:"fade_step"`
	FadeInterval       *string `json:"fade_interval"`
	FadePause          *string `json:"fade_pause"`
	AnnouncementLength *string `json:"announcement_length"`
	CycleMin           *string `json:"cycle_min"`
	CycleMax           *string `json:"cycle_max"`
	DoorsDelay         *string `json:"doors_delay"`

	ErrorLogInterval *string `json:"error_log_interval"`
	PollYield        *string `json:"poll_yield"`
}

// LoadTuning reads a tuning file. An empty path returns the defaults.
func LoadTuning(path string) (Tuning, error) {
	if path == "" {
		return DefaultTuning(), nil
	}
	return loadOver(DefaultTuning(), path)
}

func loadOver(base Tuning, path string) (Tuning, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning file: %w", err)
	}
	return parseOver(base, path, src)
}

// ParseTuning validates src against the #Tuning schema and overlays it on
// the defaults.
func ParseTuning(filename string, src []byte) (Tuning, error) {
	return parseOver(DefaultTuning(), filename, src)
}

func parseOver(base Tuning, filename string, src []byte) (Tuning, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("tuning.cue"))
	if err := schema.Err(); err != nil {
		return Tuning{}, fmt.Errorf("tuning schema: %w", err)
	}

	file := ctx.CompileBytes(src, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return Tuning{}, cueError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Tuning")).Unify(file)
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return Tuning{}, cueError(err)
	}

	var raw rawTuning
	if err := v.Decode(&raw); err != nil {
		return Tuning{}, cueError(err)
	}

	t := base
	if err := raw.apply(&t); err != nil {
		return Tuning{}, &TuningError{Message: err.Error(), Pos: file.Pos()}
	}
	if t.Timing.CycleMin < MinCycleDelay {
		return Tuning{}, positioned(file, "cycle_min", fmt.Sprintf("cycle_min must be at least %s", MinCycleDelay))
	}
	if t.Timing.CycleMin > t.Timing.CycleMax {
		return Tuning{}, positioned(file, "cycle_min",
			fmt.Sprintf("cycle_min %s exceeds cycle_max %s", t.Timing.CycleMin, t.Timing.CycleMax))
	}
	return t, nil
}

func (r rawTuning) apply(t *Tuning) error {
	setFloat := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setFloat(&t.Limits.TenKFeet, r.TenKFeet)
	setFloat(&t.Limits.ArriveSoonFeet, r.ArriveSoonFeet)
	setFloat(&t.Limits.PositionEpsilon, r.PositionEpsilon)
	if r.FadeStep != nil {
		t.Timing.FadeStep = *r.FadeStep
	}

	durations := []struct {
		name string
		src  *string
		dst  *time.Duration
	}{
		{"toggle_debounce", r.ToggleDebounce, &t.Limits.ToggleDebounce},
		{"jetway_throttle", r.JetwayThrottle, &t.Limits.JetwayThrottle},
		{"substate_log_interval", r.SubstateLogInterval, &t.Limits.SubstateLogRate},
		{"first_welcome_delay", r.FirstWelcomeDelay, &t.Timing.FirstWelcomeDelay},
		{"fade_interval", r.FadeInterval, &t.Timing.FadeInterval},
		{"fade_pause", r.FadePause, &t.Timing.FadePause},
		{"announcement_length", r.AnnouncementLength, &t.Timing.AnnouncementLength},
		{"cycle_min", r.CycleMin, &t.Timing.CycleMin},
		{"cycle_max", r.CycleMax, &t.Timing.CycleMax},
		{"doors_delay", r.DoorsDelay, &t.Timing.DoorsDelay},
		{"error_log_interval", r.ErrorLogInterval, &t.ErrorLogInterval},
		{"poll_yield", r.PollYield, &t.PollYield},
	}
	for _, d := range durations {
		if d.src == nil {
			continue
		}
		parsed, err := time.ParseDuration(*d.src)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		*d.dst = parsed
	}
	return nil
}

func cueError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &TuningError{Message: err.Error()}
	}
	first := errs[0]
	format, args := first.Msg()
	msg := fmt.Sprintf(format, args...)
	if path := first.Path(); len(path) > 0 {
		msg = fmt.Sprintf("%s: %s", strings.Join(path, "."), msg)
	}
	return &TuningError{Message: msg, Pos: first.Position()}
}

func positioned(file cue.Value, field, msg string) *TuningError {
	return &TuningError{Message: msg, Pos: file.LookupPath(cue.ParsePath(field)).Pos()}
}
