// Package animation owns the LED ring visual state and renders one frame
// per tick for the active mode. It has no hardware dependencies: frames go
// to a Strip interface and time is always injected, so the engine is fully
// testable without LEDs or sleeps.
package animation

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Mode is an animation mode. The zero value renders all pixels dark.
type Mode string

const (
	ModeOff     Mode = "off"
	ModeSolid   Mode = "solid"
	ModeFlash   Mode = "flash"
	ModePulse   Mode = "pulse"
	ModeChase   Mode = "chase"
	ModeComet   Mode = "comet"
	ModeSpinner Mode = "spinner"
	ModeRainbow Mode = "rainbow"
)

// Rotation directions.
const (
	Clockwise        = 1
	CounterClockwise = -1
)

const cometTailLen = 8

// State is the snapshot of user-visible engine settings. Ephemeral
// animation phase (position, hue, flash toggle, pulse level) is excluded:
// a restore always restarts the animation from a neutral phase.
type State struct {
	Mode           Mode
	Direction      int
	Brightness     uint8
	UpdateInterval time.Duration
	ChaseColor     Color
	CometColor     Color
	SpinnerColors  []Color
	SolidColor     Color
	FlashColor     Color
	PulseColor     Color
	PulseMin       uint8
	PulseMax       uint8
	PulseStep      int
}

// Engine drives the ring. All mutation happens from the orchestration
// loop, so no locking is needed.
type Engine struct {
	strip   Strip
	numLEDs int
	frame   Frame
	log     zerolog.Logger

	mode           Mode
	position       int
	direction      int
	brightness     uint8
	updateInterval time.Duration
	lastUpdate     time.Time
	hue            int

	chaseColor    Color
	cometColor    Color
	spinnerColors []Color
	solidColor    Color
	flashColor    Color
	flashState    bool

	pulseColor     Color
	pulseMin       uint8
	pulseMax       uint8
	pulseCurrent   int
	pulseDirection int
	pulseStep      int
}

// NewEngine creates an engine for a ring of numLEDs pixels writing to
// strip. Defaults match the device power-on state: chase mode, red,
// 50ms interval, brightness 50, clockwise.
func NewEngine(strip Strip, numLEDs int, log zerolog.Logger) *Engine {
	return &Engine{
		strip:          strip,
		numLEDs:        numLEDs,
		frame:          make(Frame, numLEDs),
		log:            log,
		mode:           ModeChase,
		direction:      Clockwise,
		brightness:     50,
		updateInterval: 50 * time.Millisecond,
		chaseColor:     Color{255, 0, 0},
		cometColor:     Color{0, 150, 255},
		spinnerColors:  []Color{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}},
		solidColor:     Color{255, 255, 255},
		flashColor:     Color{255, 0, 0},
		pulseColor:     Color{0, 150, 255},
		pulseMin:       10,
		pulseMax:       255,
		pulseCurrent:   10,
		pulseDirection: 1,
		pulseStep:      5,
	}
}

// NumLEDs returns the ring size.
func (e *Engine) NumLEDs() int { return e.numLEDs }

// Mode returns the active animation mode.
func (e *Engine) Mode() Mode { return e.mode }

// Direction returns the current rotation direction (+1 or -1).
func (e *Engine) Direction() int { return e.direction }

// Brightness returns the global brightness scalar.
func (e *Engine) Brightness() uint8 { return e.brightness }

// UpdateInterval returns the time between frames.
func (e *Engine) UpdateInterval() time.Duration { return e.updateInterval }

// PulseRange returns the configured pulse brightness bounds.
func (e *Engine) PulseRange() (min, max uint8) { return e.pulseMin, e.pulseMax }

// SetMode switches the animation mode and resets the animation phase.
func (e *Engine) SetMode(mode Mode) {
	switch mode {
	case ModeOff, ModeSolid, ModeFlash, ModePulse, ModeChase, ModeComet, ModeSpinner, ModeRainbow:
		e.mode = mode
	default:
		e.log.Warn().Str("mode", string(mode)).Msg("unknown animation mode, keeping current")
		return
	}
	e.position = 0
	e.flashState = false
}

// SetUpdateInterval sets the frame period. Non-positive values are ignored.
func (e *Engine) SetUpdateInterval(d time.Duration) {
	if d <= 0 {
		e.log.Warn().Dur("interval", d).Msg("invalid update interval, keeping current")
		return
	}
	e.updateInterval = d
}

// SetBrightness sets the global brightness scalar (0-255).
func (e *Engine) SetBrightness(b uint8) {
	e.brightness = b
}

// SetDirection sets the rotation direction. Only +1 and -1 are accepted;
// anything else is warned about and ignored.
func (e *Engine) SetDirection(d int) {
	if d != Clockwise && d != CounterClockwise {
		e.log.Warn().Int("direction", d).Msg("direction must be 1 (cw) or -1 (ccw), keeping current")
		return
	}
	e.direction = d
}

// Reverse flips the current rotation direction.
func (e *Engine) Reverse() {
	e.direction = -e.direction
}

func (e *Engine) SetChaseColor(c Color) { e.chaseColor = c }
func (e *Engine) SetCometColor(c Color) { e.cometColor = c }
func (e *Engine) SetSolidColor(c Color) { e.solidColor = c }
func (e *Engine) SetFlashColor(c Color) { e.flashColor = c }
func (e *Engine) SetPulseColor(c Color) { e.pulseColor = c }

// SetSpinnerColors sets one color per spinner arm. Empty input is ignored:
// a spinner needs at least one arm.
func (e *Engine) SetSpinnerColors(colors []Color) {
	if len(colors) == 0 {
		e.log.Warn().Msg("spinner needs at least one color, keeping current")
		return
	}
	e.spinnerColors = append([]Color(nil), colors...)
}

// SetPulseRange sets the pulse brightness bounds, clamping to 0-255 and
// swapping if min > max. The current level is re-clamped into the range.
func (e *Engine) SetPulseRange(min, max int) {
	lo := clampByte(min)
	hi := clampByte(max)
	if lo > hi {
		lo, hi = hi, lo
	}
	e.pulseMin = lo
	e.pulseMax = hi
	if e.pulseCurrent < int(lo) {
		e.pulseCurrent = int(lo)
	}
	if e.pulseCurrent > int(hi) {
		e.pulseCurrent = int(hi)
	}
}

// SetPulseStep sets the per-tick pulse brightness delta, clamped to 1-50.
func (e *Engine) SetPulseStep(step int) {
	if step < 1 {
		step = 1
	}
	if step > 50 {
		step = 50
	}
	e.pulseStep = step
}

// Clear writes an all-dark frame immediately, independent of the tick timer.
func (e *Engine) Clear() error {
	for i := range e.frame {
		e.frame[i] = Color{}
	}
	return e.strip.WriteFrame(e.frame)
}

// Tick renders the next frame if the update interval has elapsed since the
// previous frame, then advances the animation phase. It never blocks beyond
// one strip write and is safe to call as fast as the caller likes.
func (e *Engine) Tick(now time.Time) error {
	if !e.lastUpdate.IsZero() && now.Sub(e.lastUpdate) < e.updateInterval {
		return nil
	}
	e.lastUpdate = now

	switch e.mode {
	case ModeSolid:
		e.renderSolid()
	case ModeFlash:
		e.renderFlash()
	case ModePulse:
		e.renderPulse()
	case ModeChase:
		e.renderChase()
	case ModeComet:
		e.renderComet()
	case ModeSpinner:
		e.renderSpinner()
	case ModeRainbow:
		e.renderRainbow()
	case ModeOff, "":
		e.renderOff()
	default:
		// Unknown modes render nothing but keep the tick timer moving.
		e.renderOff()
	}

	if err := e.strip.WriteFrame(e.frame); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}

	switch e.mode {
	case ModeChase, ModeComet, ModeSpinner:
		e.position = mod(e.position+e.direction, e.numLEDs)
	case ModeRainbow:
		e.hue = mod(e.hue+2*e.direction, 256)
	}
	return nil
}

func (e *Engine) renderOff() {
	for i := range e.frame {
		e.frame[i] = Color{}
	}
}

func (e *Engine) renderSolid() {
	c := e.solidColor.Scale(1.0, e.brightness)
	for i := range e.frame {
		e.frame[i] = c
	}
}

func (e *Engine) renderFlash() {
	if e.flashState {
		c := e.flashColor.Scale(1.0, e.brightness)
		for i := range e.frame {
			e.frame[i] = c
		}
	} else {
		e.renderOff()
	}
	e.flashState = !e.flashState
}

func (e *Engine) renderPulse() {
	// Pulse modulates only its own level, not the global brightness.
	scale := float64(e.pulseCurrent) / 255
	c := Color{
		R: uint8(float64(e.pulseColor.R) * scale),
		G: uint8(float64(e.pulseColor.G) * scale),
		B: uint8(float64(e.pulseColor.B) * scale),
	}
	for i := range e.frame {
		e.frame[i] = c
	}

	e.pulseCurrent += e.pulseStep * e.pulseDirection
	if e.pulseCurrent >= int(e.pulseMax) {
		e.pulseCurrent = int(e.pulseMax)
		e.pulseDirection = -1
	} else if e.pulseCurrent <= int(e.pulseMin) {
		e.pulseCurrent = int(e.pulseMin)
		e.pulseDirection = 1
	}
}

func (e *Engine) renderChase() {
	e.renderOff()
	e.frame[e.position] = e.chaseColor.Scale(1.0, e.brightness)
	e.frame[mod(e.position-e.direction, e.numLEDs)] = e.chaseColor.Scale(0.33, e.brightness)
	e.frame[mod(e.position-2*e.direction, e.numLEDs)] = e.chaseColor.Scale(0.16, e.brightness)
}

func (e *Engine) renderComet() {
	e.renderOff()
	for i := 0; i < cometTailLen; i++ {
		pos := mod(e.position-i*e.direction, e.numLEDs)
		intensity := float64(cometTailLen-i) / cometTailLen
		intensity *= intensity // quadratic fade
		e.frame[pos] = e.cometColor.Scale(intensity, e.brightness)
	}
}

func (e *Engine) renderSpinner() {
	e.renderOff()
	arms := len(e.spinnerColors)
	if arms == 0 {
		return
	}
	for arm := 0; arm < arms; arm++ {
		pos := mod(e.position+(e.numLEDs/arms)*arm, e.numLEDs)
		e.frame[pos] = e.spinnerColors[arm].Scale(1.0, e.brightness)
		e.frame[mod(pos-1, e.numLEDs)] = e.spinnerColors[arm].Scale(0.3, e.brightness)
	}
}

func (e *Engine) renderRainbow() {
	for i := range e.frame {
		pixelHue := (i*256/e.numLEDs + e.hue) % 256
		e.frame[i] = Wheel(pixelHue).Scale(1.0, e.brightness)
	}
}

// Save captures the user-visible settings for later restoration.
func (e *Engine) Save() State {
	return State{
		Mode:           e.mode,
		Direction:      e.direction,
		Brightness:     e.brightness,
		UpdateInterval: e.updateInterval,
		ChaseColor:     e.chaseColor,
		CometColor:     e.cometColor,
		SpinnerColors:  append([]Color(nil), e.spinnerColors...),
		SolidColor:     e.solidColor,
		FlashColor:     e.flashColor,
		PulseColor:     e.pulseColor,
		PulseMin:       e.pulseMin,
		PulseMax:       e.pulseMax,
		PulseStep:      e.pulseStep,
	}
}

// Restore reapplies a saved state and resets the animation phase so the
// restored mode starts cleanly. A nil state is a no-op.
func (e *Engine) Restore(s *State) {
	if s == nil {
		return
	}
	if s.Mode != "" {
		e.mode = s.Mode
	}
	if s.Direction == Clockwise || s.Direction == CounterClockwise {
		e.direction = s.Direction
	}
	e.brightness = s.Brightness
	if s.UpdateInterval > 0 {
		e.updateInterval = s.UpdateInterval
	}
	e.chaseColor = s.ChaseColor
	e.cometColor = s.CometColor
	if len(s.SpinnerColors) > 0 {
		e.spinnerColors = append([]Color(nil), s.SpinnerColors...)
	}
	e.solidColor = s.SolidColor
	e.flashColor = s.FlashColor
	e.pulseColor = s.PulseColor
	e.pulseMin = s.PulseMin
	e.pulseMax = s.PulseMax
	if s.PulseStep > 0 {
		e.pulseStep = s.PulseStep
	}

	e.position = 0
	e.hue = 0
	e.flashState = false
	e.pulseCurrent = int(e.pulseMin)
	e.pulseDirection = 1
}

// ErrReverse is returned by ParseDirection for the "reverse" token, which
// flips the current direction instead of setting one.
var ErrReverse = errors.New("reverse current direction")

// ParseDirection resolves a symbolic or numeric direction value from a
// command payload. It returns ErrReverse for "reverse" so the caller can
// invoke Reverse instead.
func ParseDirection(v any) (int, error) {
	switch d := v.(type) {
	case string:
		switch s := d; s {
		case "cw", "CW", "clockwise":
			return Clockwise, nil
		case "ccw", "CCW", "counter-clockwise", "counterclockwise":
			return CounterClockwise, nil
		case "reverse":
			return 0, ErrReverse
		default:
			return 0, fmt.Errorf("unknown direction %q", s)
		}
	case float64:
		if d == 1 || d == -1 {
			return int(d), nil
		}
		return 0, fmt.Errorf("direction must be 1 or -1, got %v", d)
	case int:
		if d == 1 || d == -1 {
			return d, nil
		}
		return 0, fmt.Errorf("direction must be 1 or -1, got %d", d)
	default:
		return 0, fmt.Errorf("unsupported direction type %T", v)
	}
}

func clampByte(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// mod is a floored modulo so negative positions wrap around the ring.
func mod(a, n int) int {
	m := a % n
	if m < 0 {
		m += n
	}
	return m
}
