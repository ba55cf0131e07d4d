// Package button classifies a single debounced digital input into press
// events by hold duration. Like the animation engine it is pure logic:
// no GPIO, no sleeps, time is always injected.
package button

import "time"

// Press classifies a completed button press by its duration.
type Press string

const (
	PressShort    Press = "short"
	PressLong     Press = "long"
	PressVeryLong Press = "very_long"
)

// Timing constants. The very-long threshold sits just under the 7.1s
// auto-release ceiling of the capacitive touch sensor.
const (
	DebounceTime  = 50 * time.Millisecond
	LongPress     = 2500 * time.Millisecond
	VeryLongPress = 7000 * time.Millisecond
)

// Classifier tracks debounced button state across polls. State persists
// for the lifetime of the device; there is no reset.
type Classifier struct {
	debounce time.Duration
	long     time.Duration
	veryLong time.Duration

	pressed     bool // debounced level, true = pressed
	lastChange  time.Time
	pressStart  time.Time
	initialized bool
}

// NewClassifier creates a classifier with the standard thresholds.
func NewClassifier() *Classifier {
	return &Classifier{
		debounce: DebounceTime,
		long:     LongPress,
		veryLong: VeryLongPress,
	}
}

// Poll feeds one raw sample. It returns a press classification and true on
// the debounced release edge; all other samples return ("", false).
//
// A raw level change is only accepted once the debounce window has elapsed
// since the previously accepted change. A same-level "transition" observed
// after the window (jitter that settled back) refreshes the stored
// timestamp without emitting an event.
func (c *Classifier) Poll(pressed bool, now time.Time) (Press, bool) {
	if !c.initialized {
		c.initialized = true
		c.lastChange = now
		c.pressed = pressed
		return "", false
	}

	if now.Sub(c.lastChange) < c.debounce {
		return "", false
	}

	if c.pressed == pressed {
		return "", false
	}

	c.lastChange = now
	c.pressed = pressed

	if pressed {
		// Press edge: remember when it started, emit nothing yet.
		c.pressStart = now
		return "", false
	}

	// Release edge: classify by hold duration.
	duration := now.Sub(c.pressStart)
	switch {
	case duration >= c.veryLong:
		return PressVeryLong, true
	case duration >= c.long:
		return PressLong, true
	default:
		return PressShort, true
	}
}

// Pressed returns the current debounced level.
func (c *Classifier) Pressed() bool {
	return c.pressed
}
