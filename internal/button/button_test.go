package button

import (
	"testing"
	"time"
)

var t0 = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// press simulates a clean press and release with the given hold duration,
// returning the classification from the release edge.
func press(t *testing.T, c *Classifier, start time.Time, hold time.Duration) (Press, bool) {
	t.Helper()
	if p, ok := c.Poll(true, start); ok {
		t.Fatalf("press edge emitted event %q", p)
	}
	return c.Poll(false, start.Add(hold))
}

func TestClassifyByDuration(t *testing.T) {
	tests := []struct {
		hold time.Duration
		want Press
	}{
		{100 * time.Millisecond, PressShort},
		{2499 * time.Millisecond, PressShort},
		{2500 * time.Millisecond, PressLong},
		{5 * time.Second, PressLong},
		{6999 * time.Millisecond, PressLong},
		{7 * time.Second, PressVeryLong},
		{7050 * time.Millisecond, PressVeryLong},
	}

	for _, tt := range tests {
		c := NewClassifier()
		c.Poll(false, t0) // establish released state

		got, ok := press(t, c, t0.Add(time.Second), tt.hold)
		if !ok {
			t.Errorf("hold %v: no event emitted", tt.hold)
			continue
		}
		if got != tt.want {
			t.Errorf("hold %v: got %q, want %q", tt.hold, got, tt.want)
		}
	}
}

func TestDebounceSuppressesJitter(t *testing.T) {
	c := NewClassifier()
	c.Poll(false, t0)

	// Press accepted.
	c.Poll(true, t0.Add(time.Second))

	// Bounce within the 50ms window: must not be treated as a release.
	if p, ok := c.Poll(false, t0.Add(time.Second).Add(20*time.Millisecond)); ok {
		t.Fatalf("bounce classified as release: %q", p)
	}
	if !c.Pressed() {
		t.Fatal("debounced level changed inside the window")
	}

	// Real release after the window.
	got, ok := c.Poll(false, t0.Add(time.Second).Add(200*time.Millisecond))
	if !ok {
		t.Fatal("release after debounce window not emitted")
	}
	if got != PressShort {
		t.Errorf("got %q, want short", got)
	}
}

func TestDebounceWindowBoundary(t *testing.T) {
	c := NewClassifier()
	c.Poll(false, t0)
	c.Poll(true, t0.Add(time.Second))

	// Exactly at the window edge the change is accepted.
	pressAt := t0.Add(time.Second)
	if _, ok := c.Poll(false, pressAt.Add(49*time.Millisecond)); ok {
		t.Error("change at 49ms accepted")
	}
	if _, ok := c.Poll(false, pressAt.Add(50*time.Millisecond)); !ok {
		t.Error("change at 50ms rejected")
	}
}

func TestSameLevelSamplesEmitNothing(t *testing.T) {
	c := NewClassifier()
	c.Poll(false, t0)
	for i := 1; i <= 100; i++ {
		if p, ok := c.Poll(false, t0.Add(time.Duration(i)*100*time.Millisecond)); ok {
			t.Fatalf("steady level emitted %q at sample %d", p, i)
		}
	}
}

func TestRepeatedPresses(t *testing.T) {
	c := NewClassifier()
	c.Poll(false, t0)

	at := t0.Add(time.Second)
	for i := 0; i < 3; i++ {
		got, ok := press(t, c, at, 3*time.Second)
		if !ok || got != PressLong {
			t.Fatalf("press %d: got %q ok=%v", i, got, ok)
		}
		at = at.Add(10 * time.Second)
	}
}
