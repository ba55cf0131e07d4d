package leds

import "github.com/sweeney/ledring/internal/animation"

// FakeStrip records every frame written to it for test assertions.
type FakeStrip struct {
	// Frames contains copies of all frames written, oldest first.
	Frames []animation.Frame

	// WriteError, if set, will be returned by WriteFrame.
	WriteError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeStrip creates a FakeStrip.
func NewFakeStrip() *FakeStrip {
	return &FakeStrip{}
}

// WriteFrame records a copy of the frame.
func (f *FakeStrip) WriteFrame(frame animation.Frame) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	cp := make(animation.Frame, len(frame))
	copy(cp, frame)
	f.Frames = append(f.Frames, cp)
	return nil
}

// Last returns the most recently written frame, or nil.
func (f *FakeStrip) Last() animation.Frame {
	if len(f.Frames) == 0 {
		return nil
	}
	return f.Frames[len(f.Frames)-1]
}

// Close marks the strip as closed.
func (f *FakeStrip) Close() error {
	f.Closed = true
	return nil
}

// Reset clears recorded frames.
func (f *FakeStrip) Reset() {
	f.Frames = nil
	f.Closed = false
	f.WriteError = nil
}
