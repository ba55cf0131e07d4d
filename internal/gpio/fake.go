package gpio

import "errors"

// FakeInput is a test double that returns scripted button levels.
type FakeInput struct {
	// Samples contains scripted pressed values. Each call to Pressed()
	// consumes the next sample; the last sample repeats once exhausted.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Pressed()
	ReadError error
}

// NewFakeInput creates a FakeInput with the given samples.
func NewFakeInput(samples []bool) *FakeInput {
	return &FakeInput{Samples: samples}
}

// Pressed returns the next scripted sample.
func (f *FakeInput) Pressed() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return false, errors.New("no samples configured")
	}
	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return sample, nil
}

// Close marks the input as closed.
func (f *FakeInput) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the input to the beginning of samples.
func (f *FakeInput) Reset() {
	f.index = 0
	f.Closed = false
}
