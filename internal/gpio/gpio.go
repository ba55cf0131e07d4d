// Package gpio provides the button input with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Input reads the button level.
type Input interface {
	// Pressed returns true while the touch sensor is active.
	Pressed() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// DefaultButtonPin is the BCM line the touch sensor is wired to.
const DefaultButtonPin = 5
