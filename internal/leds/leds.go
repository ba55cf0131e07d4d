// Package leds drives the WS2812 ring with hardware abstraction.
// The real implementation bit-stuffs frames onto a Linux spidev device.
// The fake implementation records frames for tests.
package leds

// DefaultSPIDevice is the spidev node the ring's data line hangs off.
const DefaultSPIDevice = "/dev/spidev0.0"

// DefaultCount is the number of pixels on the ring.
const DefaultCount = 24
