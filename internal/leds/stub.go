//go:build !linux

package leds

import (
	"errors"

	"github.com/sweeney/ledring/internal/animation"
)

// RealStrip is not available on non-Linux platforms.
type RealStrip struct{}

// NewRealStrip returns an error on non-Linux platforms.
func NewRealStrip(device string, count int) (*RealStrip, error) {
	return nil, errors.New("leds: not supported on this platform (requires Linux)")
}

// WriteFrame is not implemented on non-Linux platforms.
func (s *RealStrip) WriteFrame(frame animation.Frame) error {
	return errors.New("leds: not supported")
}

// Close is not implemented on non-Linux platforms.
func (s *RealStrip) Close() error {
	return nil
}
