//go:build linux

package leds

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/sweeney/ledring/internal/animation"
)

// WS2812 over SPI: each data bit becomes three SPI bits (100 = 0, 110 = 1)
// clocked at 2.4 MHz, giving the 1.25us bit period the pixels expect. The
// trailing zero bytes hold the line low past the 50us reset window.
const (
	spiSpeedHz = 2400000
	spiMode    = 0
	spiBits    = 8
	resetBytes = 18
)

// spidev ioctl requests (linux/spi/spidev.h).
const (
	spiIOCWrMode        = 0x40016B01
	spiIOCWrBitsPerWord = 0x40016B03
	spiIOCWrMaxSpeedHz  = 0x40046B04
)

// RealStrip writes frames to a WS2812 chain through a spidev device.
type RealStrip struct {
	f   *os.File
	buf []byte
}

// NewRealStrip opens and configures the SPI device for count pixels.
func NewRealStrip(device string, count int) (*RealStrip, error) {
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open spi device: %w", err)
	}

	mode := uint8(spiMode)
	if err := spiIoctl(f, spiIOCWrMode, unsafe.Pointer(&mode)); err != nil {
		f.Close()
		return nil, fmt.Errorf("set spi mode: %w", err)
	}
	bits := uint8(spiBits)
	if err := spiIoctl(f, spiIOCWrBitsPerWord, unsafe.Pointer(&bits)); err != nil {
		f.Close()
		return nil, fmt.Errorf("set spi bits per word: %w", err)
	}
	speed := uint32(spiSpeedHz)
	if err := spiIoctl(f, spiIOCWrMaxSpeedHz, unsafe.Pointer(&speed)); err != nil {
		f.Close()
		return nil, fmt.Errorf("set spi speed: %w", err)
	}

	// 3 data bytes per pixel, 3 SPI bits per data bit = 9 bytes per pixel.
	return &RealStrip{
		f:   f,
		buf: make([]byte, count*9+resetBytes),
	}, nil
}

// WriteFrame encodes the frame in GRB order and pushes it in one write.
func (s *RealStrip) WriteFrame(frame animation.Frame) error {
	n := 0
	for _, px := range frame {
		n = encodeByte(s.buf, n, px.G)
		n = encodeByte(s.buf, n, px.R)
		n = encodeByte(s.buf, n, px.B)
	}
	for i := 0; i < resetBytes; i++ {
		s.buf[n] = 0
		n++
	}
	if _, err := s.f.Write(s.buf[:n]); err != nil {
		return fmt.Errorf("spi write: %w", err)
	}
	return nil
}

// Close releases the SPI device.
func (s *RealStrip) Close() error {
	return s.f.Close()
}

// encodeByte expands one data byte into nine SPI bits starting at buf[n],
// three SPI bits per data bit, MSB first. Returns the next write offset.
func encodeByte(buf []byte, n int, b byte) int {
	var bits uint32 // 24 SPI bits for this byte
	for i := 7; i >= 0; i-- {
		bits <<= 3
		if b&(1<<uint(i)) != 0 {
			bits |= 0b110
		} else {
			bits |= 0b100
		}
	}
	buf[n] = byte(bits >> 16)
	buf[n+1] = byte(bits >> 8)
	buf[n+2] = byte(bits)
	return n + 3
}

func spiIoctl(f *os.File, req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, f.Fd(), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
